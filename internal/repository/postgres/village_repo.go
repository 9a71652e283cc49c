package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// VillageRepo handles village database operations.
type VillageRepo struct {
	db *sql.DB
}

// NewVillageRepo creates a VillageRepo.
func NewVillageRepo(db *sql.DB) *VillageRepo {
	return &VillageRepo{db: db}
}

const villageColumns = `id, user_id, name, x, y, is_capital, wood, clay, iron, crop,
	warehouse_capacity, granary_capacity, population, culture_points, loyalty,
	resources_updated_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVillage(row rowScanner) (*model.Village, error) {
	var v model.Village
	err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.X, &v.Y, &v.IsCapital,
		&v.Wood, &v.Clay, &v.Iron, &v.Crop,
		&v.WarehouseCapacity, &v.GranaryCapacity, &v.Population, &v.CulturePoints, &v.Loyalty,
		&v.ResourcesUpdatedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a new village at the given coordinates.
func (r *VillageRepo) Create(ctx context.Context, userID, name string, x, y int, isCapital bool) (*model.Village, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO villages (user_id, name, x, y, is_capital)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+villageColumns,
		userID, name, x, y, isCapital)
	v, err := scanVillage(row)
	if err != nil {
		return nil, fmt.Errorf("create village: %w", err)
	}
	return v, nil
}

// FindByID looks up a village by id.
func (r *VillageRepo) FindByID(ctx context.Context, id string) (*model.Village, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+villageColumns+` FROM villages WHERE id = $1`, id)
	v, err := scanVillage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find village by id: %w", err)
	}
	return v, nil
}

// FindByCoordinates looks up the village at a map coordinate, if any.
func (r *VillageRepo) FindByCoordinates(ctx context.Context, x, y int) (*model.Village, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+villageColumns+` FROM villages WHERE x = $1 AND y = $2`, x, y)
	v, err := scanVillage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find village by coordinates: %w", err)
	}
	return v, nil
}

// ListByUser returns all villages owned by a user, oldest first.
func (r *VillageRepo) ListByUser(ctx context.Context, userID string) ([]model.Village, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+villageColumns+` FROM villages WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list villages: %w", err)
	}
	defer rows.Close()

	var out []model.Village
	for rows.Next() {
		v, err := scanVillage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan village: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// FindInRange returns map info for villages inside a coordinate rectangle.
func (r *VillageRepo) FindInRange(ctx context.Context, xMin, xMax, yMin, yMax int) ([]model.VillageMapInfo, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT v.id, v.user_id, v.name, v.x, v.y, v.population, u.display_name
		 FROM villages v JOIN users u ON u.id = v.user_id
		 WHERE v.x BETWEEN $1 AND $2 AND v.y BETWEEN $3 AND $4
		 ORDER BY v.y, v.x`,
		xMin, xMax, yMin, yMax)
	if err != nil {
		return nil, fmt.Errorf("find villages in range: %w", err)
	}
	defer rows.Close()

	var out []model.VillageMapInfo
	for rows.Next() {
		var m model.VillageMapInfo
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.X, &m.Y, &m.Population, &m.PlayerName); err != nil {
			return nil, fmt.Errorf("scan map info: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Rename updates the village name.
func (r *VillageRepo) Rename(ctx context.Context, id, name string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages SET name = $1, updated_at = now() WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("rename village: %w", err)
	}
	return nil
}

// Lock takes FOR UPDATE row locks on the given villages in ascending id order
// so concurrent arrival processing cannot deadlock. Only meaningful inside a
// transaction.
func (r *VillageRepo) Lock(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id FROM villages WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("lock villages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("lock villages scan: %w", err)
		}
	}
	return rows.Err()
}

// SetResources writes the resource amounts and the accrual timestamp.
func (r *VillageRepo) SetResources(ctx context.Context, id string, res catalog.Resources, updatedAt time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages
		 SET wood = $1, clay = $2, iron = $3, crop = $4, resources_updated_at = $5, updated_at = now()
		 WHERE id = $6`,
		res.Wood, res.Clay, res.Iron, res.Crop, updatedAt, id)
	if err != nil {
		return fmt.Errorf("set resources: %w", err)
	}
	return nil
}

// Deduct subtracts a cost atomically. Returns false when any resource is
// short, leaving the row untouched.
func (r *VillageRepo) Deduct(ctx context.Context, id string, cost catalog.Resources) (bool, error) {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages
		 SET wood = wood - $1, clay = clay - $2, iron = iron - $3, crop = crop - $4, updated_at = now()
		 WHERE id = $5 AND wood >= $1 AND clay >= $2 AND iron >= $3 AND crop >= $4`,
		cost.Wood, cost.Clay, cost.Iron, cost.Crop, id)
	if err != nil {
		return false, fmt.Errorf("deduct resources: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deduct resources: %w", err)
	}
	return n > 0, nil
}

// Credit adds resources, clamped to the village's storage capacities.
func (r *VillageRepo) Credit(ctx context.Context, id string, res catalog.Resources) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages
		 SET wood = LEAST(wood + $1, warehouse_capacity),
		     clay = LEAST(clay + $2, warehouse_capacity),
		     iron = LEAST(iron + $3, warehouse_capacity),
		     crop = LEAST(crop + $4, granary_capacity),
		     updated_at = now()
		 WHERE id = $5`,
		res.Wood, res.Clay, res.Iron, res.Crop, id)
	if err != nil {
		return fmt.Errorf("credit resources: %w", err)
	}
	return nil
}

// SetStorageCapacity writes recomputed warehouse and granary capacities.
func (r *VillageRepo) SetStorageCapacity(ctx context.Context, id string, warehouse, granary int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages SET warehouse_capacity = $1, granary_capacity = $2, updated_at = now() WHERE id = $3`,
		warehouse, granary, id)
	if err != nil {
		return fmt.Errorf("set storage capacity: %w", err)
	}
	return nil
}

// AddPopulation adjusts the village population.
func (r *VillageRepo) AddPopulation(ctx context.Context, id string, delta int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages SET population = GREATEST(population + $1, 0), updated_at = now() WHERE id = $2`,
		delta, id)
	if err != nil {
		return fmt.Errorf("add population: %w", err)
	}
	return nil
}

// UpdateLoyalty writes a new loyalty value.
func (r *VillageRepo) UpdateLoyalty(ctx context.Context, id string, loyalty int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages SET loyalty = $1, updated_at = now() WHERE id = $2`, loyalty, id)
	if err != nil {
		return fmt.Errorf("update loyalty: %w", err)
	}
	return nil
}

// TransferOwnership hands a conquered village to a new owner. The village
// loses capital status and starts at reduced loyalty.
func (r *VillageRepo) TransferOwnership(ctx context.Context, id, newUserID string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE villages SET user_id = $1, is_capital = FALSE, updated_at = now() WHERE id = $2`,
		newUserID, id)
	if err != nil {
		return fmt.Errorf("transfer ownership: %w", err)
	}
	return nil
}

// ListIDs returns every village id, for the periodic resource sweep.
func (r *VillageRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `SELECT id FROM villages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list village ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan village id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
