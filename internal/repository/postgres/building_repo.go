package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// BuildingRepo handles building database operations.
type BuildingRepo struct {
	db *sql.DB
}

// NewBuildingRepo creates a BuildingRepo.
func NewBuildingRepo(db *sql.DB) *BuildingRepo {
	return &BuildingRepo{db: db}
}

const buildingColumns = `id, village_id, building_type, level, slot_position, is_upgrading, upgrade_ends_at, created_at, updated_at`

func scanBuilding(row rowScanner) (*model.Building, error) {
	var b model.Building
	var endsAt sql.NullTime
	err := row.Scan(&b.ID, &b.VillageID, &b.Type, &b.Level, &b.SlotPosition,
		&b.IsUpgrading, &endsAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if endsAt.Valid {
		b.UpgradeEndsAt = &endsAt.Time
	}
	return &b, nil
}

// Create inserts a new building at level 0 with its first construction running.
func (r *BuildingRepo) Create(ctx context.Context, villageID string, bt catalog.BuildingType, slot int, endsAt time.Time) (*model.Building, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO buildings (village_id, building_type, slot_position, level, is_upgrading, upgrade_ends_at)
		 VALUES ($1, $2, $3, 0, TRUE, $4)
		 RETURNING `+buildingColumns,
		villageID, bt, slot, endsAt)
	b, err := scanBuilding(row)
	if err != nil {
		return nil, fmt.Errorf("create building: %w", err)
	}
	return b, nil
}

// Seed inserts a finished building at the given level, for new villages.
func (r *BuildingRepo) Seed(ctx context.Context, villageID string, bt catalog.BuildingType, slot, level int) (*model.Building, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO buildings (village_id, building_type, slot_position, level, is_upgrading)
		 VALUES ($1, $2, $3, $4, FALSE)
		 RETURNING `+buildingColumns,
		villageID, bt, slot, level)
	b, err := scanBuilding(row)
	if err != nil {
		return nil, fmt.Errorf("seed building: %w", err)
	}
	return b, nil
}

// FindByVillage returns all buildings of a village ordered by slot.
func (r *BuildingRepo) FindByVillage(ctx context.Context, villageID string) ([]model.Building, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE village_id = $1 ORDER BY slot_position`, villageID)
	if err != nil {
		return nil, fmt.Errorf("find buildings by village: %w", err)
	}
	defer rows.Close()

	var out []model.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// FindBySlot returns the building occupying a slot, or nil when empty.
func (r *BuildingRepo) FindBySlot(ctx context.Context, villageID string, slot int) (*model.Building, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE village_id = $1 AND slot_position = $2`,
		villageID, slot)
	b, err := scanBuilding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find building by slot: %w", err)
	}
	return b, nil
}

// StartUpgrade marks a building as upgrading until endsAt.
func (r *BuildingRepo) StartUpgrade(ctx context.Context, id string, endsAt time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE buildings SET is_upgrading = TRUE, upgrade_ends_at = $1, updated_at = now() WHERE id = $2`,
		endsAt, id)
	if err != nil {
		return fmt.Errorf("start upgrade: %w", err)
	}
	return nil
}

// Complete finishes a due upgrade: bumps the level and clears the upgrade
// flag. The guard on is_upgrading and upgrade_ends_at makes replays no-ops;
// the return value reports whether this call did the completion.
func (r *BuildingRepo) Complete(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE buildings
		 SET level = level + 1, is_upgrading = FALSE, upgrade_ends_at = NULL, updated_at = now()
		 WHERE id = $1 AND is_upgrading AND upgrade_ends_at <= $2`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("complete upgrade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete upgrade: %w", err)
	}
	return n > 0, nil
}

// SetLevel writes a building level directly (demolition).
func (r *BuildingRepo) SetLevel(ctx context.Context, id string, level int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE buildings SET level = $1, updated_at = now() WHERE id = $2`, level, id)
	if err != nil {
		return fmt.Errorf("set building level: %w", err)
	}
	return nil
}

// Delete removes a building row (demolished below level 0).
func (r *BuildingRepo) Delete(ctx context.Context, id string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM buildings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete building: %w", err)
	}
	return nil
}

// FindDue returns buildings whose upgrade deadline has passed.
func (r *BuildingRepo) FindDue(ctx context.Context, now time.Time) ([]model.Building, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+buildingColumns+` FROM buildings
		 WHERE is_upgrading AND upgrade_ends_at <= $1
		 ORDER BY upgrade_ends_at`, now)
	if err != nil {
		return nil, fmt.Errorf("find due buildings: %w", err)
	}
	defer rows.Close()

	var out []model.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due building: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListUpgrading returns a village's in-progress constructions, soonest first.
func (r *BuildingRepo) ListUpgrading(ctx context.Context, villageID string) ([]model.Building, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+buildingColumns+` FROM buildings
		 WHERE village_id = $1 AND is_upgrading
		 ORDER BY upgrade_ends_at`, villageID)
	if err != nil {
		return nil, fmt.Errorf("list upgrading buildings: %w", err)
	}
	defer rows.Close()

	var out []model.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upgrading building: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
