package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// TroopRepo handles troop pool, training queue, and definition operations.
type TroopRepo struct {
	db *sql.DB
}

// NewTroopRepo creates a TroopRepo.
func NewTroopRepo(db *sql.DB) *TroopRepo {
	return &TroopRepo{db: db}
}

// AllDefinitions loads the full troop stat roster.
func (r *TroopRepo) AllDefinitions(ctx context.Context) ([]catalog.UnitStats, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT troop_type, tribe, name, attack, defense_infantry, defense_cavalry,
		        speed, carry_capacity, crop_consumption, training_time_seconds,
		        wood_cost, clay_cost, iron_cost, crop_cost,
		        required_building, required_building_level, loyalty_reduction
		 FROM troop_definitions ORDER BY troop_type`)
	if err != nil {
		return nil, fmt.Errorf("load troop definitions: %w", err)
	}
	defer rows.Close()

	var out []catalog.UnitStats
	for rows.Next() {
		var s catalog.UnitStats
		if err := rows.Scan(&s.Type, &s.Tribe, &s.Name, &s.Attack, &s.DefenseInfantry, &s.DefenseCavalry,
			&s.Speed, &s.CarryCapacity, &s.CropUpkeep, &s.TrainSeconds,
			&s.Cost.Wood, &s.Cost.Clay, &s.Cost.Iron, &s.Cost.Crop,
			&s.RequiredBuilding, &s.RequiredLevel, &s.LoyaltyReduction); err != nil {
			return nil, fmt.Errorf("scan troop definition: %w", err)
		}
		s.Cavalry = s.Type.IsCavalry()
		s.Chief = s.Type.IsChief()
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindByVillage returns a village's troop pools.
func (r *TroopRepo) FindByVillage(ctx context.Context, villageID string) ([]model.Troop, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, village_id, troop_type, count, in_village, updated_at
		 FROM troops WHERE village_id = $1 ORDER BY troop_type`, villageID)
	if err != nil {
		return nil, fmt.Errorf("find troops by village: %w", err)
	}
	defer rows.Close()

	var out []model.Troop
	for rows.Next() {
		var t model.Troop
		if err := rows.Scan(&t.ID, &t.VillageID, &t.Type, &t.Count, &t.InVillage, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan troop: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Add upserts newly trained troops into the pool and the home garrison.
func (r *TroopRepo) Add(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO troops (village_id, troop_type, count, in_village)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (village_id, troop_type)
		 DO UPDATE SET count = troops.count + $3, in_village = troops.in_village + $3, updated_at = now()`,
		villageID, tt, count)
	if err != nil {
		return fmt.Errorf("add troops: %w", err)
	}
	return nil
}

// Remove moves troops out of the home garrison (dispatch). The total count is
// unchanged; the units are now part of an army.
func (r *TroopRepo) Remove(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE troops SET in_village = in_village - $3, updated_at = now()
		 WHERE village_id = $1 AND troop_type = $2 AND in_village >= $3`,
		villageID, tt, count)
	if err != nil {
		return fmt.Errorf("remove troops: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove troops: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("remove troops: not enough %s in village %s", tt, villageID)
	}
	return nil
}

// Return brings surviving troops back into the home garrison.
func (r *TroopRepo) Return(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE troops SET in_village = LEAST(in_village + $3, count), updated_at = now()
		 WHERE village_id = $1 AND troop_type = $2`,
		villageID, tt, count)
	if err != nil {
		return fmt.Errorf("return troops: %w", err)
	}
	return nil
}

// Kill removes garrisoned troops permanently (defender casualties).
func (r *TroopRepo) Kill(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE troops
		 SET count = GREATEST(count - $3, 0), in_village = GREATEST(in_village - $3, 0), updated_at = now()
		 WHERE village_id = $1 AND troop_type = $2`,
		villageID, tt, count)
	if err != nil {
		return fmt.Errorf("kill troops: %w", err)
	}
	return nil
}

// Discharge removes troops that died away from home: the total count drops
// while the home garrison is untouched.
func (r *TroopRepo) Discharge(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE troops SET count = GREATEST(count - $3, 0), updated_at = now()
		 WHERE village_id = $1 AND troop_type = $2`,
		villageID, tt, count)
	if err != nil {
		return fmt.Errorf("discharge troops: %w", err)
	}
	return nil
}

// CropUpkeep sums the hourly crop consumption of all troops owned by a village.
func (r *TroopRepo) CropUpkeep(ctx context.Context, villageID string) (int, error) {
	var upkeep sql.NullInt64
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT SUM(t.count * d.crop_consumption)
		 FROM troops t JOIN troop_definitions d ON d.troop_type = t.troop_type
		 WHERE t.village_id = $1`, villageID).Scan(&upkeep)
	if err != nil {
		return 0, fmt.Errorf("crop upkeep: %w", err)
	}
	return int(upkeep.Int64), nil
}

const orderColumns = `id, village_id, troop_type, count, per_unit_seconds, started_at, ends_at, created_at`

func scanOrder(row rowScanner) (*model.TrainingOrder, error) {
	var o model.TrainingOrder
	err := row.Scan(&o.ID, &o.VillageID, &o.Type, &o.Count, &o.PerUnitSec, &o.StartedAt, &o.EndsAt, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder appends a training order to a village's queue.
func (r *TroopRepo) CreateOrder(ctx context.Context, villageID string, tt catalog.TroopType, count, perUnitSec int, startsAt, endsAt time.Time) (*model.TrainingOrder, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO training_orders (village_id, troop_type, count, per_unit_seconds, started_at, ends_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+orderColumns,
		villageID, tt, count, perUnitSec, startsAt, endsAt)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("create training order: %w", err)
	}
	return o, nil
}

// FindOrder looks up a training order by id.
func (r *TroopRepo) FindOrder(ctx context.Context, id string) (*model.TrainingOrder, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM training_orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find training order: %w", err)
	}
	return o, nil
}

// OrdersByVillage returns a village's training queue in FIFO order.
func (r *TroopRepo) OrdersByVillage(ctx context.Context, villageID string) ([]model.TrainingOrder, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+orderColumns+` FROM training_orders WHERE village_id = $1 ORDER BY started_at`, villageID)
	if err != nil {
		return nil, fmt.Errorf("list training orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// LastOrderEnd returns the latest ends_at in the village's queue, or a zero
// time when the queue is empty. New orders chain behind it.
func (r *TroopRepo) LastOrderEnd(ctx context.Context, villageID string) (time.Time, error) {
	var endsAt sql.NullTime
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT MAX(ends_at) FROM training_orders WHERE village_id = $1`, villageID).Scan(&endsAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("last order end: %w", err)
	}
	if !endsAt.Valid {
		return time.Time{}, nil
	}
	return endsAt.Time, nil
}

// UpdateOrder rewrites an order's remaining count and start time after a
// partial drain.
func (r *TroopRepo) UpdateOrder(ctx context.Context, id string, count int, startedAt time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE training_orders SET count = $1, started_at = $2 WHERE id = $3`,
		count, startedAt, id)
	if err != nil {
		return fmt.Errorf("update training order: %w", err)
	}
	return nil
}

// DeleteOrder removes a finished or cancelled order.
func (r *TroopRepo) DeleteOrder(ctx context.Context, id string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM training_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete training order: %w", err)
	}
	return nil
}

// OrdersStarted returns running orders, for partial completion draining.
func (r *TroopRepo) OrdersStarted(ctx context.Context, now time.Time) ([]model.TrainingOrder, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+orderColumns+` FROM training_orders WHERE started_at <= $1 ORDER BY started_at`, now)
	if err != nil {
		return nil, fmt.Errorf("find started orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]model.TrainingOrder, error) {
	var out []model.TrainingOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
