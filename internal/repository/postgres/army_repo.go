package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/battle"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// ArmyRepo handles army movement database operations. Troop compositions and
// carried loot are stored as JSONB.
type ArmyRepo struct {
	db *sql.DB
}

// NewArmyRepo creates an ArmyRepo.
func NewArmyRepo(db *sql.DB) *ArmyRepo {
	return &ArmyRepo{db: db}
}

const armyColumns = `id, player_id, from_village_id, to_x, to_y, to_village_id, mission,
	troops, resources, departed_at, arrives_at, returns_at, is_returning, is_stationed,
	battle_report_id, created_at`

func scanArmy(row rowScanner) (*model.Army, error) {
	var a model.Army
	var toVillage, reportID sql.NullString
	var returnsAt sql.NullTime
	var troopsJSON, resourcesJSON []byte
	err := row.Scan(&a.ID, &a.PlayerID, &a.FromVillageID, &a.ToX, &a.ToY, &toVillage, &a.Mission,
		&troopsJSON, &resourcesJSON, &a.DepartedAt, &a.ArrivesAt, &returnsAt, &a.IsReturning, &a.IsStationed,
		&reportID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.ToVillageID = toVillage.String
	a.BattleReportID = reportID.String
	if returnsAt.Valid {
		a.ReturnsAt = &returnsAt.Time
	}
	if err := json.Unmarshal(troopsJSON, &a.Troops); err != nil {
		return nil, fmt.Errorf("decode army troops: %w", err)
	}
	if err := json.Unmarshal(resourcesJSON, &a.Resources); err != nil {
		return nil, fmt.Errorf("decode army resources: %w", err)
	}
	return &a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a dispatched army.
func (r *ArmyRepo) Create(ctx context.Context, a *model.Army) (*model.Army, error) {
	troopsJSON, err := json.Marshal(a.Troops)
	if err != nil {
		return nil, fmt.Errorf("encode army troops: %w", err)
	}
	resourcesJSON, err := json.Marshal(a.Resources)
	if err != nil {
		return nil, fmt.Errorf("encode army resources: %w", err)
	}
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO armies (player_id, from_village_id, to_x, to_y, to_village_id, mission,
		                     troops, resources, departed_at, arrives_at, returns_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+armyColumns,
		a.PlayerID, a.FromVillageID, a.ToX, a.ToY, nullable(a.ToVillageID), a.Mission,
		troopsJSON, resourcesJSON, a.DepartedAt, a.ArrivesAt, a.ReturnsAt)
	out, err := scanArmy(row)
	if err != nil {
		return nil, fmt.Errorf("create army: %w", err)
	}
	return out, nil
}

// FindByID looks up an army by id.
func (r *ArmyRepo) FindByID(ctx context.Context, id string) (*model.Army, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+armyColumns+` FROM armies WHERE id = $1`, id)
	a, err := scanArmy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find army by id: %w", err)
	}
	return a, nil
}

// FindArrived returns armies whose march has finished: outbound armies past
// arrives_at and returning armies past returns_at. Stationed armies sit still.
func (r *ArmyRepo) FindArrived(ctx context.Context, now time.Time) ([]model.Army, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+armyColumns+` FROM armies
		 WHERE NOT is_stationed
		   AND ((NOT is_returning AND arrives_at <= $1) OR (is_returning AND returns_at <= $1))
		 ORDER BY arrives_at`, now)
	if err != nil {
		return nil, fmt.Errorf("find arrived armies: %w", err)
	}
	defer rows.Close()
	return collectArmies(rows)
}

// ListOutgoing returns armies sent from a village that are still away.
func (r *ArmyRepo) ListOutgoing(ctx context.Context, villageID string) ([]model.Army, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+armyColumns+` FROM armies WHERE from_village_id = $1 ORDER BY arrives_at`, villageID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing armies: %w", err)
	}
	defer rows.Close()
	return collectArmies(rows)
}

// ListIncoming returns armies heading toward a village.
func (r *ArmyRepo) ListIncoming(ctx context.Context, villageID string) ([]model.Army, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+armyColumns+` FROM armies
		 WHERE to_village_id = $1 AND NOT is_returning AND NOT is_stationed
		 ORDER BY arrives_at`, villageID)
	if err != nil {
		return nil, fmt.Errorf("list incoming armies: %w", err)
	}
	defer rows.Close()
	return collectArmies(rows)
}

// ListStationedAt returns support armies garrisoned at a village.
func (r *ArmyRepo) ListStationedAt(ctx context.Context, villageID string) ([]model.Army, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+armyColumns+` FROM armies WHERE to_village_id = $1 AND is_stationed ORDER BY created_at`, villageID)
	if err != nil {
		return nil, fmt.Errorf("list stationed armies: %w", err)
	}
	defer rows.Close()
	return collectArmies(rows)
}

// ListSupportSent returns a player's support armies stationed elsewhere.
func (r *ArmyRepo) ListSupportSent(ctx context.Context, playerID string) ([]model.Army, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+armyColumns+` FROM armies WHERE player_id = $1 AND is_stationed ORDER BY created_at`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list support sent: %w", err)
	}
	defer rows.Close()
	return collectArmies(rows)
}

// SetReturning flips the army homeward carrying its survivors and loot.
func (r *ArmyRepo) SetReturning(ctx context.Context, id string, troops battle.Troops, loot catalog.Resources, returnsAt time.Time, reportID string) error {
	troopsJSON, err := json.Marshal(troops)
	if err != nil {
		return fmt.Errorf("encode surviving troops: %w", err)
	}
	lootJSON, err := json.Marshal(loot)
	if err != nil {
		return fmt.Errorf("encode loot: %w", err)
	}
	_, err = q(ctx, r.db).ExecContext(ctx,
		`UPDATE armies
		 SET is_returning = TRUE, troops = $1, resources = $2, returns_at = $3, battle_report_id = $4
		 WHERE id = $5`,
		troopsJSON, lootJSON, returnsAt, nullable(reportID), id)
	if err != nil {
		return fmt.Errorf("set returning: %w", err)
	}
	return nil
}

// SetStationed parks a support army at its destination.
func (r *ArmyRepo) SetStationed(ctx context.Context, id string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE armies SET is_stationed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set stationed: %w", err)
	}
	return nil
}

// StartRecall turns a stationed army into a returning one.
func (r *ArmyRepo) StartRecall(ctx context.Context, id string, returnsAt time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE armies SET is_stationed = FALSE, is_returning = TRUE, returns_at = $1 WHERE id = $2`,
		returnsAt, id)
	if err != nil {
		return fmt.Errorf("start recall: %w", err)
	}
	return nil
}

// UpdateStationedTroops rewrites a stationed army after casualties.
func (r *ArmyRepo) UpdateStationedTroops(ctx context.Context, id string, troops battle.Troops) error {
	troopsJSON, err := json.Marshal(troops)
	if err != nil {
		return fmt.Errorf("encode stationed troops: %w", err)
	}
	_, err = q(ctx, r.db).ExecContext(ctx,
		`UPDATE armies SET troops = $1 WHERE id = $2`, troopsJSON, id)
	if err != nil {
		return fmt.Errorf("update stationed troops: %w", err)
	}
	return nil
}

// Delete removes an army that has finished its journey.
func (r *ArmyRepo) Delete(ctx context.Context, id string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM armies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete army: %w", err)
	}
	return nil
}

func collectArmies(rows *sql.Rows) ([]model.Army, error) {
	var out []model.Army
	for rows.Next() {
		a, err := scanArmy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan army: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
