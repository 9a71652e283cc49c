package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// ReportRepo handles battle and scout report database operations.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo creates a ReportRepo.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

const battleReportColumns = `id, attacker_player_id, defender_player_id, attacker_village_id,
	defender_village_id, mission, attacker_troops, defender_troops, attacker_losses,
	defender_losses, resources_stolen, loyalty_damage, village_conquered, winner,
	occurred_at, read_by_attacker, read_by_defender, created_at`

func scanBattleReport(row rowScanner) (*model.BattleReport, error) {
	var br model.BattleReport
	var defenderPlayer, defenderVillage sql.NullString
	var attackerTroops, defenderTroops, attackerLosses, defenderLosses, stolen []byte
	err := row.Scan(&br.ID, &br.AttackerPlayerID, &defenderPlayer, &br.AttackerVillageID,
		&defenderVillage, &br.Mission, &attackerTroops, &defenderTroops, &attackerLosses,
		&defenderLosses, &stolen, &br.LoyaltyDamage, &br.VillageConquered, &br.Winner,
		&br.OccurredAt, &br.ReadByAttacker, &br.ReadByDefender, &br.CreatedAt)
	if err != nil {
		return nil, err
	}
	br.DefenderPlayerID = defenderPlayer.String
	br.DefenderVillageID = defenderVillage.String
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{attackerTroops, &br.AttackerTroops},
		{defenderTroops, &br.DefenderTroops},
		{attackerLosses, &br.AttackerLosses},
		{defenderLosses, &br.DefenderLosses},
		{stolen, &br.ResourcesStolen},
	} {
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, fmt.Errorf("decode battle report field: %w", err)
		}
	}
	return &br, nil
}

// CreateBattleReport stores a resolved battle.
func (r *ReportRepo) CreateBattleReport(ctx context.Context, br *model.BattleReport) (*model.BattleReport, error) {
	encoded := make([][]byte, 5)
	for i, v := range []any{br.AttackerTroops, br.DefenderTroops, br.AttackerLosses, br.DefenderLosses, br.ResourcesStolen} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode battle report field: %w", err)
		}
		encoded[i] = raw
	}
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO battle_reports (attacker_player_id, defender_player_id, attacker_village_id,
		     defender_village_id, mission, attacker_troops, defender_troops, attacker_losses,
		     defender_losses, resources_stolen, loyalty_damage, village_conquered, winner, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+battleReportColumns,
		br.AttackerPlayerID, nullable(br.DefenderPlayerID), br.AttackerVillageID,
		nullable(br.DefenderVillageID), br.Mission, encoded[0], encoded[1], encoded[2],
		encoded[3], encoded[4], br.LoyaltyDamage, br.VillageConquered, br.Winner, br.OccurredAt)
	out, err := scanBattleReport(row)
	if err != nil {
		return nil, fmt.Errorf("create battle report: %w", err)
	}
	return out, nil
}

// FindBattleReport looks up a battle report by id.
func (r *ReportRepo) FindBattleReport(ctx context.Context, id string) (*model.BattleReport, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+battleReportColumns+` FROM battle_reports WHERE id = $1`, id)
	br, err := scanBattleReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find battle report: %w", err)
	}
	return br, nil
}

// ListBattleReports returns reports where the player was attacker or defender,
// newest first.
func (r *ReportRepo) ListBattleReports(ctx context.Context, playerID string) ([]model.BattleReport, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+battleReportColumns+` FROM battle_reports
		 WHERE attacker_player_id = $1 OR defender_player_id = $1
		 ORDER BY occurred_at DESC LIMIT 100`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list battle reports: %w", err)
	}
	defer rows.Close()

	var out []model.BattleReport
	for rows.Next() {
		br, err := scanBattleReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battle report: %w", err)
		}
		out = append(out, *br)
	}
	return out, rows.Err()
}

// MarkBattleReportRead marks the report read for whichever side the player is on.
func (r *ReportRepo) MarkBattleReportRead(ctx context.Context, id, playerID string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE battle_reports
		 SET read_by_attacker = read_by_attacker OR attacker_player_id = $2,
		     read_by_defender = read_by_defender OR COALESCE(defender_player_id = $2, FALSE)
		 WHERE id = $1 AND (attacker_player_id = $2 OR defender_player_id = $2)`,
		id, playerID)
	if err != nil {
		return fmt.Errorf("mark battle report read: %w", err)
	}
	return nil
}

const scoutReportColumns = `id, attacker_player_id, defender_player_id, attacker_village_id,
	defender_village_id, success, scouts_sent, scouts_lost, defender_lost,
	scouted_resources, scouted_troops, occurred_at, read_by_attacker, read_by_defender, created_at`

func scanScoutReport(row rowScanner) (*model.ScoutReport, error) {
	var sr model.ScoutReport
	var defenderPlayer, defenderVillage sql.NullString
	var resources, troops []byte
	err := row.Scan(&sr.ID, &sr.AttackerPlayerID, &defenderPlayer, &sr.AttackerVillageID,
		&defenderVillage, &sr.Success, &sr.ScoutsSent, &sr.ScoutsLost, &sr.DefenderLost,
		&resources, &troops, &sr.OccurredAt, &sr.ReadByAttacker, &sr.ReadByDefender, &sr.CreatedAt)
	if err != nil {
		return nil, err
	}
	sr.DefenderPlayerID = defenderPlayer.String
	sr.DefenderVillageID = defenderVillage.String
	if len(resources) > 0 {
		var res catalog.Resources
		if err := json.Unmarshal(resources, &res); err != nil {
			return nil, fmt.Errorf("decode scouted resources: %w", err)
		}
		sr.ScoutedResources = &res
	}
	if len(troops) > 0 {
		if err := json.Unmarshal(troops, &sr.ScoutedTroops); err != nil {
			return nil, fmt.Errorf("decode scouted troops: %w", err)
		}
	}
	return &sr, nil
}

// CreateScoutReport stores a resolved scouting run.
func (r *ReportRepo) CreateScoutReport(ctx context.Context, sr *model.ScoutReport) (*model.ScoutReport, error) {
	var resources, troops []byte
	var err error
	if sr.ScoutedResources != nil {
		if resources, err = json.Marshal(sr.ScoutedResources); err != nil {
			return nil, fmt.Errorf("encode scouted resources: %w", err)
		}
	}
	if sr.ScoutedTroops != nil {
		if troops, err = json.Marshal(sr.ScoutedTroops); err != nil {
			return nil, fmt.Errorf("encode scouted troops: %w", err)
		}
	}
	row := q(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO scout_reports (attacker_player_id, defender_player_id, attacker_village_id,
		     defender_village_id, success, scouts_sent, scouts_lost, defender_lost,
		     scouted_resources, scouted_troops, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+scoutReportColumns,
		sr.AttackerPlayerID, nullable(sr.DefenderPlayerID), sr.AttackerVillageID,
		nullable(sr.DefenderVillageID), sr.Success, sr.ScoutsSent, sr.ScoutsLost, sr.DefenderLost,
		nullableBytes(resources), nullableBytes(troops), sr.OccurredAt)
	out, err := scanScoutReport(row)
	if err != nil {
		return nil, fmt.Errorf("create scout report: %w", err)
	}
	return out, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// FindScoutReport looks up a scout report by id.
func (r *ReportRepo) FindScoutReport(ctx context.Context, id string) (*model.ScoutReport, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+scoutReportColumns+` FROM scout_reports WHERE id = $1`, id)
	sr, err := scanScoutReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find scout report: %w", err)
	}
	return sr, nil
}

// ListScoutReports returns a player's scout reports, newest first.
func (r *ReportRepo) ListScoutReports(ctx context.Context, playerID string) ([]model.ScoutReport, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+scoutReportColumns+` FROM scout_reports
		 WHERE attacker_player_id = $1 OR defender_player_id = $1
		 ORDER BY occurred_at DESC LIMIT 100`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list scout reports: %w", err)
	}
	defer rows.Close()

	var out []model.ScoutReport
	for rows.Next() {
		sr, err := scanScoutReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scout report: %w", err)
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

// MarkScoutReportRead marks the report read for whichever side the player is on.
func (r *ReportRepo) MarkScoutReportRead(ctx context.Context, id, playerID string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE scout_reports
		 SET read_by_attacker = read_by_attacker OR attacker_player_id = $2,
		     read_by_defender = read_by_defender OR COALESCE(defender_player_id = $2, FALSE)
		 WHERE id = $1 AND (attacker_player_id = $2 OR defender_player_id = $2)`,
		id, playerID)
	if err != nil {
		return fmt.Errorf("mark scout report read: %w", err)
	}
	return nil
}

// UnreadCounts returns how many battle and scout reports the player has not
// read yet.
func (r *ReportRepo) UnreadCounts(ctx context.Context, playerID string) (*model.UnreadCounts, error) {
	var counts model.UnreadCounts
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM battle_reports
		    WHERE (attacker_player_id = $1 AND NOT read_by_attacker)
		       OR (defender_player_id = $1 AND NOT read_by_defender)),
		   (SELECT COUNT(*) FROM scout_reports
		    WHERE (attacker_player_id = $1 AND NOT read_by_attacker)
		       OR (defender_player_id = $1 AND NOT read_by_defender))`,
		playerID).Scan(&counts.Battle, &counts.Scout)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	counts.Total = counts.Battle + counts.Scout
	return &counts, nil
}
