package model

import (
	"time"

	"github.com/nat-prohmpiriya/travillian-games/pkg/battle"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// User represents a registered player.
type User struct {
	ID          string        `json:"id"`
	Provider    string        `json:"provider"`
	ProviderID  string        `json:"provider_id"`
	DisplayName string        `json:"display_name"`
	AvatarURL   string        `json:"avatar_url,omitempty"`
	Tribe       catalog.Tribe `json:"tribe"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Village represents a village on the world map.
type Village struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	X                  int       `json:"x"`
	Y                  int       `json:"y"`
	IsCapital          bool      `json:"is_capital"`
	Wood               int       `json:"wood"`
	Clay               int       `json:"clay"`
	Iron               int       `json:"iron"`
	Crop               int       `json:"crop"`
	WarehouseCapacity  int       `json:"warehouse_capacity"`
	GranaryCapacity    int       `json:"granary_capacity"`
	Population         int       `json:"population"`
	CulturePoints      int       `json:"culture_points"`
	Loyalty            int       `json:"loyalty"`
	ResourcesUpdatedAt time.Time `json:"resources_updated_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Stock returns the village's current resources as a bundle.
func (v *Village) Stock() catalog.Resources {
	return catalog.Resources{Wood: v.Wood, Clay: v.Clay, Iron: v.Iron, Crop: v.Crop}
}

// Building represents one constructed building in a village slot.
type Building struct {
	ID            string               `json:"id"`
	VillageID     string               `json:"village_id"`
	Type          catalog.BuildingType `json:"building_type"`
	Level         int                  `json:"level"`
	SlotPosition  int                  `json:"slot_position"`
	IsUpgrading   bool                 `json:"is_upgrading"`
	UpgradeEndsAt *time.Time           `json:"upgrade_ends_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Troop is a village's pool of one troop type. Count is the total owned by
// the village; InVillage is the part currently garrisoned at home.
type Troop struct {
	ID        string            `json:"id"`
	VillageID string            `json:"village_id"`
	Type      catalog.TroopType `json:"troop_type"`
	Count     int               `json:"count"`
	InVillage int               `json:"in_village"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TrainingOrder is one entry in a village's training queue.
type TrainingOrder struct {
	ID         string            `json:"id"`
	VillageID  string            `json:"village_id"`
	Type       catalog.TroopType `json:"troop_type"`
	Count      int               `json:"count"`
	PerUnitSec int               `json:"per_unit_seconds"`
	StartedAt  time.Time         `json:"started_at"`
	EndsAt     time.Time         `json:"ends_at"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Army represents troops in motion or stationed away from home.
type Army struct {
	ID             string            `json:"id"`
	PlayerID       string            `json:"player_id"`
	FromVillageID  string            `json:"from_village_id"`
	ToX            int               `json:"to_x"`
	ToY            int               `json:"to_y"`
	ToVillageID    string            `json:"to_village_id,omitempty"`
	Mission        catalog.Mission   `json:"mission"`
	Troops         battle.Troops     `json:"troops"`
	Resources      catalog.Resources `json:"resources"`
	DepartedAt     time.Time         `json:"departed_at"`
	ArrivesAt      time.Time         `json:"arrives_at"`
	ReturnsAt      *time.Time        `json:"returns_at,omitempty"`
	IsReturning    bool              `json:"is_returning"`
	IsStationed    bool              `json:"is_stationed"`
	BattleReportID string            `json:"battle_report_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// BattleReport records the outcome of a hostile arrival.
type BattleReport struct {
	ID                string            `json:"id"`
	AttackerPlayerID  string            `json:"attacker_player_id"`
	DefenderPlayerID  string            `json:"defender_player_id,omitempty"`
	AttackerVillageID string            `json:"attacker_village_id"`
	DefenderVillageID string            `json:"defender_village_id,omitempty"`
	Mission           catalog.Mission   `json:"mission"`
	AttackerTroops    battle.Troops     `json:"attacker_troops"`
	DefenderTroops    battle.Troops     `json:"defender_troops"`
	AttackerLosses    battle.Troops     `json:"attacker_losses"`
	DefenderLosses    battle.Troops     `json:"defender_losses"`
	ResourcesStolen   catalog.Resources `json:"resources_stolen"`
	LoyaltyDamage     int               `json:"loyalty_damage"`
	VillageConquered  bool              `json:"village_conquered"`
	Winner            string            `json:"winner"` // attacker, defender, draw
	OccurredAt        time.Time         `json:"occurred_at"`
	ReadByAttacker    bool              `json:"read_by_attacker"`
	ReadByDefender    bool              `json:"read_by_defender"`
	CreatedAt         time.Time         `json:"created_at"`
}

// ReadBy reports whether the given side has read the report.
func (r *BattleReport) ReadBy(isAttacker bool) bool {
	if isAttacker {
		return r.ReadByAttacker
	}
	return r.ReadByDefender
}

// ScoutReport records the outcome of a scouting run. Target intel is only
// present when the run succeeded.
type ScoutReport struct {
	ID                string             `json:"id"`
	AttackerPlayerID  string             `json:"attacker_player_id"`
	DefenderPlayerID  string             `json:"defender_player_id,omitempty"`
	AttackerVillageID string             `json:"attacker_village_id"`
	DefenderVillageID string             `json:"defender_village_id,omitempty"`
	Success           bool               `json:"success"`
	ScoutsSent        int                `json:"scouts_sent"`
	ScoutsLost        int                `json:"scouts_lost"`
	DefenderLost      int                `json:"defender_lost"`
	ScoutedResources  *catalog.Resources `json:"scouted_resources,omitempty"`
	ScoutedTroops     battle.Troops      `json:"scouted_troops,omitempty"`
	OccurredAt        time.Time          `json:"occurred_at"`
	ReadByAttacker    bool               `json:"read_by_attacker"`
	ReadByDefender    bool               `json:"read_by_defender"`
	CreatedAt         time.Time          `json:"created_at"`
}
