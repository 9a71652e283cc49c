package catalog

// Tribe groups troop types by their culture of origin.
type Tribe string

const (
	TribePhasuttha Tribe = "phasuttha"
	TribeNava      Tribe = "nava"
	TribeKiri      Tribe = "kiri"
	TribeSpecial   Tribe = "special"
)

// TroopType identifies one of the trainable unit kinds.
type TroopType string

const (
	// Phasuttha (mainland)
	Infantry     TroopType = "infantry"
	Spearman     TroopType = "spearman"
	WarElephant  TroopType = "war_elephant"
	BuffaloWagon TroopType = "buffalo_wagon"
	// Nava (maritime)
	KrisWarrior  TroopType = "kris_warrior"
	SeaDiver     TroopType = "sea_diver"
	WarPrahu     TroopType = "war_prahu"
	MerchantShip TroopType = "merchant_ship"
	// Kiri (highland)
	Crossbowman     TroopType = "crossbowman"
	MountainWarrior TroopType = "mountain_warrior"
	HighlandPony    TroopType = "highland_pony"
	TrapMaker       TroopType = "trap_maker"
	// Special units
	SwampDragon         TroopType = "swamp_dragon"
	LocustSwarm         TroopType = "locust_swarm"
	BattleDuck          TroopType = "battle_duck"
	PortugueseMusketeer TroopType = "portuguese_musketeer"
	// Chief units
	RoyalAdvisor TroopType = "royal_advisor"
	HarborMaster TroopType = "harbor_master"
	ElderChief   TroopType = "elder_chief"
)

// UnitStats is the immutable per-type stat block from the troop_definitions
// table.
type UnitStats struct {
	Type             TroopType    `json:"troop_type"`
	Tribe            Tribe        `json:"tribe"`
	Name             string       `json:"name"`
	Attack           int          `json:"attack"`
	DefenseInfantry  int          `json:"defense_infantry"`
	DefenseCavalry   int          `json:"defense_cavalry"`
	Speed            int          `json:"speed"` // fields per hour
	CarryCapacity    int          `json:"carry_capacity"`
	CropUpkeep       int          `json:"crop_consumption"`
	TrainSeconds     int          `json:"training_time_seconds"`
	Cost             Resources    `json:"cost"`
	RequiredBuilding BuildingType `json:"required_building"`
	RequiredLevel    int          `json:"required_building_level"`
	LoyaltyReduction int          `json:"loyalty_reduction"`
	Cavalry          bool         `json:"is_cavalry"`
	Chief            bool         `json:"is_chief"`
}

// Roster maps every troop type to its stats. Loaded at boot, read-only after.
type Roster map[TroopType]UnitStats

// IsCavalry reports whether the troop type counts as cavalry in combat.
func (t TroopType) IsCavalry() bool {
	switch t {
	case WarElephant, BuffaloWagon, HighlandPony, WarPrahu, MerchantShip:
		return true
	}
	return false
}

// IsChief reports whether the troop type can reduce village loyalty.
func (t TroopType) IsChief() bool {
	switch t {
	case RoyalAdvisor, HarborMaster, ElderChief:
		return true
	}
	return false
}

// TribeOf returns the tribe the troop type belongs to.
func (t TroopType) TribeOf() Tribe {
	switch t {
	case Infantry, Spearman, WarElephant, BuffaloWagon, RoyalAdvisor:
		return TribePhasuttha
	case KrisWarrior, SeaDiver, WarPrahu, MerchantShip, HarborMaster:
		return TribeNava
	case Crossbowman, MountainWarrior, HighlandPony, TrapMaker, ElderChief:
		return TribeKiri
	}
	return TribeSpecial
}

// Mission is the purpose of an army dispatch.
type Mission string

const (
	MissionRaid    Mission = "raid"
	MissionAttack  Mission = "attack"
	MissionConquer Mission = "conquer"
	MissionSupport Mission = "support"
	MissionScout   Mission = "scout"
	MissionSettle  Mission = "settle"
)

// Valid reports whether m is a known mission.
func (m Mission) Valid() bool {
	switch m {
	case MissionRaid, MissionAttack, MissionConquer, MissionSupport, MissionScout, MissionSettle:
		return true
	}
	return false
}

// IsHostile reports whether the mission may not target the sender's own village.
func (m Mission) IsHostile() bool {
	switch m {
	case MissionRaid, MissionAttack, MissionConquer, MissionScout:
		return true
	}
	return false
}

// Returns reports whether the army travels home after arrival. Settlers found
// a new village and are consumed.
func (m Mission) Returns() bool {
	return m != MissionSettle
}
