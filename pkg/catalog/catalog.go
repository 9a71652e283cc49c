// Package catalog holds the immutable reference data of the game world:
// building and troop type enumerations, cost and production curves, and
// storage capacity formulas. Everything here is pure; troop base stats are
// loaded from the database at boot and treated as read-only afterwards.
package catalog

import "math"

// BuildingType identifies one of the constructible building kinds.
type BuildingType string

const (
	// Village buildings
	MainBuilding BuildingType = "main_building"
	Warehouse    BuildingType = "warehouse"
	Granary      BuildingType = "granary"
	Barracks     BuildingType = "barracks"
	Stable       BuildingType = "stable"
	Workshop     BuildingType = "workshop"
	Academy      BuildingType = "academy"
	Smithy       BuildingType = "smithy"
	RallyPoint   BuildingType = "rally_point"
	Market       BuildingType = "market"
	Embassy      BuildingType = "embassy"
	TownHall     BuildingType = "town_hall"
	Residence    BuildingType = "residence"
	Palace       BuildingType = "palace"
	Treasury     BuildingType = "treasury"
	TradeOffice  BuildingType = "trade_office"
	Wall         BuildingType = "wall"
	// Resource fields
	Woodcutter BuildingType = "woodcutter"
	ClayPit    BuildingType = "clay_pit"
	IronMine   BuildingType = "iron_mine"
	CropField  BuildingType = "crop_field"
)

// MaxBuildingLevel applies to every building type.
const MaxBuildingLevel = 20

// BaseStorageCapacity is the storage every village starts with, before any
// warehouse or granary is built.
const BaseStorageCapacity = 800

// AllBuildingTypes lists every building type, village buildings first.
var AllBuildingTypes = []BuildingType{
	MainBuilding, Warehouse, Granary, Barracks, Stable, Workshop, Academy,
	Smithy, RallyPoint, Market, Embassy, TownHall, Residence, Palace,
	Treasury, TradeOffice, Wall,
	Woodcutter, ClayPit, IronMine, CropField,
}

// IsResourceField reports whether the building produces resources.
func (b BuildingType) IsResourceField() bool {
	switch b {
	case Woodcutter, ClayPit, IronMine, CropField:
		return true
	}
	return false
}

// Valid reports whether b is a known building type.
func (b BuildingType) Valid() bool {
	for _, t := range AllBuildingTypes {
		if t == b {
			return true
		}
	}
	return false
}

// Resources is a bundle of the four resource kinds.
type Resources struct {
	Wood int `json:"wood"`
	Clay int `json:"clay"`
	Iron int `json:"iron"`
	Crop int `json:"crop"`
}

// Total returns the sum of all four resources.
func (r Resources) Total() int {
	return r.Wood + r.Clay + r.Iron + r.Crop
}

// Add returns the componentwise sum of r and other.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		Wood: r.Wood + other.Wood,
		Clay: r.Clay + other.Clay,
		Iron: r.Iron + other.Iron,
		Crop: r.Crop + other.Crop,
	}
}

// Scale returns r multiplied componentwise by factor, truncated toward zero.
func (r Resources) Scale(factor float64) Resources {
	return Resources{
		Wood: int(float64(r.Wood) * factor),
		Clay: int(float64(r.Clay) * factor),
		Iron: int(float64(r.Iron) * factor),
		Crop: int(float64(r.Crop) * factor),
	}
}

// Covers reports whether r is componentwise >= cost.
func (r Resources) Covers(cost Resources) bool {
	return r.Wood >= cost.Wood && r.Clay >= cost.Clay && r.Iron >= cost.Iron && r.Crop >= cost.Crop
}

// Cost is the price of a build or train operation, including time.
type Cost struct {
	Resources
	TimeSeconds int `json:"time_seconds"`
}

var baseCosts = map[BuildingType]Cost{
	MainBuilding: {Resources{Wood: 70, Clay: 40, Iron: 60, Crop: 20}, 300},
	Warehouse:    {Resources{Wood: 130, Clay: 160, Iron: 90, Crop: 40}, 400},
	Granary:      {Resources{Wood: 80, Clay: 100, Iron: 70, Crop: 20}, 350},
	Barracks:     {Resources{Wood: 210, Clay: 140, Iron: 260, Crop: 120}, 600},
	RallyPoint:   {Resources{Wood: 110, Clay: 160, Iron: 90, Crop: 70}, 250},
	Market:       {Resources{Wood: 80, Clay: 70, Iron: 120, Crop: 70}, 400},
	Woodcutter:   {Resources{Wood: 40, Clay: 100, Iron: 50, Crop: 60}, 260},
	ClayPit:      {Resources{Wood: 80, Clay: 40, Iron: 80, Crop: 50}, 220},
	IronMine:     {Resources{Wood: 100, Clay: 80, Iron: 30, Crop: 60}, 450},
	CropField:    {Resources{Wood: 70, Clay: 90, Iron: 70, Crop: 20}, 150},
}

var defaultBaseCost = Cost{Resources{Wood: 100, Clay: 100, Iron: 100, Crop: 50}, 300}

// BaseCost returns the level-1 cost of a building type.
func (b BuildingType) BaseCost() Cost {
	if c, ok := baseCosts[b]; ok {
		return c
	}
	return defaultBaseCost
}

// CostAtLevel returns the cost to bring a building to the given level.
// Each level multiplies the base cost by 1.28, truncated to integers.
func (b BuildingType) CostAtLevel(level int) Cost {
	base := b.BaseCost()
	mult := math.Pow(1.28, float64(level-1))
	return Cost{
		Resources: Resources{
			Wood: int(float64(base.Wood) * mult),
			Clay: int(float64(base.Clay) * mult),
			Iron: int(float64(base.Iron) * mult),
			Crop: int(float64(base.Crop) * mult),
		},
		TimeSeconds: int(float64(base.TimeSeconds) * mult),
	}
}

// ProductionPerHour returns the hourly resource output of a resource field at
// the given level. Non-field buildings produce nothing. The curve is
// 3 * 1.63^(L-1) * 1.0034^((L-1)^2), truncated; a level-0 field still yields a
// trickle of 1 per hour.
func (b BuildingType) ProductionPerHour(level int) int {
	if !b.IsResourceField() {
		return 0
	}
	l := float64(level - 1)
	return int(3.0 * math.Pow(1.63, l) * math.Pow(1.0034, l*l))
}

// StorageCapacity returns the storage contribution of a Warehouse or Granary
// at the given level: 400 * 1.2^level, with level 0 contributing the 800 base.
func (b BuildingType) StorageCapacity(level int) int {
	if b != Warehouse && b != Granary {
		return 0
	}
	if level == 0 {
		return BaseStorageCapacity
	}
	return int(400.0 * math.Pow(1.2, float64(level)))
}

// Requirement is a prerequisite building at a minimum level.
type Requirement struct {
	Building BuildingType
	Level    int
}

var buildPrereqs = map[BuildingType][]Requirement{
	Barracks:    {{MainBuilding, 1}},
	Academy:     {{MainBuilding, 3}, {Barracks, 3}},
	Stable:      {{Barracks, 3}, {Academy, 5}},
	Workshop:    {{Academy, 10}},
	Smithy:      {{MainBuilding, 3}, {Academy, 1}},
	Market:      {{MainBuilding, 3}, {Warehouse, 1}, {Granary, 1}},
	TownHall:    {{MainBuilding, 10}, {Academy, 10}},
	Residence:   {{MainBuilding, 5}},
	Palace:      {{MainBuilding, 5}, {Embassy, 1}},
	Treasury:    {{MainBuilding, 10}},
	TradeOffice: {{Market, 10}, {Stable, 10}},
}

// Prerequisites returns the buildings required before b can be constructed.
func (b BuildingType) Prerequisites() []Requirement {
	return buildPrereqs[b]
}
