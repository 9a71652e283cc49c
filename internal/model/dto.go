package model

import (
	"time"

	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// ProductionRates is the per-hour output of a village's resource fields.
type ProductionRates struct {
	WoodPerHour int `json:"wood_per_hour"`
	ClayPerHour int `json:"clay_per_hour"`
	IronPerHour int `json:"iron_per_hour"`
	CropPerHour int `json:"crop_per_hour"`
}

// VillageResponse is a village enriched with derived values for the API.
type VillageResponse struct {
	Village
	Production ProductionRates `json:"production"`
	CropUpkeep int             `json:"crop_upkeep"`
}

// VillageMapInfo is the public view of a village on the map.
type VillageMapInfo struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Population int    `json:"population"`
	PlayerName string `json:"player_name,omitempty"`
}

// MapTile is one cell of the map grid. Village is nil for empty tiles.
type MapTile struct {
	X       int             `json:"x"`
	Y       int             `json:"y"`
	Village *VillageMapInfo `json:"village,omitempty"`
}

// QueueStatus summarizes a village's training queue for the API.
type QueueStatus struct {
	Orders      []TrainingOrder `json:"orders"`
	CompletesAt *time.Time      `json:"completes_at,omitempty"`
}

// UnreadCounts holds per-kind unread report counts.
type UnreadCounts struct {
	Battle int `json:"battle"`
	Scout  int `json:"scout"`
	Total  int `json:"total"`
}

// TrainCost is the quoted price of a training order.
type TrainCost struct {
	Resources    catalog.Resources `json:"resources"`
	TotalSeconds int               `json:"total_seconds"`
}
