package repository

import (
	"context"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/battle"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// TxManager runs a function inside a database transaction. Repositories pick
// up the transaction from the context, so the same repository methods work
// inside and outside WithinTx.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string, tribe catalog.Tribe) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// VillageRepository defines village data operations.
type VillageRepository interface {
	Create(ctx context.Context, userID, name string, x, y int, isCapital bool) (*model.Village, error)
	FindByID(ctx context.Context, id string) (*model.Village, error)
	FindByCoordinates(ctx context.Context, x, y int) (*model.Village, error)
	ListByUser(ctx context.Context, userID string) ([]model.Village, error)
	FindInRange(ctx context.Context, xMin, xMax, yMin, yMax int) ([]model.VillageMapInfo, error)
	Rename(ctx context.Context, id, name string) error
	// Lock takes FOR UPDATE row locks on the given villages in ascending id
	// order. Only meaningful inside WithinTx.
	Lock(ctx context.Context, ids ...string) error
	// SetResources writes the resource amounts and resources_updated_at.
	SetResources(ctx context.Context, id string, res catalog.Resources, updatedAt time.Time) error
	// Deduct subtracts cost if every resource suffices, atomically. Returns
	// false when the village cannot afford it.
	Deduct(ctx context.Context, id string, cost catalog.Resources) (bool, error)
	// Credit adds resources, clamped to the village's storage caps.
	Credit(ctx context.Context, id string, res catalog.Resources) error
	SetStorageCapacity(ctx context.Context, id string, warehouse, granary int) error
	AddPopulation(ctx context.Context, id string, delta int) error
	UpdateLoyalty(ctx context.Context, id string, loyalty int) error
	TransferOwnership(ctx context.Context, id, newUserID string) error
	ListIDs(ctx context.Context) ([]string, error)
}

// BuildingRepository defines building data operations.
type BuildingRepository interface {
	Create(ctx context.Context, villageID string, bt catalog.BuildingType, slot int, endsAt time.Time) (*model.Building, error)
	// Seed inserts a finished building at the given level, for new villages.
	Seed(ctx context.Context, villageID string, bt catalog.BuildingType, slot, level int) (*model.Building, error)
	FindByVillage(ctx context.Context, villageID string) ([]model.Building, error)
	FindBySlot(ctx context.Context, villageID string, slot int) (*model.Building, error)
	StartUpgrade(ctx context.Context, id string, endsAt time.Time) error
	// Complete finishes a due upgrade: level+1, is_upgrading cleared. Returns
	// false when the building was not upgrading or not yet due, making replays
	// no-ops.
	Complete(ctx context.Context, id string, now time.Time) (bool, error)
	SetLevel(ctx context.Context, id string, level int) error
	Delete(ctx context.Context, id string) error
	FindDue(ctx context.Context, now time.Time) ([]model.Building, error)
	ListUpgrading(ctx context.Context, villageID string) ([]model.Building, error)
}

// TroopRepository defines troop pool, queue, and definition operations.
type TroopRepository interface {
	AllDefinitions(ctx context.Context) ([]catalog.UnitStats, error)
	FindByVillage(ctx context.Context, villageID string) ([]model.Troop, error)
	// Add upserts count and in_village by delta (both increase).
	Add(ctx context.Context, villageID string, tt catalog.TroopType, count int) error
	// Remove moves troops out of the village garrison (in_village decreases,
	// count stays).
	Remove(ctx context.Context, villageID string, tt catalog.TroopType, count int) error
	// Return brings troops back into the garrison.
	Return(ctx context.Context, villageID string, tt catalog.TroopType, count int) error
	// Kill removes garrisoned troops permanently (both columns decrease).
	Kill(ctx context.Context, villageID string, tt catalog.TroopType, count int) error
	// Discharge removes troops that died away from home (count decreases,
	// in_village stays).
	Discharge(ctx context.Context, villageID string, tt catalog.TroopType, count int) error
	CropUpkeep(ctx context.Context, villageID string) (int, error)

	CreateOrder(ctx context.Context, villageID string, tt catalog.TroopType, count, perUnitSec int, startsAt, endsAt time.Time) (*model.TrainingOrder, error)
	FindOrder(ctx context.Context, id string) (*model.TrainingOrder, error)
	OrdersByVillage(ctx context.Context, villageID string) ([]model.TrainingOrder, error)
	// LastOrderEnd returns the latest ends_at in the village queue, or zero
	// time when the queue is empty.
	LastOrderEnd(ctx context.Context, villageID string) (time.Time, error)
	UpdateOrder(ctx context.Context, id string, count int, startedAt time.Time) error
	DeleteOrder(ctx context.Context, id string) error
	// OrdersStarted returns orders whose started_at has passed, for partial
	// completion draining.
	OrdersStarted(ctx context.Context, now time.Time) ([]model.TrainingOrder, error)
}

// ArmyRepository defines army movement data operations.
type ArmyRepository interface {
	Create(ctx context.Context, a *model.Army) (*model.Army, error)
	FindByID(ctx context.Context, id string) (*model.Army, error)
	FindArrived(ctx context.Context, now time.Time) ([]model.Army, error)
	ListOutgoing(ctx context.Context, villageID string) ([]model.Army, error)
	ListIncoming(ctx context.Context, villageID string) ([]model.Army, error)
	ListStationedAt(ctx context.Context, villageID string) ([]model.Army, error)
	ListSupportSent(ctx context.Context, playerID string) ([]model.Army, error)
	// SetReturning flips the army homeward with surviving troops and loot.
	SetReturning(ctx context.Context, id string, troops battle.Troops, loot catalog.Resources, returnsAt time.Time, reportID string) error
	SetStationed(ctx context.Context, id string) error
	// StartRecall turns a stationed army into a returning one.
	StartRecall(ctx context.Context, id string, returnsAt time.Time) error
	UpdateStationedTroops(ctx context.Context, id string, troops battle.Troops) error
	Delete(ctx context.Context, id string) error
}

// ReportRepository defines battle and scout report operations.
type ReportRepository interface {
	CreateBattleReport(ctx context.Context, r *model.BattleReport) (*model.BattleReport, error)
	FindBattleReport(ctx context.Context, id string) (*model.BattleReport, error)
	ListBattleReports(ctx context.Context, playerID string) ([]model.BattleReport, error)
	MarkBattleReportRead(ctx context.Context, id, playerID string) error
	CreateScoutReport(ctx context.Context, r *model.ScoutReport) (*model.ScoutReport, error)
	FindScoutReport(ctx context.Context, id string) (*model.ScoutReport, error)
	ListScoutReports(ctx context.Context, playerID string) ([]model.ScoutReport, error)
	MarkScoutReportRead(ctx context.Context, id, playerID string) error
	UnreadCounts(ctx context.Context, playerID string) (*model.UnreadCounts, error)
}
