package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// BuildingService manages construction, upgrades, and demolition.
type BuildingService struct {
	tx        repository.TxManager
	villages  repository.VillageRepository
	buildings repository.BuildingRepository
	resources *ResourceService
	broadcast Broadcaster
	now       func() time.Time
}

// NewBuildingService creates a BuildingService.
func NewBuildingService(tx repository.TxManager, villages repository.VillageRepository, buildings repository.BuildingRepository, resources *ResourceService, broadcast Broadcaster) *BuildingService {
	return &BuildingService{
		tx:        tx,
		villages:  villages,
		buildings: buildings,
		resources: resources,
		broadcast: broadcast,
		now:       time.Now,
	}
}

// List returns a village's buildings.
func (s *BuildingService) List(ctx context.Context, userID, villageID string) ([]model.Building, error) {
	if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
		return nil, err
	}
	return s.buildings.FindByVillage(ctx, villageID)
}

// Queue returns a village's in-progress constructions, soonest first.
func (s *BuildingService) Queue(ctx context.Context, userID, villageID string) ([]model.Building, error) {
	if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
		return nil, err
	}
	return s.buildings.ListUpgrading(ctx, villageID)
}

// Build starts construction of a new building in an empty slot. The building
// is created at level 0 with its first upgrade running; completion brings it
// to level 1.
func (s *BuildingService) Build(ctx context.Context, userID, villageID string, slot int, bt catalog.BuildingType) (*model.Building, error) {
	if !bt.Valid() {
		return nil, ErrInvalidBuildingType
	}

	var built *model.Building
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, villageID); err != nil {
			return err
		}
		if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
			return err
		}
		if _, err := s.resources.Refresh(ctx, villageID); err != nil {
			return err
		}

		existing, err := s.buildings.FindBySlot(ctx, villageID, slot)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrSlotOccupied
		}

		all, err := s.buildings.FindByVillage(ctx, villageID)
		if err != nil {
			return err
		}
		if !prereqsMet(bt, all) {
			return ErrPrereqNotMet
		}

		cost := bt.CostAtLevel(1)
		ok, err := s.villages.Deduct(ctx, villageID, cost.Resources)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientResources
		}

		endsAt := s.now().Add(time.Duration(cost.TimeSeconds) * time.Second)
		built, err = s.buildings.Create(ctx, villageID, bt, slot, endsAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return built, nil
}

// Upgrade starts the next level of the building in a slot.
func (s *BuildingService) Upgrade(ctx context.Context, userID, villageID string, slot int) (*model.Building, error) {
	var upgraded *model.Building
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, villageID); err != nil {
			return err
		}
		if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
			return err
		}
		if _, err := s.resources.Refresh(ctx, villageID); err != nil {
			return err
		}

		b, err := s.buildings.FindBySlot(ctx, villageID, slot)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBuildingNotFound
		}
		if b.IsUpgrading {
			return ErrAlreadyUpgrading
		}
		if b.Level >= catalog.MaxBuildingLevel {
			return ErrMaxLevel
		}

		cost := b.Type.CostAtLevel(b.Level + 1)
		ok, err := s.villages.Deduct(ctx, villageID, cost.Resources)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientResources
		}

		endsAt := s.now().Add(time.Duration(cost.TimeSeconds) * time.Second)
		if err := s.buildings.StartUpgrade(ctx, b.ID, endsAt); err != nil {
			return err
		}
		b.IsUpgrading = true
		b.UpgradeEndsAt = &endsAt
		upgraded = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return upgraded, nil
}

// Demolish tears down the building in a slot, freeing it for new
// construction. The main building is immovable once built. No resources are
// refunded.
func (s *BuildingService) Demolish(ctx context.Context, userID, villageID string, slot int) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, villageID); err != nil {
			return err
		}
		if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
			return err
		}

		b, err := s.buildings.FindBySlot(ctx, villageID, slot)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBuildingNotFound
		}
		if b.IsUpgrading {
			return ErrAlreadyUpgrading
		}
		if b.Type == catalog.MainBuilding && b.Level > 0 {
			return ErrCannotDemolish
		}

		if err := s.buildings.Delete(ctx, b.ID); err != nil {
			return err
		}
		// Each completed level housed one point of population.
		if b.Level > 0 {
			if err := s.villages.AddPopulation(ctx, villageID, -b.Level); err != nil {
				return err
			}
		}
		if b.Type == catalog.Warehouse || b.Type == catalog.Granary {
			return s.resources.RecomputeStorage(ctx, villageID)
		}
		return nil
	})
}

// CompleteDue finishes every construction whose deadline has passed. Called by
// the tick scheduler; per-building failures are logged and skipped.
func (s *BuildingService) CompleteDue(ctx context.Context) {
	now := s.now()
	due, err := s.buildings.FindDue(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Build queue: listing due buildings failed")
		return
	}
	for _, b := range due {
		if err := s.completeOne(ctx, b, now); err != nil {
			log.Error().Err(err).Str("buildingId", b.ID).Msg("Build queue: completion failed")
		}
	}
}

func (s *BuildingService) completeOne(ctx context.Context, b model.Building, now time.Time) error {
	var owner string
	var newLevel int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, b.VillageID); err != nil {
			return err
		}
		done, err := s.buildings.Complete(ctx, b.ID, now)
		if err != nil {
			return err
		}
		if !done {
			// Another replica finished it first.
			return nil
		}
		newLevel = b.Level + 1
		if err := s.villages.AddPopulation(ctx, b.VillageID, 1); err != nil {
			return err
		}
		if b.Type == catalog.Warehouse || b.Type == catalog.Granary {
			if err := s.resources.RecomputeStorage(ctx, b.VillageID); err != nil {
				return err
			}
		}
		v, err := s.villages.FindByID(ctx, b.VillageID)
		if err != nil {
			return err
		}
		if v != nil {
			owner = v.UserID
		}
		return nil
	})
	if err != nil {
		return err
	}
	if owner != "" {
		s.broadcast.NotifyUser(owner, "building_completed", map[string]any{
			"village_id":    b.VillageID,
			"building_id":   b.ID,
			"building_type": b.Type,
			"level":         newLevel,
		})
	}
	return nil
}

func (s *BuildingService) ownedVillage(ctx context.Context, userID, villageID string) (*model.Village, error) {
	v, err := s.villages.FindByID(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVillageNotFound
	}
	if v.UserID != userID {
		return nil, ErrNotYourVillage
	}
	return v, nil
}

// prereqsMet checks every required building against current levels. A
// building that is still constructing counts at its current level.
func prereqsMet(bt catalog.BuildingType, existing []model.Building) bool {
	levels := make(map[catalog.BuildingType]int, len(existing))
	for _, b := range existing {
		if b.Level > levels[b.Type] {
			levels[b.Type] = b.Level
		}
	}
	for _, req := range bt.Prerequisites() {
		if levels[req.Building] < req.Level {
			return false
		}
	}
	return true
}
