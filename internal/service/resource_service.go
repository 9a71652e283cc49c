package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// ResourceService integrates resource production lazily and keeps storage
// capacities in sync with warehouse and granary levels.
type ResourceService struct {
	villages  repository.VillageRepository
	buildings repository.BuildingRepository
	now       func() time.Time
}

// NewResourceService creates a ResourceService.
func NewResourceService(villages repository.VillageRepository, buildings repository.BuildingRepository) *ResourceService {
	return &ResourceService{villages: villages, buildings: buildings, now: time.Now}
}

// ProductionRates sums per-hour output across a village's resource fields.
func (s *ResourceService) ProductionRates(ctx context.Context, villageID string) (model.ProductionRates, error) {
	buildings, err := s.buildings.FindByVillage(ctx, villageID)
	if err != nil {
		return model.ProductionRates{}, err
	}
	var rates model.ProductionRates
	for _, b := range buildings {
		out := b.Type.ProductionPerHour(b.Level)
		switch b.Type {
		case catalog.Woodcutter:
			rates.WoodPerHour += out
		case catalog.ClayPit:
			rates.ClayPerHour += out
		case catalog.IronMine:
			rates.IronPerHour += out
		case catalog.CropField:
			rates.CropPerHour += out
		}
	}
	return rates, nil
}

// Refresh integrates production since resources_updated_at, clamps to storage
// caps, and writes the result back. Idempotent; must run before any
// read-then-write on village resources.
func (s *ResourceService) Refresh(ctx context.Context, villageID string) (*model.Village, error) {
	v, err := s.villages.FindByID(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVillageNotFound
	}

	now := s.now()
	elapsed := now.Sub(v.ResourcesUpdatedAt).Seconds()
	if elapsed <= 0 {
		return v, nil
	}

	rates, err := s.ProductionRates(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	res := catalog.Resources{
		Wood: clamp(v.Wood+accrued(rates.WoodPerHour, elapsed), v.WarehouseCapacity),
		Clay: clamp(v.Clay+accrued(rates.ClayPerHour, elapsed), v.WarehouseCapacity),
		Iron: clamp(v.Iron+accrued(rates.IronPerHour, elapsed), v.WarehouseCapacity),
		Crop: clamp(v.Crop+accrued(rates.CropPerHour, elapsed), v.GranaryCapacity),
	}
	if err := s.villages.SetResources(ctx, v.ID, res, now); err != nil {
		return nil, err
	}
	v.Wood, v.Clay, v.Iron, v.Crop = res.Wood, res.Clay, res.Iron, res.Crop
	v.ResourcesUpdatedAt = now
	return v, nil
}

func accrued(perHour int, elapsedSec float64) int {
	return int(float64(perHour) * elapsedSec / 3600.0)
}

func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

// RecomputeStorage rebuilds warehouse and granary capacity from building
// levels: the village base plus each storage building's contribution. A
// level-0 warehouse contributes its 800 base on top of the village base.
func (s *ResourceService) RecomputeStorage(ctx context.Context, villageID string) error {
	buildings, err := s.buildings.FindByVillage(ctx, villageID)
	if err != nil {
		return err
	}
	warehouse := catalog.BaseStorageCapacity
	granary := catalog.BaseStorageCapacity
	for _, b := range buildings {
		switch b.Type {
		case catalog.Warehouse:
			warehouse += b.Type.StorageCapacity(b.Level)
		case catalog.Granary:
			granary += b.Type.StorageCapacity(b.Level)
		}
	}
	return s.villages.SetStorageCapacity(ctx, villageID, warehouse, granary)
}

// SweepAll refreshes every village. Bounds how stale resources_updated_at can
// get on villages no one looks at; per-village failures are logged and skipped.
func (s *ResourceService) SweepAll(ctx context.Context) {
	ids, err := s.villages.ListIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Resource sweep: listing villages failed")
		return
	}
	for _, id := range ids {
		if _, err := s.Refresh(ctx, id); err != nil {
			log.Error().Err(err).Str("villageId", id).Msg("Resource sweep: refresh failed")
		}
	}
}
