package service

import (
	"context"
	"strings"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// MaxMapRadius caps the map endpoint's tile grid at (2r+1) squared tiles.
const MaxMapRadius = 15

// Starting slot layout for new villages: one field of each resource kind plus
// the main building.
var newVillageLayout = []struct {
	slot  int
	bt    catalog.BuildingType
	level int
}{
	{1, catalog.Woodcutter, 0},
	{2, catalog.ClayPit, 0},
	{3, catalog.IronMine, 0},
	{4, catalog.CropField, 0},
	{5, catalog.MainBuilding, 1},
}

// VillageService manages village lifecycle and map views.
type VillageService struct {
	tx        repository.TxManager
	villages  repository.VillageRepository
	buildings repository.BuildingRepository
	troops    repository.TroopRepository
	resources *ResourceService
}

// NewVillageService creates a VillageService.
func NewVillageService(tx repository.TxManager, villages repository.VillageRepository, buildings repository.BuildingRepository, troops repository.TroopRepository, resources *ResourceService) *VillageService {
	return &VillageService{tx: tx, villages: villages, buildings: buildings, troops: troops, resources: resources}
}

// List returns all villages owned by a user, with resources refreshed.
func (s *VillageService) List(ctx context.Context, userID string) ([]model.Village, error) {
	villages, err := s.villages.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range villages {
		v, err := s.resources.Refresh(ctx, villages[i].ID)
		if err != nil {
			return nil, err
		}
		villages[i] = *v
	}
	return villages, nil
}

// Get returns one village with fresh resources, production rates, and troop
// upkeep.
func (s *VillageService) Get(ctx context.Context, userID, villageID string) (*model.VillageResponse, error) {
	v, err := s.resources.Refresh(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, ErrNotYourVillage
	}
	rates, err := s.resources.ProductionRates(ctx, villageID)
	if err != nil {
		return nil, err
	}
	upkeep, err := s.troops.CropUpkeep(ctx, villageID)
	if err != nil {
		return nil, err
	}
	return &model.VillageResponse{Village: *v, Production: rates, CropUpkeep: upkeep}, nil
}

// Create founds a village for the user at the given free coordinates. The
// user's first village becomes their capital. Every new village starts with
// the standard field layout.
func (s *VillageService) Create(ctx context.Context, userID, name string, x, y int) (*model.Village, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "New Village"
	}

	var created *model.Village
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		occupied, err := s.villages.FindByCoordinates(ctx, x, y)
		if err != nil {
			return err
		}
		if occupied != nil {
			return ErrCoordinateTaken
		}
		existing, err := s.villages.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		isCapital := len(existing) == 0

		created, err = s.villages.Create(ctx, userID, name, x, y, isCapital)
		if err != nil {
			return err
		}
		return s.seedBuildings(ctx, created.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Found creates a settler-founded village, never a capital. Runs inside the
// caller's transaction.
func (s *VillageService) Found(ctx context.Context, userID, name string, x, y int) (*model.Village, error) {
	v, err := s.villages.Create(ctx, userID, name, x, y, false)
	if err != nil {
		return nil, err
	}
	if err := s.seedBuildings(ctx, v.ID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VillageService) seedBuildings(ctx context.Context, villageID string) error {
	for _, b := range newVillageLayout {
		if _, err := s.buildings.Seed(ctx, villageID, b.bt, b.slot, b.level); err != nil {
			return err
		}
	}
	return nil
}

// Rename changes a village's name.
func (s *VillageService) Rename(ctx context.Context, userID, villageID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	v, err := s.villages.FindByID(ctx, villageID)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrVillageNotFound
	}
	if v.UserID != userID {
		return ErrNotYourVillage
	}
	return s.villages.Rename(ctx, villageID, name)
}

// Map returns the (2r+1) squared tile grid centered on (x, y). Radius is
// clamped to MaxMapRadius.
func (s *VillageService) Map(ctx context.Context, x, y, radius int) ([]model.MapTile, error) {
	if radius < 0 {
		radius = 0
	}
	if radius > MaxMapRadius {
		radius = MaxMapRadius
	}
	villages, err := s.villages.FindInRange(ctx, x-radius, x+radius, y-radius, y+radius)
	if err != nil {
		return nil, err
	}
	byCoord := make(map[[2]int]*model.VillageMapInfo, len(villages))
	for i := range villages {
		byCoord[[2]int{villages[i].X, villages[i].Y}] = &villages[i]
	}

	side := 2*radius + 1
	tiles := make([]model.MapTile, 0, side*side)
	for ty := y - radius; ty <= y+radius; ty++ {
		for tx := x - radius; tx <= x+radius; tx++ {
			tiles = append(tiles, model.MapTile{X: tx, Y: ty, Village: byCoord[[2]int{tx, ty}]})
		}
	}
	return tiles, nil
}
