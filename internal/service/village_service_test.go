package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

func TestCreateFirstVillageIsCapital(t *testing.T) {
	f := newFixture()
	f.freeze(testEpoch)

	first, err := f.villageSvc.Create(context.Background(), "user-1", "Riverside", 3, -2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !first.IsCapital {
		t.Error("first village not marked capital")
	}
	if first.Name != "Riverside" {
		t.Errorf("name = %q, want Riverside", first.Name)
	}

	second, err := f.villageSvc.Create(context.Background(), "user-1", "", 4, -2)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if second.IsCapital {
		t.Error("second village marked capital")
	}
	if second.Name != "New Village" {
		t.Errorf("blank name fallback = %q, want New Village", second.Name)
	}
}

func TestCreateSeedsStartingLayout(t *testing.T) {
	f := newFixture()
	f.freeze(testEpoch)

	v, err := f.villageSvc.Create(context.Background(), "user-1", "Riverside", 0, 0)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	buildings, _ := f.buildings.FindByVillage(context.Background(), v.ID)
	if len(buildings) != 5 {
		t.Fatalf("seeded buildings = %d, want 5", len(buildings))
	}
	byType := map[catalog.BuildingType]int{}
	for _, b := range buildings {
		byType[b.Type] = b.Level
	}
	if lvl, ok := byType[catalog.MainBuilding]; !ok || lvl != 1 {
		t.Errorf("main building level = %d (present %v), want level 1", lvl, ok)
	}
	for _, field := range []catalog.BuildingType{catalog.Woodcutter, catalog.ClayPit, catalog.IronMine, catalog.CropField} {
		if lvl, ok := byType[field]; !ok || lvl != 0 {
			t.Errorf("%s level = %d (present %v), want level 0", field, lvl, ok)
		}
	}
}

func TestCreateCoordinateTaken(t *testing.T) {
	f := newFixture()
	f.freeze(testEpoch)

	if _, err := f.villageSvc.Create(context.Background(), "user-1", "A", 0, 0); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.villageSvc.Create(context.Background(), "user-2", "B", 0, 0); !errors.Is(err, ErrCoordinateTaken) {
		t.Errorf("Create() error = %v, want ErrCoordinateTaken", err)
	}
}

func TestGetVillage(t *testing.T) {
	f := newFixture()
	t0 := f.freeze(testEpoch)
	v := f.village("user-1", 0, 0, true, t0)

	resp, err := f.villageSvc.Get(context.Background(), "user-1", v.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// Level-0 fields trickle 1 per hour each.
	if resp.Production.WoodPerHour != 1 || resp.Production.CropPerHour != 1 {
		t.Errorf("production = %+v, want 1 per hour per field", resp.Production)
	}
	if resp.CropUpkeep != 0 {
		t.Errorf("CropUpkeep = %d, want 0", resp.CropUpkeep)
	}

	if _, err := f.villageSvc.Get(context.Background(), "user-2", v.ID); !errors.Is(err, ErrNotYourVillage) {
		t.Errorf("Get() as stranger error = %v, want ErrNotYourVillage", err)
	}
}

func TestRename(t *testing.T) {
	f := newFixture()
	t0 := f.freeze(testEpoch)
	v := f.village("user-1", 0, 0, true, t0)

	if err := f.villageSvc.Rename(context.Background(), "user-1", v.ID, "  Hilltop  "); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got := f.villages.villages[v.ID].Name; got != "Hilltop" {
		t.Errorf("name = %q, want Hilltop", got)
	}

	if err := f.villageSvc.Rename(context.Background(), "user-1", v.ID, "   "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Rename() blank error = %v, want ErrInvalidName", err)
	}
	if err := f.villageSvc.Rename(context.Background(), "user-2", v.ID, "Theirs"); !errors.Is(err, ErrNotYourVillage) {
		t.Errorf("Rename() as stranger error = %v, want ErrNotYourVillage", err)
	}
}

func TestMapGrid(t *testing.T) {
	f := newFixture()
	t0 := f.freeze(testEpoch)
	v := f.village("user-1", 1, 1, true, t0)

	tiles, err := f.villageSvc.Map(context.Background(), 0, 0, 1)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if len(tiles) != 9 {
		t.Fatalf("tiles = %d, want 9 for radius 1", len(tiles))
	}
	// Row-major order: last tile is (1, 1).
	last := tiles[8]
	if last.X != 1 || last.Y != 1 {
		t.Fatalf("last tile at (%d, %d), want (1, 1)", last.X, last.Y)
	}
	if last.Village == nil || last.Village.ID != v.ID {
		t.Error("village missing from its tile")
	}
	occupied := 0
	for _, tile := range tiles {
		if tile.Village != nil {
			occupied++
		}
	}
	if occupied != 1 {
		t.Errorf("occupied tiles = %d, want 1", occupied)
	}
}

func TestMapRadiusClamped(t *testing.T) {
	f := newFixture()
	f.freeze(testEpoch)

	tiles, err := f.villageSvc.Map(context.Background(), 0, 0, 99)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	side := 2*MaxMapRadius + 1
	if len(tiles) != side*side {
		t.Errorf("tiles = %d, want %d", len(tiles), side*side)
	}
}

func TestListRefreshesResources(t *testing.T) {
	f := newFixture()
	t0 := f.freeze(testEpoch)
	f.village("user-1", 0, 0, true, t0)
	f.village("user-1", 1, 0, false, t0)

	f.freeze(t0.Add(2 * time.Hour))
	villages, err := f.villageSvc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(villages) != 2 {
		t.Fatalf("villages = %d, want 2", len(villages))
	}
	for _, v := range villages {
		if v.Wood != 502 {
			t.Errorf("village %s wood = %d, want 502 after refresh", v.ID, v.Wood)
		}
	}
}
