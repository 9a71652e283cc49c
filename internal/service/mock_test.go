package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/pkg/battle"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// In-memory repository fakes. They reproduce the guarded-update semantics of
// the postgres layer (conditional deducts, clamped credits, idempotent
// completions) so service tests exercise the same contracts.

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordedEvent struct {
	UserID string
	Type   string
	Data   any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) NotifyUser(userID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{UserID: userID, Type: eventType, Data: data})
}

func (b *fakeBroadcaster) eventsOf(eventType string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

var idSeq int

func nextID(prefix string) string {
	idSeq++
	return fmt.Sprintf("%s-%d", prefix, idSeq)
}

type fakeVillageRepo struct {
	villages map[string]*model.Village
}

func newFakeVillageRepo() *fakeVillageRepo {
	return &fakeVillageRepo{villages: map[string]*model.Village{}}
}

func (r *fakeVillageRepo) put(v *model.Village) *model.Village {
	if v.ID == "" {
		v.ID = nextID("village")
	}
	r.villages[v.ID] = v
	return v
}

func (r *fakeVillageRepo) Create(ctx context.Context, userID, name string, x, y int, isCapital bool) (*model.Village, error) {
	v := &model.Village{
		UserID:             userID,
		Name:               name,
		X:                  x,
		Y:                  y,
		IsCapital:          isCapital,
		Wood:               500,
		Clay:               500,
		Iron:               500,
		Crop:               500,
		WarehouseCapacity:  2400,
		GranaryCapacity:    1600,
		Population:         2,
		Loyalty:            100,
		ResourcesUpdatedAt: time.Now(),
	}
	return r.put(v), nil
}

func (r *fakeVillageRepo) FindByID(ctx context.Context, id string) (*model.Village, error) {
	v, ok := r.villages[id]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (r *fakeVillageRepo) FindByCoordinates(ctx context.Context, x, y int) (*model.Village, error) {
	for _, v := range r.villages {
		if v.X == x && v.Y == y {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeVillageRepo) ListByUser(ctx context.Context, userID string) ([]model.Village, error) {
	var out []model.Village
	for _, v := range r.villages {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeVillageRepo) FindInRange(ctx context.Context, xMin, xMax, yMin, yMax int) ([]model.VillageMapInfo, error) {
	var out []model.VillageMapInfo
	for _, v := range r.villages {
		if v.X >= xMin && v.X <= xMax && v.Y >= yMin && v.Y <= yMax {
			out = append(out, model.VillageMapInfo{
				ID: v.ID, Name: v.Name, X: v.X, Y: v.Y,
				UserID: v.UserID, Population: v.Population,
			})
		}
	}
	return out, nil
}

func (r *fakeVillageRepo) Rename(ctx context.Context, id, name string) error {
	if v, ok := r.villages[id]; ok {
		v.Name = name
	}
	return nil
}

func (r *fakeVillageRepo) Lock(ctx context.Context, ids ...string) error { return nil }

func (r *fakeVillageRepo) SetResources(ctx context.Context, id string, res catalog.Resources, updatedAt time.Time) error {
	v, ok := r.villages[id]
	if !ok {
		return fmt.Errorf("village %s not found", id)
	}
	v.Wood, v.Clay, v.Iron, v.Crop = res.Wood, res.Clay, res.Iron, res.Crop
	v.ResourcesUpdatedAt = updatedAt
	return nil
}

func (r *fakeVillageRepo) Deduct(ctx context.Context, id string, cost catalog.Resources) (bool, error) {
	v, ok := r.villages[id]
	if !ok {
		return false, fmt.Errorf("village %s not found", id)
	}
	if v.Wood < cost.Wood || v.Clay < cost.Clay || v.Iron < cost.Iron || v.Crop < cost.Crop {
		return false, nil
	}
	v.Wood -= cost.Wood
	v.Clay -= cost.Clay
	v.Iron -= cost.Iron
	v.Crop -= cost.Crop
	return true, nil
}

func (r *fakeVillageRepo) Credit(ctx context.Context, id string, res catalog.Resources) error {
	v, ok := r.villages[id]
	if !ok {
		return fmt.Errorf("village %s not found", id)
	}
	v.Wood = clamp(v.Wood+res.Wood, v.WarehouseCapacity)
	v.Clay = clamp(v.Clay+res.Clay, v.WarehouseCapacity)
	v.Iron = clamp(v.Iron+res.Iron, v.WarehouseCapacity)
	v.Crop = clamp(v.Crop+res.Crop, v.GranaryCapacity)
	return nil
}

func (r *fakeVillageRepo) SetStorageCapacity(ctx context.Context, id string, warehouse, granary int) error {
	if v, ok := r.villages[id]; ok {
		v.WarehouseCapacity = warehouse
		v.GranaryCapacity = granary
	}
	return nil
}

func (r *fakeVillageRepo) AddPopulation(ctx context.Context, id string, delta int) error {
	if v, ok := r.villages[id]; ok {
		v.Population += delta
		if v.Population < 0 {
			v.Population = 0
		}
	}
	return nil
}

func (r *fakeVillageRepo) UpdateLoyalty(ctx context.Context, id string, loyalty int) error {
	if v, ok := r.villages[id]; ok {
		v.Loyalty = loyalty
	}
	return nil
}

func (r *fakeVillageRepo) TransferOwnership(ctx context.Context, id, newUserID string) error {
	if v, ok := r.villages[id]; ok {
		v.UserID = newUserID
		v.IsCapital = false
	}
	return nil
}

func (r *fakeVillageRepo) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.villages))
	for id := range r.villages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type fakeBuildingRepo struct {
	buildings map[string]*model.Building
}

func newFakeBuildingRepo() *fakeBuildingRepo {
	return &fakeBuildingRepo{buildings: map[string]*model.Building{}}
}

func (r *fakeBuildingRepo) put(b *model.Building) *model.Building {
	if b.ID == "" {
		b.ID = nextID("building")
	}
	r.buildings[b.ID] = b
	return b
}

func (r *fakeBuildingRepo) Create(ctx context.Context, villageID string, bt catalog.BuildingType, slot int, endsAt time.Time) (*model.Building, error) {
	b := r.put(&model.Building{
		VillageID: villageID, Type: bt, SlotPosition: slot,
		IsUpgrading: true, UpgradeEndsAt: &endsAt,
	})
	copied := *b
	return &copied, nil
}

func (r *fakeBuildingRepo) Seed(ctx context.Context, villageID string, bt catalog.BuildingType, slot, level int) (*model.Building, error) {
	b := r.put(&model.Building{VillageID: villageID, Type: bt, SlotPosition: slot, Level: level})
	copied := *b
	return &copied, nil
}

func (r *fakeBuildingRepo) FindByVillage(ctx context.Context, villageID string) ([]model.Building, error) {
	var out []model.Building
	for _, b := range r.buildings {
		if b.VillageID == villageID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotPosition < out[j].SlotPosition })
	return out, nil
}

func (r *fakeBuildingRepo) FindBySlot(ctx context.Context, villageID string, slot int) (*model.Building, error) {
	for _, b := range r.buildings {
		if b.VillageID == villageID && b.SlotPosition == slot {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeBuildingRepo) StartUpgrade(ctx context.Context, id string, endsAt time.Time) error {
	if b, ok := r.buildings[id]; ok {
		b.IsUpgrading = true
		t := endsAt
		b.UpgradeEndsAt = &t
	}
	return nil
}

func (r *fakeBuildingRepo) Complete(ctx context.Context, id string, now time.Time) (bool, error) {
	b, ok := r.buildings[id]
	if !ok || !b.IsUpgrading || b.UpgradeEndsAt == nil || b.UpgradeEndsAt.After(now) {
		return false, nil
	}
	b.Level++
	b.IsUpgrading = false
	b.UpgradeEndsAt = nil
	return true, nil
}

func (r *fakeBuildingRepo) SetLevel(ctx context.Context, id string, level int) error {
	if b, ok := r.buildings[id]; ok {
		b.Level = level
	}
	return nil
}

func (r *fakeBuildingRepo) Delete(ctx context.Context, id string) error {
	delete(r.buildings, id)
	return nil
}

func (r *fakeBuildingRepo) FindDue(ctx context.Context, now time.Time) ([]model.Building, error) {
	var out []model.Building
	for _, b := range r.buildings {
		if b.IsUpgrading && b.UpgradeEndsAt != nil && !b.UpgradeEndsAt.After(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBuildingRepo) ListUpgrading(ctx context.Context, villageID string) ([]model.Building, error) {
	var out []model.Building
	for _, b := range r.buildings {
		if b.VillageID == villageID && b.IsUpgrading {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpgradeEndsAt.Before(*out[j].UpgradeEndsAt)
	})
	return out, nil
}

type troopKey struct {
	villageID string
	tt        catalog.TroopType
}

type fakeTroopRepo struct {
	roster catalog.Roster
	pools  map[troopKey]*model.Troop
	orders map[string]*model.TrainingOrder
}

func newFakeTroopRepo(roster catalog.Roster) *fakeTroopRepo {
	return &fakeTroopRepo{
		roster: roster,
		pools:  map[troopKey]*model.Troop{},
		orders: map[string]*model.TrainingOrder{},
	}
}

func (r *fakeTroopRepo) pool(villageID string, tt catalog.TroopType) *model.Troop {
	key := troopKey{villageID, tt}
	t, ok := r.pools[key]
	if !ok {
		t = &model.Troop{ID: nextID("troop"), VillageID: villageID, Type: tt}
		r.pools[key] = t
	}
	return t
}

// garrison seeds a pool where every unit is at home.
func (r *fakeTroopRepo) garrison(villageID string, tt catalog.TroopType, count int) {
	t := r.pool(villageID, tt)
	t.Count = count
	t.InVillage = count
}

func (r *fakeTroopRepo) AllDefinitions(ctx context.Context) ([]catalog.UnitStats, error) {
	var out []catalog.UnitStats
	for _, stats := range r.roster {
		out = append(out, stats)
	}
	return out, nil
}

func (r *fakeTroopRepo) FindByVillage(ctx context.Context, villageID string) ([]model.Troop, error) {
	var out []model.Troop
	for _, t := range r.pools {
		if t.VillageID == villageID && t.Count > 0 {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *fakeTroopRepo) Add(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	t := r.pool(villageID, tt)
	t.Count += count
	t.InVillage += count
	return nil
}

func (r *fakeTroopRepo) Remove(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	t := r.pool(villageID, tt)
	if t.InVillage < count {
		return fmt.Errorf("not enough %s in village %s", tt, villageID)
	}
	t.InVillage -= count
	return nil
}

func (r *fakeTroopRepo) Return(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	t := r.pool(villageID, tt)
	t.InVillage += count
	if t.InVillage > t.Count {
		t.InVillage = t.Count
	}
	return nil
}

func (r *fakeTroopRepo) Kill(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	t := r.pool(villageID, tt)
	t.Count -= count
	if t.Count < 0 {
		t.Count = 0
	}
	t.InVillage -= count
	if t.InVillage < 0 {
		t.InVillage = 0
	}
	return nil
}

func (r *fakeTroopRepo) Discharge(ctx context.Context, villageID string, tt catalog.TroopType, count int) error {
	t := r.pool(villageID, tt)
	t.Count -= count
	if t.Count < 0 {
		t.Count = 0
	}
	return nil
}

func (r *fakeTroopRepo) CropUpkeep(ctx context.Context, villageID string) (int, error) {
	total := 0
	for _, t := range r.pools {
		if t.VillageID == villageID {
			total += t.Count * r.roster[t.Type].CropUpkeep
		}
	}
	return total, nil
}

func (r *fakeTroopRepo) CreateOrder(ctx context.Context, villageID string, tt catalog.TroopType, count, perUnitSec int, startsAt, endsAt time.Time) (*model.TrainingOrder, error) {
	o := &model.TrainingOrder{
		ID: nextID("order"), VillageID: villageID, Type: tt,
		Count: count, PerUnitSec: perUnitSec, StartedAt: startsAt, EndsAt: endsAt,
	}
	r.orders[o.ID] = o
	copied := *o
	return &copied, nil
}

func (r *fakeTroopRepo) FindOrder(ctx context.Context, id string) (*model.TrainingOrder, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (r *fakeTroopRepo) OrdersByVillage(ctx context.Context, villageID string) ([]model.TrainingOrder, error) {
	var out []model.TrainingOrder
	for _, o := range r.orders {
		if o.VillageID == villageID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *fakeTroopRepo) LastOrderEnd(ctx context.Context, villageID string) (time.Time, error) {
	var last time.Time
	for _, o := range r.orders {
		if o.VillageID == villageID && o.EndsAt.After(last) {
			last = o.EndsAt
		}
	}
	return last, nil
}

func (r *fakeTroopRepo) UpdateOrder(ctx context.Context, id string, count int, startedAt time.Time) error {
	if o, ok := r.orders[id]; ok {
		o.Count = count
		o.StartedAt = startedAt
	}
	return nil
}

func (r *fakeTroopRepo) DeleteOrder(ctx context.Context, id string) error {
	delete(r.orders, id)
	return nil
}

func (r *fakeTroopRepo) OrdersStarted(ctx context.Context, now time.Time) ([]model.TrainingOrder, error) {
	var out []model.TrainingOrder
	for _, o := range r.orders {
		if !o.StartedAt.After(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeArmyRepo struct {
	armies map[string]*model.Army
}

func newFakeArmyRepo() *fakeArmyRepo {
	return &fakeArmyRepo{armies: map[string]*model.Army{}}
}

func (r *fakeArmyRepo) Create(ctx context.Context, a *model.Army) (*model.Army, error) {
	stored := *a
	stored.ID = nextID("army")
	stored.Troops = a.Troops.Clone()
	r.armies[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeArmyRepo) FindByID(ctx context.Context, id string) (*model.Army, error) {
	a, ok := r.armies[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	copied.Troops = a.Troops.Clone()
	return &copied, nil
}

func (r *fakeArmyRepo) FindArrived(ctx context.Context, now time.Time) ([]model.Army, error) {
	var out []model.Army
	for _, a := range r.armies {
		if a.IsStationed {
			continue
		}
		if a.IsReturning {
			if a.ReturnsAt != nil && !a.ReturnsAt.After(now) {
				out = append(out, *a)
			}
		} else if !a.ArrivesAt.After(now) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeArmyRepo) ListOutgoing(ctx context.Context, villageID string) ([]model.Army, error) {
	var out []model.Army
	for _, a := range r.armies {
		if a.FromVillageID == villageID && !a.IsStationed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeArmyRepo) ListIncoming(ctx context.Context, villageID string) ([]model.Army, error) {
	var out []model.Army
	for _, a := range r.armies {
		if a.ToVillageID == villageID && !a.IsStationed && !a.IsReturning {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeArmyRepo) ListStationedAt(ctx context.Context, villageID string) ([]model.Army, error) {
	var out []model.Army
	for _, a := range r.armies {
		if a.ToVillageID == villageID && a.IsStationed {
			copied := *a
			copied.Troops = a.Troops.Clone()
			out = append(out, copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeArmyRepo) ListSupportSent(ctx context.Context, playerID string) ([]model.Army, error) {
	var out []model.Army
	for _, a := range r.armies {
		if a.PlayerID == playerID && a.IsStationed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeArmyRepo) SetReturning(ctx context.Context, id string, troops battle.Troops, loot catalog.Resources, returnsAt time.Time, reportID string) error {
	a, ok := r.armies[id]
	if !ok {
		return fmt.Errorf("army %s not found", id)
	}
	a.Troops = troops.Clone()
	a.Resources = loot
	a.IsReturning = true
	a.IsStationed = false
	t := returnsAt
	a.ReturnsAt = &t
	a.BattleReportID = reportID
	return nil
}

func (r *fakeArmyRepo) SetStationed(ctx context.Context, id string) error {
	if a, ok := r.armies[id]; ok {
		a.IsStationed = true
	}
	return nil
}

func (r *fakeArmyRepo) StartRecall(ctx context.Context, id string, returnsAt time.Time) error {
	if a, ok := r.armies[id]; ok {
		a.IsStationed = false
		a.IsReturning = true
		t := returnsAt
		a.ReturnsAt = &t
	}
	return nil
}

func (r *fakeArmyRepo) UpdateStationedTroops(ctx context.Context, id string, troops battle.Troops) error {
	if a, ok := r.armies[id]; ok {
		a.Troops = troops.Clone()
	}
	return nil
}

func (r *fakeArmyRepo) Delete(ctx context.Context, id string) error {
	delete(r.armies, id)
	return nil
}

type fakeReportRepo struct {
	battles map[string]*model.BattleReport
	scouts  map[string]*model.ScoutReport
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		battles: map[string]*model.BattleReport{},
		scouts:  map[string]*model.ScoutReport{},
	}
}

func (r *fakeReportRepo) CreateBattleReport(ctx context.Context, br *model.BattleReport) (*model.BattleReport, error) {
	stored := *br
	stored.ID = nextID("battle-report")
	r.battles[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeReportRepo) FindBattleReport(ctx context.Context, id string) (*model.BattleReport, error) {
	br, ok := r.battles[id]
	if !ok {
		return nil, nil
	}
	copied := *br
	return &copied, nil
}

func (r *fakeReportRepo) ListBattleReports(ctx context.Context, playerID string) ([]model.BattleReport, error) {
	var out []model.BattleReport
	for _, br := range r.battles {
		if br.AttackerPlayerID == playerID || br.DefenderPlayerID == playerID {
			out = append(out, *br)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (r *fakeReportRepo) MarkBattleReportRead(ctx context.Context, id, playerID string) error {
	br, ok := r.battles[id]
	if !ok {
		return fmt.Errorf("battle report %s not found", id)
	}
	if br.AttackerPlayerID == playerID {
		br.ReadByAttacker = true
	}
	if br.DefenderPlayerID == playerID {
		br.ReadByDefender = true
	}
	return nil
}

func (r *fakeReportRepo) CreateScoutReport(ctx context.Context, sr *model.ScoutReport) (*model.ScoutReport, error) {
	stored := *sr
	stored.ID = nextID("scout-report")
	r.scouts[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeReportRepo) FindScoutReport(ctx context.Context, id string) (*model.ScoutReport, error) {
	sr, ok := r.scouts[id]
	if !ok {
		return nil, nil
	}
	copied := *sr
	return &copied, nil
}

func (r *fakeReportRepo) ListScoutReports(ctx context.Context, playerID string) ([]model.ScoutReport, error) {
	var out []model.ScoutReport
	for _, sr := range r.scouts {
		if sr.AttackerPlayerID == playerID || sr.DefenderPlayerID == playerID {
			out = append(out, *sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (r *fakeReportRepo) MarkScoutReportRead(ctx context.Context, id, playerID string) error {
	sr, ok := r.scouts[id]
	if !ok {
		return fmt.Errorf("scout report %s not found", id)
	}
	if sr.AttackerPlayerID == playerID {
		sr.ReadByAttacker = true
	}
	if sr.DefenderPlayerID == playerID {
		sr.ReadByDefender = true
	}
	return nil
}

func (r *fakeReportRepo) UnreadCounts(ctx context.Context, playerID string) (*model.UnreadCounts, error) {
	counts := &model.UnreadCounts{}
	for _, br := range r.battles {
		if (br.AttackerPlayerID == playerID && !br.ReadByAttacker) ||
			(br.DefenderPlayerID == playerID && !br.ReadByDefender) {
			counts.Battle++
		}
	}
	for _, sr := range r.scouts {
		if (sr.AttackerPlayerID == playerID && !sr.ReadByAttacker) ||
			(sr.DefenderPlayerID == playerID && !sr.ReadByDefender) {
			counts.Scout++
		}
	}
	counts.Total = counts.Battle + counts.Scout
	return counts, nil
}

// testRoster is a small roster with round numbers so expected battle math is
// easy to verify by hand.
func testRoster() catalog.Roster {
	return catalog.Roster{
		catalog.Infantry: {
			Type: catalog.Infantry, Tribe: catalog.TribePhasuttha, Name: "Infantry",
			Attack: 40, DefenseInfantry: 35, DefenseCavalry: 20, Speed: 6,
			CarryCapacity: 50, CropUpkeep: 1, TrainSeconds: 60,
			Cost:             catalog.Resources{Wood: 120, Clay: 100, Iron: 150, Crop: 30},
			RequiredBuilding: catalog.Barracks, RequiredLevel: 1,
		},
		catalog.Spearman: {
			Type: catalog.Spearman, Tribe: catalog.TribePhasuttha, Name: "Spearman",
			Attack: 10, DefenseInfantry: 35, DefenseCavalry: 60, Speed: 7,
			CarryCapacity: 40, CropUpkeep: 1, TrainSeconds: 70,
			Cost:             catalog.Resources{Wood: 100, Clay: 130, Iron: 160, Crop: 30},
			RequiredBuilding: catalog.Barracks, RequiredLevel: 1,
		},
		catalog.HighlandPony: {
			Type: catalog.HighlandPony, Tribe: catalog.TribeKiri, Name: "Highland Pony",
			Attack: 0, DefenseInfantry: 20, DefenseCavalry: 10, Speed: 17,
			CropUpkeep: 2, TrainSeconds: 90, Cavalry: true,
			Cost:             catalog.Resources{Wood: 170, Clay: 150, Iron: 20, Crop: 40},
			RequiredBuilding: catalog.Stable, RequiredLevel: 1,
		},
		catalog.RoyalAdvisor: {
			Type: catalog.RoyalAdvisor, Tribe: catalog.TribePhasuttha, Name: "Royal Advisor",
			Attack: 50, DefenseInfantry: 50, DefenseCavalry: 50, Speed: 4,
			CropUpkeep: 5, TrainSeconds: 3600, LoyaltyReduction: 25, Chief: true,
			Cost:             catalog.Resources{Wood: 30000, Clay: 25000, Iron: 20000, Crop: 15000},
			RequiredBuilding: catalog.Palace, RequiredLevel: 10,
		},
	}
}

// fixture bundles the fakes and services a test needs.
type fixture struct {
	villages  *fakeVillageRepo
	buildings *fakeBuildingRepo
	troops    *fakeTroopRepo
	armies    *fakeArmyRepo
	reports   *fakeReportRepo
	broadcast *fakeBroadcaster
	roster    catalog.Roster

	resourceSvc *ResourceService
	buildingSvc *BuildingService
	troopSvc    *TroopService
	villageSvc  *VillageService
	armySvc     *ArmyService
	reportSvc   *ReportService
}

func newFixture() *fixture {
	f := &fixture{
		villages:  newFakeVillageRepo(),
		buildings: newFakeBuildingRepo(),
		armies:    newFakeArmyRepo(),
		reports:   newFakeReportRepo(),
		broadcast: &fakeBroadcaster{},
		roster:    testRoster(),
	}
	f.troops = newFakeTroopRepo(f.roster)

	tx := fakeTx{}
	f.resourceSvc = NewResourceService(f.villages, f.buildings)
	f.buildingSvc = NewBuildingService(tx, f.villages, f.buildings, f.resourceSvc, f.broadcast)
	f.troopSvc = NewTroopService(tx, f.villages, f.buildings, f.troops, f.resourceSvc, f.roster, f.broadcast)
	f.villageSvc = NewVillageService(tx, f.villages, f.buildings, f.troops, f.resourceSvc)
	f.armySvc = NewArmyService(tx, f.villages, f.troops, f.armies, f.reports, f.villageSvc, f.resourceSvc, f.roster, f.broadcast)
	f.reportSvc = NewReportService(f.reports)
	return f
}

// freeze pins every service clock to a fixed instant and returns it.
func (f *fixture) freeze(at time.Time) time.Time {
	now := func() time.Time { return at }
	f.resourceSvc.now = now
	f.buildingSvc.now = now
	f.troopSvc.now = now
	f.armySvc.now = now
	return at
}

// village creates a village with the standard starting layout and fresh
// resources as of the frozen clock.
func (f *fixture) village(userID string, x, y int, isCapital bool, at time.Time) *model.Village {
	v, _ := f.villages.Create(context.Background(), userID, "Village", x, y, isCapital)
	f.villages.villages[v.ID].ResourcesUpdatedAt = at
	for _, b := range newVillageLayout {
		f.buildings.Seed(context.Background(), v.ID, b.bt, b.slot, b.level)
	}
	return v
}
