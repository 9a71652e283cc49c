package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/battle"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// ArmyService dispatches armies, resolves their arrivals, and serves battle
// and scout reports.
type ArmyService struct {
	tx         repository.TxManager
	villages   repository.VillageRepository
	troops     repository.TroopRepository
	armies     repository.ArmyRepository
	reports    repository.ReportRepository
	villageSvc *VillageService
	resources  *ResourceService
	roster     catalog.Roster
	broadcast  Broadcaster
	now        func() time.Time
}

// NewArmyService creates an ArmyService.
func NewArmyService(tx repository.TxManager, villages repository.VillageRepository, troops repository.TroopRepository, armies repository.ArmyRepository, reports repository.ReportRepository, villageSvc *VillageService, resources *ResourceService, roster catalog.Roster, broadcast Broadcaster) *ArmyService {
	return &ArmyService{
		tx:         tx,
		villages:   villages,
		troops:     troops,
		armies:     armies,
		reports:    reports,
		villageSvc: villageSvc,
		resources:  resources,
		roster:     roster,
		broadcast:  broadcast,
		now:        time.Now,
	}
}

// Send dispatches an army from a village toward target coordinates. The
// troops leave the home garrison immediately; arrival is resolved by the tick
// scheduler.
func (s *ArmyService) Send(ctx context.Context, userID, fromVillageID string, toX, toY int, mission catalog.Mission, troops battle.Troops) (*model.Army, error) {
	if !mission.Valid() {
		return nil, ErrInvalidMission
	}
	if troops.Total() <= 0 {
		return nil, ErrInvalidTroopCount
	}
	for _, tt := range troops.Types() {
		if _, ok := s.roster[tt]; !ok {
			return nil, ErrInvalidTroopType
		}
	}
	if mission == catalog.MissionConquer && !hasChief(troops, s.roster) {
		return nil, ErrChiefRequired
	}

	var army *model.Army
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, fromVillageID); err != nil {
			return err
		}
		origin, err := s.villages.FindByID(ctx, fromVillageID)
		if err != nil {
			return err
		}
		if origin == nil {
			return ErrVillageNotFound
		}
		if origin.UserID != userID {
			return ErrNotYourVillage
		}

		target, err := s.villages.FindByCoordinates(ctx, toX, toY)
		if err != nil {
			return err
		}
		if mission == catalog.MissionSupport && target == nil {
			return ErrNoTargetVillage
		}
		if mission.IsHostile() && target != nil && target.UserID == userID {
			return ErrTargetIsOwnVillage
		}

		for _, tt := range troops.Types() {
			if err := s.troops.Remove(ctx, fromVillageID, tt, troops[tt]); err != nil {
				return ErrNotEnoughTroops
			}
		}

		now := s.now()
		distance := battle.Distance(origin.X, origin.Y, toX, toY)
		travel := battle.TravelTime(distance, troops, s.roster)
		arrives := now.Add(travel)

		draft := &model.Army{
			PlayerID:      userID,
			FromVillageID: fromVillageID,
			ToX:           toX,
			ToY:           toY,
			Mission:       mission,
			Troops:        troops.Clone(),
			DepartedAt:    now,
			ArrivesAt:     arrives,
		}
		if mission.Returns() {
			// Provisional; arrival resolution recomputes it at survivor pace.
			returnsAt := arrives.Add(travel)
			draft.ReturnsAt = &returnsAt
		}
		if target != nil {
			draft.ToVillageID = target.ID
		}
		army, err = s.armies.Create(ctx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	return army, nil
}

// ProcessArrivals resolves every army whose march has finished. Called by the
// tick scheduler; each army is handled in its own transaction so one failure
// cannot poison the batch.
func (s *ArmyService) ProcessArrivals(ctx context.Context) {
	arrived, err := s.armies.FindArrived(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Movement: listing arrived armies failed")
		return
	}
	for _, a := range arrived {
		if err := s.resolveArrival(ctx, a); err != nil {
			log.Error().Err(err).Str("armyId", a.ID).Str("mission", string(a.Mission)).
				Msg("Movement: arrival resolution failed")
		}
	}
}

func (s *ArmyService) resolveArrival(ctx context.Context, a model.Army) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Re-read inside the transaction: another replica may have resolved it.
		current, err := s.armies.FindByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if current == nil || current.IsStationed {
			return nil
		}
		a = *current

		if a.IsReturning {
			return s.handleReturn(ctx, &a)
		}
		switch a.Mission {
		case catalog.MissionRaid, catalog.MissionAttack:
			return s.handleHostile(ctx, &a)
		case catalog.MissionConquer:
			return s.handleConquer(ctx, &a)
		case catalog.MissionScout:
			return s.handleScout(ctx, &a)
		case catalog.MissionSupport:
			return s.handleSupport(ctx, &a)
		case catalog.MissionSettle:
			return s.handleSettle(ctx, &a)
		}
		log.Warn().Str("armyId", a.ID).Str("mission", string(a.Mission)).Msg("Unknown mission, forcing return")
		return s.initiateReturn(ctx, &a, a.Troops, catalog.Resources{}, "")
	})
}

// handleReturn brings an army home: loot is credited (clamped to storage),
// survivors rejoin the garrison, and the army row is removed.
func (s *ArmyService) handleReturn(ctx context.Context, a *model.Army) error {
	if err := s.villages.Lock(ctx, a.FromVillageID); err != nil {
		return err
	}
	if _, err := s.resources.Refresh(ctx, a.FromVillageID); err != nil {
		return err
	}
	if a.Resources.Total() > 0 {
		if err := s.villages.Credit(ctx, a.FromVillageID, a.Resources); err != nil {
			return err
		}
	}
	for _, tt := range a.Troops.Types() {
		if err := s.troops.Return(ctx, a.FromVillageID, tt, a.Troops[tt]); err != nil {
			return err
		}
	}
	if err := s.armies.Delete(ctx, a.ID); err != nil {
		return err
	}
	s.broadcast.NotifyUser(a.PlayerID, "army_returned", map[string]any{
		"village_id": a.FromVillageID,
		"troops":     a.Troops,
		"resources":  a.Resources,
	})
	return nil
}

// handleHostile resolves raid and attack arrivals.
func (s *ArmyService) handleHostile(ctx context.Context, a *model.Army) error {
	target, err := s.targetVillage(ctx, a)
	if err != nil {
		return err
	}
	if target == nil {
		// Empty tile, nothing to fight.
		return s.initiateReturn(ctx, a, a.Troops, catalog.Resources{}, "")
	}
	if err := s.villages.Lock(ctx, a.FromVillageID, target.ID); err != nil {
		return err
	}
	if target, err = s.resources.Refresh(ctx, target.ID); err != nil {
		return err
	}

	garrison, stationed, combined, err := s.defenders(ctx, target.ID)
	if err != nil {
		return err
	}

	result := battle.Resolve(a.Troops, combined, s.roster, a.Mission)

	if err := s.applyDefenderLosses(ctx, target.ID, garrison, stationed, combined, result.DefenderLosses); err != nil {
		return err
	}
	if err := s.dischargeAttackerLosses(ctx, a, result.AttackerLosses); err != nil {
		return err
	}

	loot := battle.Plunder(target.Stock(), result.AttackerSurvivors, s.roster, a.Mission)
	if loot.Total() > 0 {
		if ok, err := s.villages.Deduct(ctx, target.ID, loot); err != nil {
			return err
		} else if !ok {
			loot = catalog.Resources{}
		}
	}

	report, err := s.reports.CreateBattleReport(ctx, &model.BattleReport{
		AttackerPlayerID:  a.PlayerID,
		DefenderPlayerID:  target.UserID,
		AttackerVillageID: a.FromVillageID,
		DefenderVillageID: target.ID,
		Mission:           a.Mission,
		AttackerTroops:    a.Troops,
		DefenderTroops:    combined,
		AttackerLosses:    result.AttackerLosses,
		DefenderLosses:    result.DefenderLosses,
		ResourcesStolen:   loot,
		Winner:            winner(result.AttackerWins),
		OccurredAt:        s.now(),
	})
	if err != nil {
		return err
	}

	s.notifyBattle(a.PlayerID, target.UserID, report)

	if result.AttackerSurvivors.Total() == 0 {
		return s.armies.Delete(ctx, a.ID)
	}
	return s.initiateReturn(ctx, a, result.AttackerSurvivors, loot, report.ID)
}

// handleConquer resolves a conquer arrival: an attack-strength battle, then
// loyalty damage from surviving chiefs. No looting. Ownership transfers when
// loyalty reaches zero; the village loses capital status and restarts at
// loyalty 25.
func (s *ArmyService) handleConquer(ctx context.Context, a *model.Army) error {
	target, err := s.targetVillage(ctx, a)
	if err != nil {
		return err
	}
	if target == nil || target.UserID == a.PlayerID || target.IsCapital {
		return s.initiateReturn(ctx, a, a.Troops, catalog.Resources{}, "")
	}
	if err := s.villages.Lock(ctx, a.FromVillageID, target.ID); err != nil {
		return err
	}

	garrison, stationed, combined, err := s.defenders(ctx, target.ID)
	if err != nil {
		return err
	}

	// Conquest fights at full attack strength; raiders' flee rule never applies.
	result := battle.Resolve(a.Troops, combined, s.roster, catalog.MissionAttack)

	if err := s.applyDefenderLosses(ctx, target.ID, garrison, stationed, combined, result.DefenderLosses); err != nil {
		return err
	}
	if err := s.dischargeAttackerLosses(ctx, a, result.AttackerLosses); err != nil {
		return err
	}

	loyaltyDamage := 0
	conquered := false
	if result.AttackerWins {
		loyaltyDamage = battle.LoyaltyDamage(result.AttackerSurvivors, s.roster)
		if loyaltyDamage > 0 {
			newLoyalty := target.Loyalty - loyaltyDamage
			if newLoyalty <= 0 {
				conquered = true
				if err := s.villages.TransferOwnership(ctx, target.ID, a.PlayerID); err != nil {
					return err
				}
				newLoyalty = 25
			}
			if err := s.villages.UpdateLoyalty(ctx, target.ID, newLoyalty); err != nil {
				return err
			}
		}
	}

	report, err := s.reports.CreateBattleReport(ctx, &model.BattleReport{
		AttackerPlayerID:  a.PlayerID,
		DefenderPlayerID:  target.UserID,
		AttackerVillageID: a.FromVillageID,
		DefenderVillageID: target.ID,
		Mission:           catalog.MissionConquer,
		AttackerTroops:    a.Troops,
		DefenderTroops:    combined,
		AttackerLosses:    result.AttackerLosses,
		DefenderLosses:    result.DefenderLosses,
		LoyaltyDamage:     loyaltyDamage,
		VillageConquered:  conquered,
		Winner:            winner(result.AttackerWins),
		OccurredAt:        s.now(),
	})
	if err != nil {
		return err
	}

	s.notifyBattle(a.PlayerID, target.UserID, report)
	if conquered {
		s.broadcast.NotifyUser(a.PlayerID, "village_conquered", map[string]any{"village_id": target.ID})
		s.broadcast.NotifyUser(target.UserID, "village_conquered", map[string]any{"village_id": target.ID})
	}

	if result.AttackerSurvivors.Total() == 0 {
		return s.armies.Delete(ctx, a.ID)
	}
	return s.initiateReturn(ctx, a, result.AttackerSurvivors, catalog.Resources{}, report.ID)
}

// handleScout resolves a scouting run. Success reveals the target's resources
// and garrison; failure reveals nothing and costs most of the scouts.
func (s *ArmyService) handleScout(ctx context.Context, a *model.Army) error {
	target, err := s.targetVillage(ctx, a)
	if err != nil {
		return err
	}
	if target == nil {
		return s.initiateReturn(ctx, a, a.Troops, catalog.Resources{}, "")
	}
	if err := s.villages.Lock(ctx, a.FromVillageID, target.ID); err != nil {
		return err
	}
	if target, err = s.resources.Refresh(ctx, target.ID); err != nil {
		return err
	}

	garrison, _, _, err := s.defenders(ctx, target.ID)
	if err != nil {
		return err
	}

	result := battle.ResolveScout(a.Troops, garrison, s.roster)

	attackerLosses := distributeProportionally(a.Troops, result.AttackerLosses)
	if err := s.dischargeAttackerLosses(ctx, a, attackerLosses); err != nil {
		return err
	}
	defenderLosses := distributeProportionally(garrison, result.DefenderLosses)
	for _, tt := range defenderLosses.Types() {
		if err := s.troops.Kill(ctx, target.ID, tt, defenderLosses[tt]); err != nil {
			return err
		}
	}

	sr := &model.ScoutReport{
		AttackerPlayerID:  a.PlayerID,
		DefenderPlayerID:  target.UserID,
		AttackerVillageID: a.FromVillageID,
		DefenderVillageID: target.ID,
		Success:           result.Success,
		ScoutsSent:        a.Troops.Total(),
		ScoutsLost:        result.AttackerLosses,
		DefenderLost:      result.DefenderLosses,
		OccurredAt:        s.now(),
	}
	if result.Success {
		stock := target.Stock()
		sr.ScoutedResources = &stock
		sr.ScoutedTroops = garrison.Clone()
	}
	report, err := s.reports.CreateScoutReport(ctx, sr)
	if err != nil {
		return err
	}

	s.broadcast.NotifyUser(a.PlayerID, "scout_resolved", map[string]any{"report_id": report.ID, "success": report.Success})
	// The defender only learns of failed runs that cost them scouts.
	if !report.Success || report.DefenderLost > 0 {
		s.broadcast.NotifyUser(target.UserID, "scout_resolved", map[string]any{"report_id": report.ID})
	}

	survivors := battle.Troops{}
	for _, tt := range a.Troops.Types() {
		if left := a.Troops[tt] - attackerLosses[tt]; left > 0 {
			survivors[tt] = left
		}
	}
	if survivors.Total() == 0 {
		return s.armies.Delete(ctx, a.ID)
	}
	return s.initiateReturn(ctx, a, survivors, catalog.Resources{}, "")
}

// handleSupport stations the army at the target village. A missing target
// sends the army home.
func (s *ArmyService) handleSupport(ctx context.Context, a *model.Army) error {
	target, err := s.targetVillage(ctx, a)
	if err != nil {
		return err
	}
	if target == nil {
		return s.initiateReturn(ctx, a, a.Troops, catalog.Resources{}, "")
	}
	if err := s.armies.SetStationed(ctx, a.ID); err != nil {
		return err
	}
	s.broadcast.NotifyUser(target.UserID, "support_stationed", map[string]any{
		"village_id": target.ID,
		"troops":     a.Troops,
	})
	if target.UserID != a.PlayerID {
		s.broadcast.NotifyUser(a.PlayerID, "support_stationed", map[string]any{
			"village_id": target.ID,
			"troops":     a.Troops,
		})
	}
	return nil
}

// handleSettle founds a new village at a free coordinate. The settling troops
// become the village's population and are gone from the origin's books; an
// occupied tile turns the expedition around.
func (s *ArmyService) handleSettle(ctx context.Context, a *model.Army) error {
	occupied, err := s.villages.FindByCoordinates(ctx, a.ToX, a.ToY)
	if err != nil {
		return err
	}
	if occupied != nil {
		return s.initiateReturn(ctx, a, a.Troops, catalog.Resources{}, "")
	}
	if err := s.villages.Lock(ctx, a.FromVillageID); err != nil {
		return err
	}
	founded, err := s.villageSvc.Found(ctx, a.PlayerID, "New Settlement", a.ToX, a.ToY)
	if err != nil {
		return err
	}
	for _, tt := range a.Troops.Types() {
		if err := s.troops.Discharge(ctx, a.FromVillageID, tt, a.Troops[tt]); err != nil {
			return err
		}
	}
	if err := s.armies.Delete(ctx, a.ID); err != nil {
		return err
	}
	s.broadcast.NotifyUser(a.PlayerID, "village_founded", map[string]any{
		"village_id": founded.ID,
		"x":          founded.X,
		"y":          founded.Y,
	})
	return nil
}

// Recall orders a stationed support army home.
func (s *ArmyService) Recall(ctx context.Context, userID, armyID string) (*model.Army, error) {
	var recalled *model.Army
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.armies.FindByID(ctx, armyID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrArmyNotFound
		}
		if a.PlayerID != userID {
			return ErrArmyNotFound
		}
		if !a.IsStationed {
			return ErrArmyNotStationed
		}

		origin, err := s.villages.FindByID(ctx, a.FromVillageID)
		if err != nil {
			return err
		}
		if origin == nil {
			return ErrVillageNotFound
		}
		distance := battle.Distance(a.ToX, a.ToY, origin.X, origin.Y)
		returnsAt := s.now().Add(battle.TravelTime(distance, a.Troops, s.roster))
		if err := s.armies.StartRecall(ctx, a.ID, returnsAt); err != nil {
			return err
		}
		a.IsStationed = false
		a.IsReturning = true
		a.ReturnsAt = &returnsAt
		recalled = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recalled, nil
}

// Outgoing lists armies sent from one of the user's villages.
func (s *ArmyService) Outgoing(ctx context.Context, userID, villageID string) ([]model.Army, error) {
	if err := s.checkOwner(ctx, userID, villageID); err != nil {
		return nil, err
	}
	return s.armies.ListOutgoing(ctx, villageID)
}

// Incoming lists armies marching toward one of the user's villages.
func (s *ArmyService) Incoming(ctx context.Context, userID, villageID string) ([]model.Army, error) {
	if err := s.checkOwner(ctx, userID, villageID); err != nil {
		return nil, err
	}
	return s.armies.ListIncoming(ctx, villageID)
}

// Stationed lists support armies garrisoned at one of the user's villages.
func (s *ArmyService) Stationed(ctx context.Context, userID, villageID string) ([]model.Army, error) {
	if err := s.checkOwner(ctx, userID, villageID); err != nil {
		return nil, err
	}
	return s.armies.ListStationedAt(ctx, villageID)
}

// SupportSent lists the user's support armies stationed elsewhere.
func (s *ArmyService) SupportSent(ctx context.Context, userID string) ([]model.Army, error) {
	return s.armies.ListSupportSent(ctx, userID)
}

func (s *ArmyService) checkOwner(ctx context.Context, userID, villageID string) error {
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
	return nil
}

// targetVillage resolves the army's destination village, preferring the id
// recorded at dispatch but falling back to coordinates for villages founded
// since.
func (s *ArmyService) targetVillage(ctx context.Context, a *model.Army) (*model.Village, error) {
	if a.ToVillageID != "" {
		v, err := s.villages.FindByID(ctx, a.ToVillageID)
		if err != nil || v != nil {
			return v, err
		}
	}
	return s.villages.FindByCoordinates(ctx, a.ToX, a.ToY)
}

// defenders collects the target's own garrison, its stationed support armies,
// and the combined force that fights as one.
func (s *ArmyService) defenders(ctx context.Context, villageID string) (garrison battle.Troops, stationed []model.Army, combined battle.Troops, err error) {
	pools, err := s.troops.FindByVillage(ctx, villageID)
	if err != nil {
		return nil, nil, nil, err
	}
	garrison = battle.Troops{}
	for _, t := range pools {
		if t.InVillage > 0 {
			garrison[t.Type] = t.InVillage
		}
	}
	stationed, err = s.armies.ListStationedAt(ctx, villageID)
	if err != nil {
		return nil, nil, nil, err
	}
	combined = garrison.Clone()
	for i := range stationed {
		combined = combined.Merge(stationed[i].Troops)
	}
	return garrison, stationed, combined, nil
}

// applyDefenderLosses splits total defender losses proportionally between the
// village garrison and each stationed contingent. Stationed casualties are
// also discharged from their home villages' books; emptied support armies are
// removed.
func (s *ArmyService) applyDefenderLosses(ctx context.Context, villageID string, garrison battle.Troops, stationed []model.Army, combined, losses battle.Troops) error {
	for _, tt := range losses.Types() {
		total := losses[tt]
		whole := combined[tt]
		if share := battle.Share(total, garrison[tt], whole); share > 0 {
			if err := s.troops.Kill(ctx, villageID, tt, share); err != nil {
				return err
			}
		}
	}
	for i := range stationed {
		army := &stationed[i]
		survivors := army.Troops.Clone()
		changed := false
		for _, tt := range losses.Types() {
			share := battle.Share(losses[tt], army.Troops[tt], combined[tt])
			if share <= 0 {
				continue
			}
			changed = true
			if left := army.Troops[tt] - share; left > 0 {
				survivors[tt] = left
			} else {
				delete(survivors, tt)
			}
			if err := s.troops.Discharge(ctx, army.FromVillageID, tt, share); err != nil {
				return err
			}
		}
		if !changed {
			continue
		}
		if survivors.Total() == 0 {
			if err := s.armies.Delete(ctx, army.ID); err != nil {
				return err
			}
		} else if err := s.armies.UpdateStationedTroops(ctx, army.ID, survivors); err != nil {
			return err
		}
	}
	return nil
}

// dischargeAttackerLosses erases attacker casualties from the origin
// village's books so the owned count tracks reality.
func (s *ArmyService) dischargeAttackerLosses(ctx context.Context, a *model.Army, losses battle.Troops) error {
	for _, tt := range losses.Types() {
		if err := s.troops.Discharge(ctx, a.FromVillageID, tt, losses[tt]); err != nil {
			return err
		}
	}
	return nil
}

// initiateReturn turns the army around with its survivors and loot. Return
// travel time is recomputed because the survivors may move at a different
// pace than the force that set out.
func (s *ArmyService) initiateReturn(ctx context.Context, a *model.Army, survivors battle.Troops, loot catalog.Resources, reportID string) error {
	origin, err := s.villages.FindByID(ctx, a.FromVillageID)
	if err != nil {
		return err
	}
	if origin == nil {
		// Home village gone (conquered away mid-march); the army disbands.
		return s.armies.Delete(ctx, a.ID)
	}
	distance := battle.Distance(a.ToX, a.ToY, origin.X, origin.Y)
	returnsAt := s.now().Add(battle.TravelTime(distance, survivors, s.roster))
	return s.armies.SetReturning(ctx, a.ID, survivors, loot, returnsAt, reportID)
}

// hasChief reports whether the force contains at least one loyalty-reducing
// unit.
func hasChief(troops battle.Troops, roster catalog.Roster) bool {
	for _, tt := range troops.Types() {
		if roster[tt].Chief && troops[tt] > 0 {
			return true
		}
	}
	return false
}

// distributeProportionally spreads a total loss across troop types by their
// share of the force, in canonical order, capped at availability.
func distributeProportionally(troops battle.Troops, total int) battle.Troops {
	out := battle.Troops{}
	if total <= 0 {
		return out
	}
	whole := troops.Total()
	for _, tt := range troops.Types() {
		if share := battle.Share(total, troops[tt], whole); share > 0 {
			out[tt] = share
		}
	}
	return out
}

func winner(attackerWins bool) string {
	if attackerWins {
		return "attacker"
	}
	return "defender"
}

func (s *ArmyService) notifyBattle(attackerID, defenderID string, report *model.BattleReport) {
	payload := map[string]any{
		"report_id": report.ID,
		"winner":    report.Winner,
		"mission":   report.Mission,
	}
	s.broadcast.NotifyUser(attackerID, "battle_resolved", payload)
	if defenderID != "" && defenderID != attackerID {
		s.broadcast.NotifyUser(defenderID, "battle_resolved", payload)
	}
}
