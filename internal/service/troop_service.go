package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// TroopService manages troop pools and the training queue.
type TroopService struct {
	tx        repository.TxManager
	villages  repository.VillageRepository
	buildings repository.BuildingRepository
	troops    repository.TroopRepository
	resources *ResourceService
	roster    catalog.Roster
	broadcast Broadcaster
	now       func() time.Time
}

// NewTroopService creates a TroopService.
func NewTroopService(tx repository.TxManager, villages repository.VillageRepository, buildings repository.BuildingRepository, troops repository.TroopRepository, resources *ResourceService, roster catalog.Roster, broadcast Broadcaster) *TroopService {
	return &TroopService{
		tx:        tx,
		villages:  villages,
		buildings: buildings,
		troops:    troops,
		resources: resources,
		roster:    roster,
		broadcast: broadcast,
		now:       time.Now,
	}
}

// Definitions returns the troop roster in canonical order.
func (s *TroopService) Definitions() []catalog.UnitStats {
	out := make([]catalog.UnitStats, 0, len(s.roster))
	for _, stats := range s.roster {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// List returns a village's troop pools.
func (s *TroopService) List(ctx context.Context, userID, villageID string) ([]model.Troop, error) {
	if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
		return nil, err
	}
	return s.troops.FindByVillage(ctx, villageID)
}

// Queue returns a village's pending training orders.
func (s *TroopService) Queue(ctx context.Context, userID, villageID string) (*model.QueueStatus, error) {
	if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
		return nil, err
	}
	orders, err := s.troops.OrdersByVillage(ctx, villageID)
	if err != nil {
		return nil, err
	}
	status := &model.QueueStatus{Orders: orders}
	if len(orders) > 0 {
		last := orders[len(orders)-1].EndsAt
		status.CompletesAt = &last
	}
	return status, nil
}

// Train queues count units of a troop type. The order starts when the last
// queued order finishes, so the queue is strictly FIFO.
func (s *TroopService) Train(ctx context.Context, userID, villageID string, tt catalog.TroopType, count int) (*model.TrainingOrder, error) {
	stats, ok := s.roster[tt]
	if !ok {
		return nil, ErrInvalidTroopType
	}
	if count <= 0 {
		return nil, ErrInvalidTroopCount
	}

	var order *model.TrainingOrder
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

		if stats.RequiredBuilding != "" {
			all, err := s.buildings.FindByVillage(ctx, villageID)
			if err != nil {
				return err
			}
			if !hasBuilding(stats.RequiredBuilding, stats.RequiredLevel, all) {
				return ErrPrereqNotMet
			}
		}

		cost := scaleCost(stats.Cost, count)
		ok, err := s.villages.Deduct(ctx, villageID, cost)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientResources
		}

		startsAt := s.now()
		lastEnd, err := s.troops.LastOrderEnd(ctx, villageID)
		if err != nil {
			return err
		}
		if lastEnd.After(startsAt) {
			startsAt = lastEnd
		}
		endsAt := startsAt.Add(time.Duration(count*stats.TrainSeconds) * time.Second)
		order, err = s.troops.CreateOrder(ctx, villageID, tt, count, stats.TrainSeconds, startsAt, endsAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder cancels a training order. Units already finished by now are
// banked into the garrison first; the rest of the cost is refunded, clamped
// to storage.
func (s *TroopService) CancelOrder(ctx context.Context, userID, villageID, orderID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, villageID); err != nil {
			return err
		}
		if _, err := s.ownedVillage(ctx, userID, villageID); err != nil {
			return err
		}

		order, err := s.troops.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil || order.VillageID != villageID {
			return ErrOrderNotFound
		}

		finished := unitsFinished(order, s.now())
		if finished > 0 {
			if err := s.troops.Add(ctx, villageID, order.Type, finished); err != nil {
				return err
			}
		}
		remaining := order.Count - finished
		if remaining > 0 {
			stats := s.roster[order.Type]
			if err := s.villages.Credit(ctx, villageID, scaleCost(stats.Cost, remaining)); err != nil {
				return err
			}
		}
		return s.troops.DeleteOrder(ctx, order.ID)
	})
}

// DrainDue credits finished units from every running order. Orders complete
// partially: an order for 30 units trickles into the garrison one unit per
// training interval instead of arriving as a block.
func (s *TroopService) DrainDue(ctx context.Context) {
	now := s.now()
	orders, err := s.troops.OrdersStarted(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Train queue: listing started orders failed")
		return
	}
	for _, order := range orders {
		if err := s.drainOne(ctx, order, now); err != nil {
			log.Error().Err(err).Str("orderId", order.ID).Msg("Train queue: drain failed")
		}
	}
}

func (s *TroopService) drainOne(ctx context.Context, order model.TrainingOrder, now time.Time) error {
	var owner string
	var credited int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.villages.Lock(ctx, order.VillageID); err != nil {
			return err
		}
		// Re-read inside the lock: another replica may have drained already.
		current, err := s.troops.FindOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		due := unitsFinished(current, now)
		if due <= 0 {
			return nil
		}
		if err := s.troops.Add(ctx, current.VillageID, current.Type, due); err != nil {
			return err
		}
		credited = due
		if due >= current.Count {
			if err := s.troops.DeleteOrder(ctx, current.ID); err != nil {
				return err
			}
		} else {
			advanced := current.StartedAt.Add(time.Duration(due*current.PerUnitSec) * time.Second)
			if err := s.troops.UpdateOrder(ctx, current.ID, current.Count-due, advanced); err != nil {
				return err
			}
		}
		v, err := s.villages.FindByID(ctx, current.VillageID)
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
	if owner != "" && credited > 0 {
		s.broadcast.NotifyUser(owner, "troops_trained", map[string]any{
			"village_id": order.VillageID,
			"troop_type": order.Type,
			"count":      credited,
		})
	}
	return nil
}

// unitsFinished returns how many units of the order have completed by now,
// capped at the order size. Orders whose start lies in the future yield zero.
func unitsFinished(order *model.TrainingOrder, now time.Time) int {
	if order.PerUnitSec <= 0 {
		return order.Count
	}
	elapsed := now.Sub(order.StartedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	done := int(elapsed) / order.PerUnitSec
	if done > order.Count {
		done = order.Count
	}
	return done
}

func scaleCost(unit catalog.Resources, count int) catalog.Resources {
	return catalog.Resources{
		Wood: unit.Wood * count,
		Clay: unit.Clay * count,
		Iron: unit.Iron * count,
		Crop: unit.Crop * count,
	}
}

func hasBuilding(required catalog.BuildingType, level int, existing []model.Building) bool {
	for _, b := range existing {
		if b.Type == required && b.Level >= level {
			return true
		}
	}
	return false
}

func (s *TroopService) ownedVillage(ctx context.Context, userID, villageID string) (*model.Village, error) {
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
