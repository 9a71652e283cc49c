package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Tick intervals. Army movement runs tightest so arrivals resolve close to
// their due time; the resource sweep is only a safety net because reads
// refresh lazily.
const (
	buildTickInterval     = 10 * time.Second
	trainTickInterval     = 10 * time.Second
	movementTickInterval  = 5 * time.Second
	resourceSweepInterval = 5 * time.Minute
)

// Ticker drives the game clock: finished constructions, trained troops,
// arrived armies, and the periodic resource sweep.
type Ticker struct {
	buildings *BuildingService
	troops    *TroopService
	armies    *ArmyService
	resources *ResourceService
}

// NewTicker creates a Ticker.
func NewTicker(buildings *BuildingService, troops *TroopService, armies *ArmyService, resources *ResourceService) *Ticker {
	return &Ticker{buildings: buildings, troops: troops, armies: armies, resources: resources}
}

// Start launches the tick loops. They run until ctx is cancelled.
func (t *Ticker) Start(ctx context.Context) {
	go t.loop(ctx, "builds", buildTickInterval, t.buildings.CompleteDue)
	go t.loop(ctx, "training", trainTickInterval, t.troops.DrainDue)
	go t.loop(ctx, "movement", movementTickInterval, t.armies.ProcessArrivals)
	go t.loop(ctx, "resources", resourceSweepInterval, t.resources.SweepAll)
	log.Info().Msg("Tick scheduler started")
}

func (t *Ticker) loop(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("loop", name).Msg("Tick loop stopped")
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}
