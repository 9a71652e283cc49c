package service

import (
	"context"
	"fmt"

	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// LoadRoster reads the troop definitions into an immutable roster. Called once
// at boot; services treat the result as read-only.
func LoadRoster(ctx context.Context, troops repository.TroopRepository) (catalog.Roster, error) {
	defs, err := troops.AllDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("load roster: troop_definitions table is empty, run migrations")
	}
	roster := make(catalog.Roster, len(defs))
	for _, d := range defs {
		roster[d.Type] = d
	}
	return roster, nil
}
