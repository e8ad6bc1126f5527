package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/persist"
	"github.com/l1jgo/worldcore/internal/world"
)

// TileStore saves house tile snapshots. persist.TileRepo implements it.
type TileStore interface {
	Save(ctx context.Context, snaps []persist.TileSnapshot) error
}

// PersistenceSystem periodically saves the item stacks of every house tile.
// Phase 4 (Persist).
type PersistenceSystem struct {
	m         *world.Map
	store     TileStore
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks
}

func NewPersistenceSystem(m *world.Map, store TileStore, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		m:        m,
		store:    store,
		log:      log,
		interval: max(intervalTicks, 1),
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if err := s.SaveHouses(); err != nil {
		s.log.Error("house tile save failed", zap.Error(err))
	}
}

// SaveHouses writes every house tile immediately. Called on the game loop,
// and once more for graceful shutdown.
func (s *PersistenceSystem) SaveHouses() error {
	snaps := persist.SnapshotHouseTiles(s.m)
	if len(snaps) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, snaps); err != nil {
		return fmt.Errorf("save %d house tiles: %w", len(snaps), err)
	}
	s.log.Info("house tiles saved", zap.Int("tiles", len(snaps)))
	return nil
}
