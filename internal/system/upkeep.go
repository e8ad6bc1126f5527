package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// MapUpkeepSystem removes cleanable items and reports index statistics.
// Phase 3 (PostUpdate).
type MapUpkeepSystem struct {
	m             *world.Map
	log           *zap.Logger
	cleanInterval int
	statsInterval int
	ticks         int
}

// NewMapUpkeepSystem builds the system. An interval of 0 disables that task.
func NewMapUpkeepSystem(m *world.Map, log *zap.Logger, cleanInterval, statsInterval int) *MapUpkeepSystem {
	return &MapUpkeepSystem{
		m:             m,
		log:           log,
		cleanInterval: cleanInterval,
		statsInterval: statsInterval,
	}
}

func (s *MapUpkeepSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MapUpkeepSystem) Update(_ time.Duration) {
	s.ticks++
	if s.cleanInterval > 0 && s.ticks%s.cleanInterval == 0 {
		if n := s.m.Clean(); n > 0 {
			s.log.Info("map cleaned", zap.Int("items", n))
		}
	}
	if s.statsInterval > 0 && s.ticks%s.statsInterval == 0 {
		st := s.m.Stats()
		s.log.Info(s.m.GridStats().String(),
			zap.Int("leaves", st.Leaves),
			zap.Int("tiles", st.Tiles),
			zap.Int("creatures", st.Creatures),
			zap.Int("spectator_cache", st.SpectatorCache),
			zap.Int("players_spectator_cache", st.PlayersSpectatorCache))
	}
}
