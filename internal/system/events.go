package system

import (
	"time"

	"github.com/l1jgo/worldcore/internal/core/event"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// EventDispatchSystem delivers last tick's events. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// BusObserver turns map notifications into bus events.
type BusObserver struct {
	bus *event.Bus
}

func NewBusObserver(bus *event.Bus) *BusObserver {
	return &BusObserver{bus: bus}
}

var _ world.Observer = (*BusObserver)(nil)

func (o *BusObserver) CreatureAppeared(c world.Creature, spectators *world.Spectators) {
	event.Emit(o.bus, event.CreatureAppeared{
		CreatureID: c.ID(),
		Kind:       c.Kind(),
		Pos:        c.Position(),
		Spectators: spectatorIDs(spectators),
	})
}

func (o *BusObserver) CreatureMoved(c world.Creature, from, to world.Position, teleport bool, spectators *world.Spectators) {
	event.Emit(o.bus, event.CreatureMoved{
		CreatureID: c.ID(),
		Kind:       c.Kind(),
		From:       from,
		To:         to,
		Teleport:   teleport,
		Spectators: spectatorIDs(spectators),
	})
}

func (o *BusObserver) CreatureDisappeared(c world.Creature, pos world.Position, spectators *world.Spectators) {
	event.Emit(o.bus, event.CreatureDisappeared{
		CreatureID: c.ID(),
		Kind:       c.Kind(),
		Pos:        pos,
		Spectators: spectatorIDs(spectators),
	})
}

func spectatorIDs(s *world.Spectators) []uint32 {
	if s == nil {
		return nil
	}
	return s.IDs()
}
