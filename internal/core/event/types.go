package event

import "github.com/l1jgo/worldcore/internal/world"

// Creature lifecycle events, emitted by the map observer. Spectators holds
// the ids of the creatures that could see the change.

type CreatureAppeared struct {
	CreatureID uint32
	Kind       world.CreatureKind
	Pos        world.Position
	Spectators []uint32
}

type CreatureMoved struct {
	CreatureID uint32
	Kind       world.CreatureKind
	From       world.Position
	To         world.Position
	Teleport   bool
	Spectators []uint32
}

type CreatureDisappeared struct {
	CreatureID uint32
	Kind       world.CreatureKind
	Pos        world.Position
	Spectators []uint32
}
