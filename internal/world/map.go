package world

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidPosition = errors.New("world: invalid position")
	ErrNoTile          = errors.New("world: no tile")
	ErrNotPlaced       = errors.New("world: creature not placed")
	ErrBlocked         = errors.New("world: destination blocked")
)

// Observer receives creature lifecycle notifications together with the
// creatures that could see the change.
type Observer interface {
	CreatureAppeared(c Creature, spectators *Spectators)
	CreatureMoved(c Creature, from, to Position, teleport bool, spectators *Spectators)
	CreatureDisappeared(c Creature, pos Position, spectators *Spectators)
}

// Map owns the spatial index, the player regions and the spectator caches.
// Accessed only from the game loop goroutine, no locks.
type Map struct {
	tree      *quadTree
	width     int32
	height    int32
	creatures map[uint32]Creature
	players   *PlayerGrid

	spectatorCache        map[Position][]Creature
	playersSpectatorCache map[Position][]Creature
	cacheEnabled          bool

	observer Observer
	rng      *rand.Rand
	log      *zap.Logger
}

func NewMap(log *zap.Logger) *Map {
	if log == nil {
		log = zap.NewNop()
	}
	seed := uint64(time.Now().UnixNano())
	return &Map{
		tree:                  newQuadTree(),
		creatures:             make(map[uint32]Creature),
		players:               NewPlayerGrid(),
		spectatorCache:        make(map[Position][]Creature),
		playersSpectatorCache: make(map[Position][]Creature),
		cacheEnabled:          true,
		rng:                   rand.New(rand.NewPCG(seed, seed>>1)),
		log:                   log,
	}
}

// SetObserver installs the lifecycle observer. nil disables notifications.
func (m *Map) SetObserver(o Observer) { m.observer = o }

// SetSpectatorCache toggles the default-range spectator caches.
func (m *Map) SetSpectatorCache(enabled bool) {
	m.cacheEnabled = enabled
	m.clearAllCaches()
}

// SetSeed makes placement shuffles reproducible.
func (m *Map) SetSeed(seed uint64) {
	m.rng = rand.New(rand.NewPCG(seed, seed>>1))
}

// SetSize records the loaded world dimensions.
func (m *Map) SetSize(width, height int32) {
	m.width, m.height = width, height
}

func (m *Map) Width() int32  { return m.width }
func (m *Map) Height() int32 { return m.height }

// Rand exposes the map's random source to loop-confined callers.
func (m *Map) Rand() *rand.Rand { return m.rng }

// GetTile returns the tile at pos, or nil when nothing was ever written there.
func (m *Map) GetTile(pos Position) *Tile {
	if pos.Z < LayerLowerLimit || pos.Z > LayerUpperLimit {
		return nil
	}
	leaf := m.tree.leafAt(pos.X, pos.Y)
	if leaf == noNode {
		return nil
	}
	f := m.tree.floor(leaf, pos.Z, false)
	if f == nil {
		return nil
	}
	return f.tile(pos.X, pos.Y)
}

// SetTile stores t at pos. When a tile already occupies the slot, t's
// ground replaces the existing ground and its items are appended.
func (m *Map) SetTile(pos Position, t *Tile) error {
	if !pos.Valid() {
		m.log.Error("set tile out of bounds", zap.Stringer("pos", pos))
		return fmt.Errorf("set tile %s: %w", pos, ErrInvalidPosition)
	}
	leaf := m.tree.createLeaf(pos.X, pos.Y)
	f := m.tree.floor(leaf, pos.Z, true)
	if existing := f.tile(pos.X, pos.Y); existing != nil {
		if t.ground != nil {
			existing.ground = t.ground
		}
		existing.items = append(existing.items, t.items...)
		existing.zone |= t.zone
	} else {
		t.pos = pos
		f.setTile(pos.X, pos.Y, t)
	}
	m.clearAllCaches()
	return nil
}

// RemoveTile clears the slot at pos. Creatures standing there are removed
// from the map.
func (m *Map) RemoveTile(pos Position) {
	t := m.GetTile(pos)
	if t == nil {
		return
	}
	for i := len(t.creatures) - 1; i >= 0; i-- {
		m.RemoveCreature(t.creatures[i])
	}
	leaf := m.tree.leafAt(pos.X, pos.Y)
	m.tree.floor(leaf, pos.Z, false).setTile(pos.X, pos.Y, nil)
	m.clearAllCaches()
}

// AddItem puts it on the tile at pos.
func (m *Map) AddItem(pos Position, it *Item) error {
	t := m.GetTile(pos)
	if t == nil {
		return fmt.Errorf("add item at %s: %w", pos, ErrNoTile)
	}
	t.addItem(it)
	m.clearAllCaches()
	return nil
}

// RemoveItem takes it off the tile at pos.
func (m *Map) RemoveItem(pos Position, it *Item) bool {
	t := m.GetTile(pos)
	if t == nil || !t.removeItem(it) {
		return false
	}
	m.clearAllCaches()
	return true
}

// Creature returns a placed creature by ID.
func (m *Map) Creature(id uint32) Creature {
	return m.creatures[id]
}

// EachCreature calls fn for every placed creature.
func (m *Map) EachCreature(fn func(Creature)) {
	for _, c := range m.creatures {
		fn(c)
	}
}

var normalRelList = [][2]int32{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

var extendedRelList = [][2]int32{
	{0, -2}, {-1, -1}, {0, -1}, {1, -1},
	{-2, 0}, {-1, 0}, {1, 0}, {2, 0},
	{-1, 1}, {0, 1}, {1, 1}, {0, 2},
}

// PlaceCreature puts c on center or, when that tile refuses it, on a
// random free neighbour. extendedPos widens the search to two tiles and
// requires sight from center. forced accepts the center tile regardless
// of obstacles.
func (m *Map) PlaceCreature(c Creature, center Position, extendedPos, forced bool) bool {
	if _, ok := m.creatures[c.ID()]; ok {
		m.log.Error("creature already placed", zap.Uint32("id", c.ID()))
		return false
	}

	var dest *Tile
	placeInPZ := false
	if t := m.GetTile(center); t != nil {
		placeInPZ = t.HasZone(ZoneProtection)
		if forced || m.acceptsLogin(t, c, FlagIgnoreBlockItem) {
			dest = t
		}
	}

	if dest == nil {
		var rel [][2]int32
		if extendedPos {
			rel = append(rel, extendedRelList...)
			m.rng.Shuffle(4, func(i, j int) { rel[i], rel[j] = rel[j], rel[i] })
			tail := rel[4:]
			m.rng.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })
		} else {
			rel = append(rel, normalRelList...)
			m.rng.Shuffle(len(rel), func(i, j int) { rel[i], rel[j] = rel[j], rel[i] })
		}
		for _, d := range rel {
			tryPos := Position{X: center.X + d[0], Y: center.Y + d[1], Z: center.Z}
			t := m.GetTile(tryPos)
			if t == nil || (placeInPZ && !t.HasZone(ZoneProtection)) {
				continue
			}
			if !m.acceptsLogin(t, c, 0) {
				continue
			}
			if extendedPos && !m.IsSightClear(center, tryPos, false) {
				continue
			}
			dest = t
			break
		}
		if dest == nil {
			return false
		}
	}

	pos := dest.pos
	dest.addCreature(c)
	c.SetPosition(pos)
	m.tree.leaf(m.tree.leafAt(pos.X, pos.Y)).addCreature(c)
	m.creatures[c.ID()] = c
	if isPlayer(c) {
		m.players.Add(c, pos)
	}
	m.clearCachesFor(c)

	if m.observer != nil {
		spectators := NewSpectators()
		m.GetSpectators(spectators, pos, true, false, 0, 0, 0, 0)
		m.observer.CreatureAppeared(c, spectators)
	}
	return true
}

func (m *Map) acceptsLogin(t *Tile, c Creature, flags QueryFlags) bool {
	if isPlayer(c) && t.HasZone(ZoneNoLogout) {
		return false
	}
	return t.QueryAdd(c, flags) == ReturnOK
}

// MoveCreature relocates a placed creature to newPos. Unless forced, the
// destination must accept the creature.
func (m *Map) MoveCreature(c Creature, newPos Position, forced bool) error {
	if _, ok := m.creatures[c.ID()]; !ok {
		return fmt.Errorf("move creature %d: %w", c.ID(), ErrNotPlaced)
	}
	oldPos := c.Position()
	oldTile := m.GetTile(oldPos)
	newTile := m.GetTile(newPos)
	if newTile == nil {
		return fmt.Errorf("move creature %d to %s: %w", c.ID(), newPos, ErrNoTile)
	}
	if !forced {
		if ret := newTile.QueryAdd(c, 0); ret != ReturnOK {
			return fmt.Errorf("move creature %d to %s: %w: %s", c.ID(), newPos, ErrBlocked, ret)
		}
	}

	teleport := forced || newTile.ground == nil || !InRange(oldPos, newPos, 1, 1) || oldPos.Z != newPos.Z

	var spectators *Spectators
	if m.observer != nil {
		spectators = NewSpectators()
		m.GetSpectators(spectators, oldPos, true, false, 0, 0, 0, 0)
		m.GetSpectators(spectators, newPos, true, false, 0, 0, 0, 0)
	}

	if oldTile != nil && !oldTile.removeCreature(c) {
		m.log.Error("creature missing from its tile", zap.Uint32("id", c.ID()), zap.Stringer("pos", oldPos))
	}
	newTile.addCreature(c)
	c.SetPosition(newPos)

	oldLeaf := m.tree.leafAt(oldPos.X, oldPos.Y)
	newLeaf := m.tree.leafAt(newPos.X, newPos.Y)
	if oldLeaf != newLeaf {
		if oldLeaf != noNode {
			m.tree.leaf(oldLeaf).removeCreature(c)
		}
		m.tree.leaf(newLeaf).addCreature(c)
	}
	if isPlayer(c) {
		m.UpdatePlayerRegion(c, oldPos, newPos)
	}
	m.clearCachesFor(c)

	if !teleport {
		if oldPos.Y > newPos.Y {
			c.SetDirection(North)
		} else if oldPos.Y < newPos.Y {
			c.SetDirection(South)
		}
		if oldPos.X < newPos.X {
			c.SetDirection(East)
		} else if oldPos.X > newPos.X {
			c.SetDirection(West)
		}
	}

	if m.observer != nil {
		m.observer.CreatureMoved(c, oldPos, newPos, teleport, spectators)
	}
	return nil
}

// RemoveCreature unregisters c from its tile, leaf and region.
func (m *Map) RemoveCreature(c Creature) bool {
	if _, ok := m.creatures[c.ID()]; !ok {
		m.log.Error("remove of unplaced creature", zap.Uint32("id", c.ID()))
		return false
	}
	pos := c.Position()

	var spectators *Spectators
	if m.observer != nil {
		spectators = NewSpectators()
		m.GetSpectators(spectators, pos, true, false, 0, 0, 0, 0)
	}

	if t := m.GetTile(pos); t != nil {
		t.removeCreature(c)
	}
	if leaf := m.tree.leafAt(pos.X, pos.Y); leaf != noNode {
		if !m.tree.leaf(leaf).removeCreature(c) {
			m.log.Error("creature missing from its leaf", zap.Uint32("id", c.ID()), zap.Stringer("pos", pos))
		}
	}
	if isPlayer(c) {
		m.players.Remove(c, pos)
	}
	delete(m.creatures, c.ID())
	m.clearCachesFor(c)

	if m.observer != nil {
		m.observer.CreatureDisappeared(c, pos, spectators)
	}
	return true
}

// UpdatePlayerRegion keeps the region index in step with a player move.
func (m *Map) UpdatePlayerRegion(p Creature, oldPos, newPos Position) {
	m.players.Update(p, oldPos, newPos)
}

// ClearPlayerGrid resets the region index, e.g. before a full reload.
func (m *Map) ClearPlayerGrid() {
	m.players.Clear()
}

// PlayersNear returns the players registered in the 3x3 regions around pos.
func (m *Map) PlayersNear(pos Position) []Creature {
	return m.players.Near(pos, nil)
}

// GridStats reports the region index population.
func (m *Map) GridStats() GridStats {
	return m.players.Stats()
}

// CanWalkTo returns the tile at pos when c may step there during
// pathfinding, or nil.
func (m *Map) CanWalkTo(c Creature, pos Position) *Tile {
	if wc, ok := c.(WalkCacher); ok {
		switch wc.WalkCache(pos) {
		case 0:
			return nil
		case 1:
			return m.GetTile(pos)
		}
	}

	t := m.GetTile(pos)
	if t == nil {
		return nil
	}
	if t.pos == c.Position() {
		if _, placed := m.creatures[c.ID()]; placed {
			return t
		}
	}
	flags := FlagPathfinding
	if !isPlayer(c) {
		flags |= FlagIgnoreFieldDamage
	}
	if t.QueryAdd(c, flags) != ReturnOK {
		return nil
	}
	return t
}

// Clean removes cleanable items from every tile outside houses and
// no-clean zones and returns how many were removed.
func (m *Map) Clean() int {
	removed := 0
	m.eachTile(func(t *Tile) {
		if t.HasZone(ZoneHouse | ZoneNoClean) {
			return
		}
		kept := t.items[:0]
		for _, it := range t.items {
			if it.Type != nil && it.Type.Cleanable {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		for i := len(kept); i < len(t.items); i++ {
			t.items[i] = nil
		}
		t.items = kept
	})
	if removed > 0 {
		m.clearAllCaches()
	}
	return removed
}

// HouseTiles returns every tile flagged as part of a house.
func (m *Map) HouseTiles() []*Tile {
	var out []*Tile
	m.eachTile(func(t *Tile) {
		if t.HasZone(ZoneHouse) {
			out = append(out, t)
		}
	})
	return out
}

// RestoreItems replaces the item stack of the tile at pos.
func (m *Map) RestoreItems(pos Position, items []*Item) error {
	t := m.GetTile(pos)
	if t == nil {
		return fmt.Errorf("restore items at %s: %w", pos, ErrNoTile)
	}
	t.items = append(t.items[:0], items...)
	m.clearAllCaches()
	return nil
}

func (m *Map) eachTile(fn func(*Tile)) {
	for i := range m.tree.leaves {
		for _, f := range m.tree.leaves[i].floors {
			if f == nil {
				continue
			}
			for x := range f.tiles {
				for y := range f.tiles[x] {
					if t := f.tiles[x][y]; t != nil {
						fn(t)
					}
				}
			}
		}
	}
}

// Stats counts index and cache occupancy. Not for the hot path.
type Stats struct {
	Nodes                 int `json:"nodes"`
	Leaves                int `json:"leaves"`
	Floors                int `json:"floors"`
	Tiles                 int `json:"tiles"`
	Creatures             int `json:"creatures"`
	Players               int `json:"players"`
	SpectatorCache        int `json:"spectator_cache"`
	PlayersSpectatorCache int `json:"players_spectator_cache"`
}

func (m *Map) Stats() Stats {
	s := Stats{
		Nodes:                 len(m.tree.nodes),
		Leaves:                len(m.tree.leaves),
		Creatures:             len(m.creatures),
		SpectatorCache:        len(m.spectatorCache),
		PlayersSpectatorCache: len(m.playersSpectatorCache),
	}
	for i := range m.tree.leaves {
		l := &m.tree.leaves[i]
		s.Players += len(l.players)
		for _, f := range l.floors {
			if f != nil {
				s.Floors++
				s.Tiles += f.count()
			}
		}
	}
	return s
}
