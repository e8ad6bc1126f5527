package world

// Spectators is an insertion-ordered creature set keyed by creature ID.
// The zero value is ready to use.
type Spectators struct {
	list []Creature
	ids  map[uint32]struct{}
}

func NewSpectators() *Spectators {
	return &Spectators{list: make([]Creature, 0, 32), ids: make(map[uint32]struct{}, 32)}
}

// Add inserts c unless a creature with the same ID is already present.
func (s *Spectators) Add(c Creature) bool {
	if s.ids == nil {
		s.ids = make(map[uint32]struct{}, 32)
	}
	if _, ok := s.ids[c.ID()]; ok {
		return false
	}
	s.ids[c.ID()] = struct{}{}
	s.list = append(s.list, c)
	return true
}

// AddAll merges list into the set.
func (s *Spectators) AddAll(list []Creature) {
	for _, c := range list {
		s.Add(c)
	}
}

// Merge adds every member of o.
func (s *Spectators) Merge(o *Spectators) {
	s.AddAll(o.list)
}

// Remove drops c if present.
func (s *Spectators) Remove(c Creature) {
	if _, ok := s.ids[c.ID()]; !ok {
		return
	}
	delete(s.ids, c.ID())
	for i, cur := range s.list {
		if cur.ID() == c.ID() {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
}

func (s *Spectators) Contains(id uint32) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Spectators) Len() int { return len(s.list) }

// All returns the members in insertion order. The slice must not be modified.
func (s *Spectators) All() []Creature { return s.list }

// IDs returns the member IDs in insertion order.
func (s *Spectators) IDs() []uint32 {
	out := make([]uint32, len(s.list))
	for i, c := range s.list {
		out[i] = c.ID()
	}
	return out
}

func (s *Spectators) Clear() {
	s.list = s.list[:0]
	clear(s.ids)
}

// GetSpectators adds to out every creature (or only players) that observes
// center. Ranges are extents from center: minRangeX tiles to the west,
// maxRangeX to the east and likewise for y; zero selects the viewport.
// With multifloor the layer window follows the view rules of center.Z.
//
// Default-range multifloor queries, whether the ranges are zero or spelled
// out, are served from and stored into the spectator caches.
func (m *Map) GetSpectators(out *Spectators, center Position, multifloor, onlyPlayers bool,
	minRangeX, maxRangeX, minRangeY, maxRangeY int32) {
	if center.Z < LayerLowerLimit || center.Z > LayerUpperLimit {
		return
	}

	if minRangeX == 0 {
		minRangeX = MaxViewportX
	}
	if maxRangeX == 0 {
		maxRangeX = MaxViewportX
	}
	if minRangeY == 0 {
		minRangeY = MaxViewportY
	}
	if maxRangeY == 0 {
		maxRangeY = MaxViewportY
	}

	cacheable := m.cacheEnabled && multifloor &&
		minRangeX == MaxViewportX && maxRangeX == MaxViewportX &&
		minRangeY == MaxViewportY && maxRangeY == MaxViewportY
	if cacheable {
		if onlyPlayers {
			if cached, ok := m.playersSpectatorCache[center]; ok {
				out.AddAll(cached)
				return
			}
		}
		if cached, ok := m.spectatorCache[center]; ok {
			for _, c := range cached {
				if !onlyPlayers || isPlayer(c) {
					out.Add(c)
				}
			}
			return
		}
	}

	minZ, maxZ := layerWindow(center.Z, multifloor)

	if !cacheable {
		m.scanSpectators(out, center, -minRangeX, maxRangeX, -minRangeY, maxRangeY, minZ, maxZ, onlyPlayers)
		return
	}

	found := NewSpectators()
	m.scanSpectators(found, center, -minRangeX, maxRangeX, -minRangeY, maxRangeY, minZ, maxZ, onlyPlayers)
	out.Merge(found)
	snapshot := append([]Creature(nil), found.list...)
	if onlyPlayers {
		m.playersSpectatorCache[center] = snapshot
	} else {
		m.spectatorCache[center] = snapshot
	}
}

// layerWindow returns the visible layer range around z.
func layerWindow(z int32, multifloor bool) (int32, int32) {
	if !multifloor {
		return z, z
	}
	switch {
	case z > SeaLevel:
		// underground: two layers up and down
		return max(z-2, LayerLowerLimit), min(z+2, LayerUpperLimit)
	case z == SeaLevel-1:
		return 0, SeaLevel + 1
	case z == SeaLevel:
		return 0, SeaLevel + 2
	}
	return 0, SeaLevel
}

func clampCoord(v int32) int32 {
	return min(max(v, 0), MaxCoord)
}

// scanSpectators walks the leaves covering the query rectangle, widened by
// the layer perspective shift, and filters candidates exactly.
func (m *Map) scanSpectators(out *Spectators, center Position, minX, maxX, minY, maxY, minZ, maxZ int32, onlyPlayers bool) {
	minXAbs := center.X + minX
	maxXAbs := center.X + maxX
	minYAbs := center.Y + minY
	maxYAbs := center.Y + maxY

	minOffset := center.Z - maxZ
	maxOffset := center.Z - minZ
	x1 := clampCoord(minXAbs + minOffset)
	y1 := clampCoord(minYAbs + minOffset)
	x2 := clampCoord(maxXAbs + maxOffset)
	y2 := clampCoord(maxYAbs + maxOffset)

	startX := x1 &^ floorMask
	startY := y1 &^ floorMask
	endX := x2 &^ floorMask
	endY := y2 &^ floorMask

	t := m.tree
	rowLeaf := t.leafAt(startX, startY)
	for ny := startY; ny <= endY; ny += FloorSize {
		cur := rowLeaf
		for nx := startX; nx <= endX; nx += FloorSize {
			if cur == noNode {
				cur = t.leafAt(nx+FloorSize, ny)
				continue
			}
			l := t.leaf(cur)
			list := l.creatures
			if onlyPlayers {
				list = l.players
			}
			for _, c := range list {
				cpos := c.Position()
				if cpos.Z < minZ || cpos.Z > maxZ {
					continue
				}
				offsetZ := center.Z - cpos.Z
				if cpos.Y < minYAbs+offsetZ || cpos.Y > maxYAbs+offsetZ ||
					cpos.X < minXAbs+offsetZ || cpos.X > maxXAbs+offsetZ {
					continue
				}
				out.Add(c)
			}
			cur = l.east
		}
		if rowLeaf != noNode {
			rowLeaf = t.leaf(rowLeaf).south
		} else {
			rowLeaf = t.leafAt(startX, ny+FloorSize)
		}
	}
}

// ClearSpectatorCache drops the general spectator cache.
func (m *Map) ClearSpectatorCache() {
	clear(m.spectatorCache)
}

// ClearPlayersSpectatorCache drops the players-only spectator cache.
func (m *Map) ClearPlayersSpectatorCache() {
	clear(m.playersSpectatorCache)
}

func (m *Map) clearCachesFor(c Creature) {
	m.ClearSpectatorCache()
	if isPlayer(c) {
		m.ClearPlayersSpectatorCache()
	}
}

func (m *Map) clearAllCaches() {
	m.ClearSpectatorCache()
	m.ClearPlayersSpectatorCache()
}
