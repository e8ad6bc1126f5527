package world

import "fmt"

// GridSize is the edge of a player region in tiles. "Players near here"
// is a 3x3 region scan.
const GridSize = 32

type regionKey struct {
	rx int32
	ry int32
}

func toRegionCoord(v int32) int32 {
	if v < 0 {
		return (v - GridSize + 1) / GridSize
	}
	return v / GridSize
}

func regionOf(pos Position) regionKey {
	return regionKey{rx: toRegionCoord(pos.X), ry: toRegionCoord(pos.Y)}
}

// PlayerGrid tracks which players are in which region. Emptied regions
// keep their entry until Clear so that Stats can report them.
// Accessed only from the game loop goroutine, no locks.
type PlayerGrid struct {
	regions map[regionKey][]Creature
}

func NewPlayerGrid() *PlayerGrid {
	return &PlayerGrid{
		regions: make(map[regionKey][]Creature),
	}
}

// Add puts a player into the region of pos. Adding twice is a no-op.
func (g *PlayerGrid) Add(p Creature, pos Position) {
	k := regionOf(pos)
	list := g.regions[k]
	for _, c := range list {
		if c.ID() == p.ID() {
			return
		}
	}
	g.regions[k] = append(list, p)
}

// Remove takes a player out of the region of pos.
func (g *PlayerGrid) Remove(p Creature, pos Position) {
	k := regionOf(pos)
	list, ok := g.regions[k]
	if !ok {
		return
	}
	g.regions[k], _ = removeByID(list, p.ID())
}

// Update moves a player between regions when the move crosses a boundary.
func (g *PlayerGrid) Update(p Creature, oldPos, newPos Position) {
	if regionOf(oldPos) == regionOf(newPos) {
		return
	}
	g.Remove(p, oldPos)
	g.Add(p, newPos)
}

// Clear drops every region.
func (g *PlayerGrid) Clear() {
	g.regions = make(map[regionKey][]Creature)
}

// Region returns the players registered in the region containing pos.
func (g *PlayerGrid) Region(pos Position) []Creature {
	return g.regions[regionOf(pos)]
}

// Near appends the players of the 3x3 regions around pos to buf.
// Caller does fine-grained distance filtering.
func (g *PlayerGrid) Near(pos Position, buf []Creature) []Creature {
	k := regionOf(pos)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			buf = append(buf, g.regions[regionKey{rx: k.rx + dx, ry: k.ry + dy}]...)
		}
	}
	return buf
}

// GridStats summarises region population for capacity diagnosis.
type GridStats struct {
	Regions            int     `json:"regions"`
	Players            int     `json:"players"`
	EmptyRegions       int     `json:"empty_regions"`
	MaxPlayersInRegion int     `json:"max_players_in_region"`
	AvgPlayersOccupied float64 `json:"avg_players_occupied"`
}

func (s GridStats) String() string {
	return fmt.Sprintf("Grid stats: %d regions, %d players, %d empty regions, max %d players in a region",
		s.Regions, s.Players, s.EmptyRegions, s.MaxPlayersInRegion)
}

// Stats walks every region. Not for the hot path.
func (g *PlayerGrid) Stats() GridStats {
	var s GridStats
	s.Regions = len(g.regions)
	for _, list := range g.regions {
		n := len(list)
		s.Players += n
		if n == 0 {
			s.EmptyRegions++
		}
		if n > s.MaxPlayersInRegion {
			s.MaxPlayersInRegion = n
		}
	}
	if occupied := s.Regions - s.EmptyRegions; occupied > 0 {
		s.AvgPlayersOccupied = float64(s.Players) / float64(occupied)
	}
	return s
}
