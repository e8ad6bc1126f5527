package world

import "slices"

const (
	// MaxNodes bounds the live search nodes of one pathfinding call.
	MaxNodes = 512

	NormalWalkCost   = 10
	DiagonalWalkCost = 25

	creatureWalkPenalty = NormalWalkCost * 3
	fieldWalkPenalty    = NormalWalkCost * 18

	// searches without MaxSearchDist stop after this many closed nodes
	unboundedClosedLimit = 100

	// every search stops after this many node expansions, reopens included
	maxExpansions = MaxNodes * 4
)

// FindPathParams tunes a path search.
type FindPathParams struct {
	FullPathSearch bool
	ClearSight     bool
	AllowDiagonal  bool
	KeepDistance   bool
	MaxSearchDist  int32
	MinTargetDist  int32
	MaxTargetDist  int32

	// ExtraCost, when set, is added to the walk cost of every step. A step
	// never costs less than 1.
	ExtraCost func(c Creature, from, to Position, tile *Tile) int32
}

func DefaultFindPathParams() FindPathParams {
	return FindPathParams{
		FullPathSearch: true,
		ClearSight:     true,
		AllowDiagonal:  true,
		MinTargetDist:  -1,
		MaxTargetDist:  -1,
	}
}

// PathCondition decides where a search may end.
type PathCondition interface {
	// Matches reports whether pos is an acceptable end. bestMatch carries
	// the best distance seen so far; setting it to 0 ends the search.
	Matches(start, pos Position, params FindPathParams, bestMatch *int32) bool
	// InRange is consulted for every neighbour when KeepDistance is set.
	InRange(start, pos Position, params FindPathParams) bool
	// Estimate is a lower bound on the walk cost from pos to any match.
	Estimate(pos Position, params FindPathParams) int32
}

// MatchFunc turns a plain predicate into an unguided PathCondition.
type MatchFunc func(pos Position) bool

func (f MatchFunc) Matches(_, pos Position, _ FindPathParams, _ *int32) bool { return f(pos) }
func (f MatchFunc) InRange(_, _ Position, _ FindPathParams) bool             { return true }
func (f MatchFunc) Estimate(_ Position, _ FindPathParams) int32              { return 0 }

// SightChecker is the part of Map a TargetCondition needs.
type SightChecker interface {
	IsSightClear(from, to Position, sameFloor bool) bool
}

// TargetCondition accepts positions between MinTargetDist and
// MaxTargetDist of Target, preferring MaxTargetDist.
type TargetCondition struct {
	Target Position
	Sight  SightChecker
}

func (tc TargetCondition) InRange(start, pos Position, params FindPathParams) bool {
	target := tc.Target
	maxDist := params.MaxTargetDist
	if params.FullPathSearch {
		return pos.X <= target.X+maxDist && pos.X >= target.X-maxDist &&
			pos.Y <= target.Y+maxDist && pos.Y >= target.Y-maxDist
	}

	dx := start.X - target.X
	dxMax, dxMin := int32(0), int32(0)
	if dx >= 0 {
		dxMax = maxDist
	}
	if dx <= 0 {
		dxMin = maxDist
	}
	if pos.X > target.X+dxMax+dx || pos.X < target.X-dxMin+dx {
		return false
	}

	dy := start.Y - target.Y
	dyMax, dyMin := int32(0), int32(0)
	if dy >= 0 {
		dyMax = maxDist
	}
	if dy <= 0 {
		dyMin = maxDist
	}
	return pos.Y <= target.Y+dyMax+dy && pos.Y >= target.Y-dyMin+dy
}

func (tc TargetCondition) Matches(start, pos Position, params FindPathParams, bestMatch *int32) bool {
	if !tc.InRange(start, pos, params) {
		return false
	}
	if params.ClearSight && tc.Sight != nil && !tc.Sight.IsSightClear(pos, tc.Target, true) {
		return false
	}

	dist := Distance(tc.Target, pos)
	if params.MaxTargetDist == 1 {
		return dist >= params.MinTargetDist && dist <= params.MaxTargetDist
	}
	if dist > params.MaxTargetDist || dist < params.MinTargetDist {
		return false
	}
	if dist == params.MaxTargetDist {
		*bestMatch = 0
		return true
	}
	if dist > *bestMatch {
		// not the preferred distance, but the best so far
		*bestMatch = dist
		return true
	}
	return false
}

// Estimate is the octile distance to the acceptance box around Target.
func (tc TargetCondition) Estimate(pos Position, params FindPathParams) int32 {
	reach := max(params.MaxTargetDist, 0)
	dx := max(DistanceX(pos, tc.Target)-reach, 0)
	dy := max(DistanceY(pos, tc.Target)-reach, 0)
	h := NormalWalkCost * (dx + dy)
	if params.AllowDiagonal && DiagonalWalkCost < 2*NormalWalkCost {
		h += (DiagonalWalkCost - 2*NormalWalkCost) * min(dx, dy)
	}
	return h
}

type pathNode struct {
	parent int32 // pool slot, -1 for the start node
	g      int32
	f      int32
	x, y   int32
}

// pathNodes is the fixed pool of one search.
type pathNodes struct {
	nodes  [MaxNodes]pathNode
	open   [MaxNodes]bool
	table  map[uint32]int32
	cur    int32
	closed int32
}

func nodeKey(x, y int32) uint32 {
	return uint32(x)<<16 | uint32(y)&0xFFFF
}

func newPathNodes(x, y, h int32) *pathNodes {
	p := &pathNodes{table: make(map[uint32]int32, MaxNodes)}
	p.nodes[0] = pathNode{parent: -1, g: 0, f: h, x: x, y: y}
	p.open[0] = true
	p.table[nodeKey(x, y)] = 0
	p.cur = 1
	return p
}

// createOpen returns the new slot, or -1 when the pool is exhausted.
func (p *pathNodes) createOpen(parent, x, y, g, f int32) int32 {
	if p.cur >= MaxNodes {
		return -1
	}
	i := p.cur
	p.cur++
	p.nodes[i] = pathNode{parent: parent, g: g, f: f, x: x, y: y}
	p.open[i] = true
	p.table[nodeKey(x, y)] = i
	return i
}

// best returns the open slot with the lowest f. Ties go to the lower
// slot, i.e. the node created first.
func (p *pathNodes) best() int32 {
	bestIdx := int32(-1)
	var bestF int32
	for i := int32(0); i < p.cur; i++ {
		if !p.open[i] {
			continue
		}
		if f := p.nodes[i].f; bestIdx == -1 || f < bestF {
			bestIdx, bestF = i, f
		}
	}
	return bestIdx
}

func (p *pathNodes) closeNode(i int32) {
	p.open[i] = false
	p.closed++
}

func (p *pathNodes) openNode(i int32) {
	if !p.open[i] {
		p.open[i] = true
		p.closed--
	}
}

func (p *pathNodes) lookup(x, y int32) int32 {
	if i, ok := p.table[nodeKey(x, y)]; ok {
		return i
	}
	return -1
}

var orthogonalSteps = [][2]int32{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

var allSteps = [][2]int32{
	{-1, 0}, {0, 1}, {1, 0}, {0, -1},
	{-1, -1}, {1, -1}, {1, 1}, {-1, 1},
}

func stepCost(dx, dy int32) int32 {
	if dx != 0 && dy != 0 {
		return DiagonalWalkCost
	}
	return NormalWalkCost
}

func tileWalkCost(c Creature, t *Tile) int32 {
	cost := int32(0)
	if t.TopCreature(c) != nil {
		cost += creatureWalkPenalty
	}
	if field := t.FieldItem(); field != nil {
		ct := field.Type.Field
		tr := c.Traits()
		if !tr.IsImmune(ct) && !tr.CanWalkOnField(ct) {
			cost += fieldWalkPenalty
		}
	}
	return cost
}

// GetPathMatching searches from c's position for a walkable route to a
// position accepted by cond. The returned directions run from the start.
// On failure the slice is nil.
func (m *Map) GetPathMatching(c Creature, cond PathCondition, params FindPathParams) ([]Direction, bool) {
	dirs, ok, _ := m.findPath(c, cond, params)
	return dirs, ok
}

// findPath also reports how many pool slots the search used.
func (m *Map) findPath(c Creature, cond PathCondition, params FindPathParams) ([]Direction, bool, int) {
	start := c.Position()
	nodes := newPathNodes(start.X, start.Y, cond.Estimate(start, params))

	steps := allSteps
	if !params.AllowDiagonal {
		steps = orthogonalSteps
	}

	bestMatch := int32(0)
	found := int32(-1)

	for expansions := 0; params.MaxSearchDist != 0 || nodes.closed < unboundedClosedLimit; expansions++ {
		if expansions == maxExpansions {
			if found == -1 {
				return nil, false, int(nodes.cur)
			}
			break
		}
		n := nodes.best()
		if n == -1 {
			break
		}
		cur := nodes.nodes[n]
		pos := Position{X: cur.x, Y: cur.y, Z: start.Z}

		if cond.Matches(start, pos, params, &bestMatch) {
			found = n
			if bestMatch == 0 {
				break
			}
		}

		exhausted := false
		for _, d := range steps {
			next := Position{X: cur.x + d[0], Y: cur.y + d[1], Z: start.Z}
			if params.MaxSearchDist != 0 &&
				(DistanceX(start, next) > params.MaxSearchDist || DistanceY(start, next) > params.MaxSearchDist) {
				continue
			}
			if params.KeepDistance && !cond.InRange(start, next, params) {
				continue
			}

			var tile *Tile
			known := nodes.lookup(next.X, next.Y)
			if known != -1 {
				tile = m.GetTile(next)
			} else if tile = m.CanWalkTo(c, next); tile == nil {
				continue
			}

			cost := stepCost(d[0], d[1])
			if tile != nil {
				cost += tileWalkCost(c, tile)
			}
			if params.ExtraCost != nil {
				cost += params.ExtraCost(c, pos, next, tile)
			}
			g := cur.g + max(cost, 1)

			if known != -1 {
				kn := &nodes.nodes[known]
				if kn.g <= g {
					continue
				}
				kn.f = g + (kn.f - kn.g)
				kn.g = g
				kn.parent = n
				nodes.openNode(known)
				continue
			}
			if nodes.createOpen(n, next.X, next.Y, g, g+cond.Estimate(next, params)) == -1 {
				exhausted = true
				break
			}
		}
		if exhausted {
			if found == -1 {
				return nil, false, int(nodes.cur)
			}
			break
		}
		nodes.closeNode(n)
	}

	if found == -1 {
		return nil, false, int(nodes.cur)
	}

	var dirs []Direction
	for i := found; nodes.nodes[i].parent != -1; i = nodes.nodes[i].parent {
		child := nodes.nodes[i]
		parent := nodes.nodes[child.parent]
		dirs = append(dirs, stepDirection(child.x-parent.x, child.y-parent.y))
	}
	slices.Reverse(dirs)
	return dirs, true, int(nodes.cur)
}

// GetPathTo finds a route that ends between MinTargetDist and
// MaxTargetDist of target. Negative distances select 0 and 1, i.e. a tile
// next to the target.
func (m *Map) GetPathTo(c Creature, target Position, params FindPathParams) ([]Direction, bool) {
	if params.MinTargetDist < 0 {
		params.MinTargetDist = 0
	}
	if params.MaxTargetDist < 0 {
		params.MaxTargetDist = 1
	}
	return m.GetPathMatching(c, TargetCondition{Target: target, Sight: m}, params)
}

// PathCost sums the base step costs of a direction list.
func PathCost(dirs []Direction) int32 {
	var cost int32
	for _, d := range dirs {
		if d.Diagonal() {
			cost += DiagonalWalkCost
		} else {
			cost += NormalWalkCost
		}
	}
	return cost
}
