package system

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/world"
)

// MonsterAISystem lets every monster act once per step interval.
// Phase 2 (Update).
type MonsterAISystem struct {
	m        *world.Map
	engine   *scripting.Engine // nil = built-in chase rule only
	params   world.FindPathParams
	interval int
	log      *zap.Logger

	monsters   []*Monster
	spectators *world.Spectators
}

func NewMonsterAISystem(m *world.Map, engine *scripting.Engine, params world.FindPathParams, intervalTicks int, log *zap.Logger) *MonsterAISystem {
	return &MonsterAISystem{
		m:          m,
		engine:     engine,
		params:     params,
		interval:   max(intervalTicks, 1),
		log:        log,
		spectators: world.NewSpectators(),
	}
}

func (s *MonsterAISystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Add hands monsters to the system. They must already be on the map.
func (s *MonsterAISystem) Add(monsters ...*Monster) {
	s.monsters = append(s.monsters, monsters...)
}

// Remove drops the monster with the given id from the map and the system.
func (s *MonsterAISystem) Remove(id uint32) bool {
	for i, mon := range s.monsters {
		if mon.ID() == id {
			s.m.RemoveCreature(mon)
			s.monsters = slices.Delete(s.monsters, i, i+1)
			return true
		}
	}
	return false
}

// Monster returns the monster with the given id, or nil.
func (s *MonsterAISystem) Monster(id uint32) *Monster {
	for _, mon := range s.monsters {
		if mon.ID() == id {
			return mon
		}
	}
	return nil
}

func (s *MonsterAISystem) Count() int { return len(s.monsters) }

func (s *MonsterAISystem) Update(_ time.Duration) {
	for _, mon := range s.monsters {
		if mon.stepTimer > 0 {
			mon.stepTimer--
			continue
		}
		mon.stepTimer = s.interval - 1
		s.think(mon)
	}
}

func (s *MonsterAISystem) think(mon *Monster) {
	targets := s.targets(mon)
	pos := mon.Position()
	ctx := scripting.AIContext{
		MonsterID: mon.ID(),
		Name:      mon.Name(),
		X:         pos.X,
		Y:         pos.Y,
		Z:         pos.Z,
		SpawnDist: world.Distance(pos, mon.Spawn),
		Range:     mon.Range,
		Targets:   targets,
	}
	s.execute(mon, s.decide(mon, ctx), targets)
}

// targets packs the players the monster can see, nearest first. Players
// on other layers are included when the view rules allow it; they never
// have Sight or Throw set.
func (s *MonsterAISystem) targets(mon *Monster) []scripting.AITarget {
	pos := mon.Position()
	s.spectators.Clear()
	s.m.GetSpectators(s.spectators, pos, true, true, 0, 0, 0, 0)

	throw := world.DefaultThrowOptions()
	throw.SameFloor = true
	out := make([]scripting.AITarget, 0, s.spectators.Len())
	for _, p := range s.spectators.All() {
		tp := p.Position()
		if !world.CanSee(pos, tp, world.MaxViewportX, world.MaxViewportY) {
			continue
		}
		out = append(out, scripting.AITarget{
			ID:     p.ID(),
			X:      tp.X,
			Y:      tp.Y,
			Z:      tp.Z,
			Dist:   world.Distance(pos, tp),
			Sight:  s.m.IsSightClear(pos, tp, true),
			Throw:  s.m.CanThrowObjectTo(pos, tp, throw),
			Player: p.Kind() == world.KindPlayer,
		})
	}
	slices.SortFunc(out, func(a, b scripting.AITarget) int {
		if c := cmp.Compare(a.Dist, b.Dist); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *MonsterAISystem) decide(mon *Monster, ctx scripting.AIContext) scripting.AICommand {
	if s.engine != nil && mon.AI != "" {
		if cmd, ok := s.engine.RunMonsterAI(mon.AI, ctx); ok {
			return cmd
		}
	}
	return chaseRule(ctx)
}

// chaseRule is the built-in behaviour: go for the nearest player in sight,
// attack once within range.
func chaseRule(ctx scripting.AIContext) scripting.AICommand {
	for _, t := range ctx.Targets {
		if !t.Sight {
			continue
		}
		if t.Dist <= max(ctx.Range, 1) {
			return scripting.AICommand{Action: scripting.ActionAttack, TargetID: t.ID, Dir: -1}
		}
		return scripting.AICommand{Action: scripting.ActionChase, TargetID: t.ID, Dir: -1}
	}
	return scripting.AICommand{Action: scripting.ActionIdle, Dir: -1}
}

func (s *MonsterAISystem) execute(mon *Monster, cmd scripting.AICommand, targets []scripting.AITarget) {
	switch cmd.Action {
	case scripting.ActionIdle:
	case scripting.ActionAttack:
		if t, ok := findTarget(targets, cmd.TargetID); ok {
			mon.SetDirection(world.DirectionTo(mon.Position(), targetPos(t)))
			s.log.Debug("monster attacks", zap.Uint32("monster", mon.ID()), zap.Uint32("target", t.ID))
		}
	case scripting.ActionChase:
		if t, ok := findTarget(targets, cmd.TargetID); ok {
			s.chase(mon, targetPos(t))
		}
	case scripting.ActionFlee:
		if t, ok := findTarget(targets, cmd.TargetID); ok {
			s.flee(mon, targetPos(t))
		}
	case scripting.ActionWander:
		s.wander(mon, cmd.Dir)
	}
}

func (s *MonsterAISystem) chase(mon *Monster, target world.Position) {
	params := s.params
	params.MinTargetDist = 1
	params.MaxTargetDist = max(mon.Range, 1)
	// keep distance only once inside the range box, or no neighbour qualifies
	params.KeepDistance = mon.Range > 1 && world.Distance(mon.Position(), target) <= mon.Range
	dirs, ok := s.m.GetPathTo(mon, target, params)
	if !ok || len(dirs) == 0 {
		return
	}
	s.step(mon, dirs[0])
}

// flee takes the walkable step that ends farthest from the threat.
func (s *MonsterAISystem) flee(mon *Monster, threat world.Position) {
	pos := mon.Position()
	best, bestDist := world.Direction(0), world.Distance(pos, threat)
	found := false
	for d := world.North; d <= world.NorthWest; d++ {
		next := pos.Moved(d)
		dist := world.Distance(next, threat)
		if dist <= bestDist || s.m.CanWalkTo(mon, next) == nil {
			continue
		}
		best, bestDist, found = d, dist, true
	}
	if found {
		s.step(mon, best)
	}
}

func (s *MonsterAISystem) wander(mon *Monster, dir int) {
	d := world.Direction(s.m.Rand().IntN(8))
	if dir >= 0 {
		d = world.Direction(dir)
	}
	if s.m.CanWalkTo(mon, mon.Position().Moved(d)) == nil {
		return
	}
	s.step(mon, d)
}

func (s *MonsterAISystem) step(mon *Monster, d world.Direction) {
	if err := s.m.MoveCreature(mon, mon.Position().Moved(d), false); err != nil {
		s.log.Debug("monster step failed", zap.Uint32("monster", mon.ID()), zap.Error(err))
	}
}

func findTarget(targets []scripting.AITarget, id uint32) (scripting.AITarget, bool) {
	if id == 0 && len(targets) > 0 {
		return targets[0], true
	}
	for _, t := range targets {
		if t.ID == id {
			return t, true
		}
	}
	return scripting.AITarget{}, false
}

func targetPos(t scripting.AITarget) world.Position {
	return world.Pos(t.X, t.Y, t.Z)
}
