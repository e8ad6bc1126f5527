package system

import (
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/world"
)

// Spawned creature ids start here, player ids stay below.
const spawnIDBase uint32 = 200_000_000

// Monster is a spawned creature driven by MonsterAISystem.
type Monster struct {
	*world.Actor
	Spawn world.Position
	AI    string // Lua function, empty = built-in chase rule
	Range int32  // preferred distance to the target

	stepTimer int
}

// Spawner hands out creature ids and places spawn list entries on the map.
type Spawner struct {
	m      *world.Map
	nextID uint32
	log    *zap.Logger
}

func NewSpawner(m *world.Map, log *zap.Logger) *Spawner {
	return &Spawner{m: m, nextID: spawnIDBase, log: log}
}

// NextID returns a fresh creature id.
func (s *Spawner) NextID() uint32 {
	s.nextID++
	return s.nextID
}

// Spawn places every entry of the list. Monsters are returned for the AI
// system; NPCs only stand on the map. Entries that find no free tile are
// logged and skipped.
func (s *Spawner) Spawn(spawns []data.SpawnInfo) (monsters []*Monster, placed int) {
	rng := s.m.Rand()
	for i := range spawns {
		sp := &spawns[i]
		kind, err := sp.CreatureKind()
		if err != nil {
			s.log.Warn("spawn: bad kind", zap.String("name", sp.Name), zap.Error(err))
			continue
		}
		traits, err := sp.Traits()
		if err != nil {
			s.log.Warn("spawn: bad traits", zap.String("name", sp.Name), zap.Error(err))
			continue
		}
		for n := 0; n < sp.Count; n++ {
			pos := sp.Position()
			if sp.RandomX > 0 {
				pos.X += int32(rng.IntN(int(sp.RandomX*2+1))) - sp.RandomX
			}
			if sp.RandomY > 0 {
				pos.Y += int32(rng.IntN(int(sp.RandomY*2+1))) - sp.RandomY
			}

			actor := world.NewActor(s.NextID(), kind, sp.Name, traits)
			actor.SetDirection(world.Direction(sp.Heading))
			if !s.m.PlaceCreature(actor, pos, true, false) {
				s.log.Warn("spawn: no free tile", zap.String("name", sp.Name), zap.Stringer("pos", pos))
				continue
			}
			placed++
			if kind == world.KindMonster {
				monsters = append(monsters, &Monster{
					Actor: actor,
					Spawn: actor.Position(),
					AI:    sp.AI,
					Range: sp.Range,
				})
			}
		}
	}
	return monsters, placed
}
