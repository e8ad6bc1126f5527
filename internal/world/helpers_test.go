package world

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	grassType   = &ItemType{ID: 100, Name: "grass", Ground: true}
	stoneType   = &ItemType{ID: 101, Name: "stone floor", Ground: true}
	wallType    = &ItemType{ID: 200, Name: "stone wall", BlockSolid: true, BlockProjectile: true, BlockPathfind: true}
	crateType   = &ItemType{ID: 201, Name: "crate", BlockSolid: true, Moveable: true}
	stairsType  = &ItemType{ID: 202, Name: "stairs", FloorChange: true}
	fireType    = &ItemType{ID: 300, Name: "fire field", Field: CombatFire, FieldDamage: 20}
	rubbishType = &ItemType{ID: 400, Name: "rubbish", Moveable: true, Cleanable: true}
)

func newTestMap(t *testing.T) *Map {
	t.Helper()
	m := NewMap(zaptest.NewLogger(t))
	m.SetSeed(42)
	return m
}

// fillGround puts a grass tile on every position of the inclusive rectangle.
func fillGround(t *testing.T, m *Map, x1, y1, x2, y2, z int32) {
	t.Helper()
	for x := x1; x <= x2; x++ {
		for y := y1; y <= y2; y++ {
			require.NoError(t, m.SetTile(Pos(x, y, z), NewTile(NewItem(grassType))))
		}
	}
}

func putWall(t *testing.T, m *Map, pos Position) {
	t.Helper()
	require.NoError(t, m.AddItem(pos, NewItem(wallType)))
}

func newMonster(id uint32) *Actor {
	return NewActor(id, KindMonster, "rat", Traits{})
}

func newPlayer(id uint32) *Actor {
	return NewActor(id, KindPlayer, "knight", Traits{})
}

func place(t *testing.T, m *Map, c Creature, pos Position) {
	t.Helper()
	require.True(t, m.PlaceCreature(c, pos, false, false), "place %d at %s", c.ID(), pos)
	require.Equal(t, pos, c.Position(), "creature %d landed elsewhere", c.ID())
}

func ids(list []Creature) []uint32 {
	out := make([]uint32, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID())
	}
	return out
}

// walk applies dirs to start and returns every visited position.
func walk(start Position, dirs []Direction) []Position {
	out := []Position{start}
	cur := start
	for _, d := range dirs {
		cur = cur.Moved(d)
		out = append(out, cur)
	}
	return out
}
