package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/world"
)

var (
	grassType   = &world.ItemType{ID: 100, Name: "grass", Ground: true}
	wallType    = &world.ItemType{ID: 200, Name: "stone wall", BlockSolid: true, BlockProjectile: true, BlockPathfind: true}
	rubbishType = &world.ItemType{ID: 400, Name: "rubbish", Moveable: true, Cleanable: true}
)

// openMap builds a grass field from (0,0) to (size-1,size-1) on layer 7.
func openMap(t *testing.T, size int32) *world.Map {
	t.Helper()
	m := world.NewMap(zaptest.NewLogger(t))
	m.SetSeed(7)
	for x := int32(0); x < size; x++ {
		for y := int32(0); y < size; y++ {
			require.NoError(t, m.SetTile(world.Pos(x, y, 7), world.NewTile(world.NewItem(grassType))))
		}
	}
	return m
}

func placePlayer(t *testing.T, m *world.Map, id uint32, pos world.Position) *world.Actor {
	t.Helper()
	p := world.NewActor(id, world.KindPlayer, "knight", world.Traits{})
	require.True(t, m.PlaceCreature(p, pos, false, false))
	require.Equal(t, pos, p.Position())
	return p
}

func placeMonster(t *testing.T, m *world.Map, id uint32, pos world.Position, ai string, rng int32) *Monster {
	t.Helper()
	a := world.NewActor(id, world.KindMonster, "orc", world.Traits{})
	require.True(t, m.PlaceCreature(a, pos, false, false))
	require.Equal(t, pos, a.Position())
	return &Monster{Actor: a, Spawn: pos, AI: ai, Range: rng}
}

func luaEngine(t *testing.T, src string) *scripting.Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ai.lua"), []byte(src), 0o644))
	e, err := scripting.NewEngine(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}
