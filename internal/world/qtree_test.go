package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRemoveTile(t *testing.T) {
	positions := []Position{
		Pos(0, 0, 0),
		Pos(MaxCoord, MaxCoord, LayerUpperLimit),
		Pos(1234, 5678, SeaLevel),
		Pos(7, 8, 3),
		Pos(8, 7, 3),
	}
	m := newTestMap(t)
	tiles := make(map[Position]*Tile)
	for _, p := range positions {
		tile := NewTile(NewItem(grassType))
		require.NoError(t, m.SetTile(p, tile))
		tiles[p] = tile
	}
	for _, p := range positions {
		got := m.GetTile(p)
		require.NotNil(t, got, "tile at %s", p)
		assert.Same(t, tiles[p], got)
		assert.Equal(t, p, got.Position())
	}

	for _, p := range positions {
		m.RemoveTile(p)
		assert.Nil(t, m.GetTile(p), "tile at %s after remove", p)
	}
}

func TestGetTileAbsent(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.SetTile(Pos(100, 100, 7), NewTile(NewItem(grassType))))

	cases := []Position{
		Pos(100, 100, 6),  // leaf exists, floor does not
		Pos(101, 100, 7),  // floor exists, slot empty
		Pos(5000, 100, 7), // no leaf
		Pos(-1, 0, 7),
		Pos(0, MaxCoord+1, 7),
		Pos(100, 100, MaxLayers),
		Pos(100, 100, -1),
	}
	for _, p := range cases {
		assert.Nil(t, m.GetTile(p), "tile at %s", p)
	}
}

func TestSetTileRejectsInvalidPosition(t *testing.T) {
	m := newTestMap(t)
	for _, p := range []Position{Pos(1, 1, MaxLayers), Pos(-1, 1, 0), Pos(1, MaxCoord+1, 0)} {
		err := m.SetTile(p, NewTile(NewItem(grassType)))
		assert.ErrorIs(t, err, ErrInvalidPosition)
	}
	assert.Equal(t, 0, m.Stats().Tiles)
}

func TestSetTileMergesIntoExisting(t *testing.T) {
	m := newTestMap(t)
	pos := Pos(50, 50, 7)
	first := NewTile(NewItem(grassType), NewItem(rubbishType))
	require.NoError(t, m.SetTile(pos, first))

	require.NoError(t, m.SetTile(pos, NewTile(NewItem(stoneType), NewItem(crateType))))

	got := m.GetTile(pos)
	assert.Same(t, first, got)
	assert.Equal(t, stoneType.ID, got.Ground().ID())
	require.Len(t, got.Items(), 2)
	assert.Equal(t, rubbishType.ID, got.Items()[0].ID())
	assert.Equal(t, crateType.ID, got.Items()[1].ID())
}

func TestTreeDepthIsFixed(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.SetTile(Pos(300, 400, 7), NewTile(NewItem(grassType))))

	// root plus one node per level from bit 15 down to bit 3
	assert.Len(t, m.tree.nodes, 1+(topBit-floorBits+1))
	assert.Len(t, m.tree.leaves, 1)

	// same leaf, other layer: no new nodes, one more floor
	require.NoError(t, m.SetTile(Pos(303, 401, 2), NewTile(NewItem(grassType))))
	assert.Len(t, m.tree.leaves, 1)
	assert.Equal(t, 2, m.Stats().Floors)
}

func TestLeafSiblingLinks(t *testing.T) {
	m := newTestMap(t)
	set := func(x, y int32) {
		require.NoError(t, m.SetTile(Pos(x, y, 7), NewTile(NewItem(grassType))))
	}
	set(0, 0)
	set(8, 0)
	set(0, 8)

	origin := m.tree.leafAt(0, 0)
	east := m.tree.leafAt(8, 0)
	south := m.tree.leafAt(0, 8)
	assert.Equal(t, east, m.tree.leaf(origin).east)
	assert.Equal(t, south, m.tree.leaf(origin).south)
	assert.Equal(t, int32(noNode), m.tree.leaf(east).south)

	// a leaf created later is linked from both existing neighbours
	set(12, 13)
	corner := m.tree.leafAt(8, 8)
	assert.Equal(t, corner, m.tree.leaf(east).south)
	assert.Equal(t, corner, m.tree.leaf(south).east)
}

func TestRemoveTileEvictsCreatures(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 10, 10, 12, 12, 7)
	p := newPlayer(1)
	place(t, m, p, Pos(11, 11, 7))

	m.RemoveTile(Pos(11, 11, 7))

	assert.Nil(t, m.GetTile(Pos(11, 11, 7)))
	assert.Nil(t, m.Creature(1))
	assert.Empty(t, m.PlayersNear(Pos(11, 11, 7)))
	specs := NewSpectators()
	m.GetSpectators(specs, Pos(11, 11, 7), true, false, 0, 0, 0, 0)
	assert.Zero(t, specs.Len())
}
