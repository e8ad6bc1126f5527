package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerGridUpdateSameRegionIsNoop(t *testing.T) {
	g := NewPlayerGrid()
	p := newPlayer(1)
	pos := Pos(40, 40, 7)
	g.Add(p, pos)

	for i := 0; i < 3; i++ {
		g.Update(p, pos, pos)
		g.Update(p, pos, Pos(41, 63, 7))
	}
	g.Add(p, pos)

	assert.Equal(t, []uint32{1}, ids(g.Region(pos)))
	assert.Equal(t, 1, g.Stats().Players)
}

func TestPlayerGridCrossesRegions(t *testing.T) {
	g := NewPlayerGrid()
	p := newPlayer(1)
	g.Add(p, Pos(31, 10, 7))
	g.Update(p, Pos(31, 10, 7), Pos(32, 10, 7))

	assert.Empty(t, g.Region(Pos(0, 0, 7)))
	assert.Equal(t, []uint32{1}, ids(g.Region(Pos(63, 31, 7))))

	s := g.Stats()
	assert.Equal(t, 2, s.Regions)
	assert.Equal(t, 1, s.Players)
	assert.Equal(t, 1, s.EmptyRegions)
	assert.Equal(t, 1, s.MaxPlayersInRegion)
	assert.InDelta(t, 1.0, s.AvgPlayersOccupied, 1e-9)
	assert.Equal(t, "Grid stats: 2 regions, 1 players, 0 empty regions, max 1 players in a region",
		GridStats{Regions: 2, Players: 1, MaxPlayersInRegion: 1}.String())
}

func TestPlayerGridNear(t *testing.T) {
	g := NewPlayerGrid()
	g.Add(newPlayer(1), Pos(100, 100, 7)) // region (3,3)
	g.Add(newPlayer(2), Pos(70, 130, 7))  // region (2,4)
	g.Add(newPlayer(3), Pos(200, 100, 7)) // region (6,3)

	assert.ElementsMatch(t, []uint32{1, 2}, ids(g.Near(Pos(110, 110, 7), nil)))

	g.Clear()
	assert.Empty(t, g.Near(Pos(110, 110, 7), nil))
	assert.Zero(t, g.Stats().Regions)
}

func TestMapKeepsPlayerRegionsInStep(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 28, 0, 36, 4, 7)
	p := newPlayer(1)
	rat := newMonster(2)
	place(t, m, p, Pos(31, 2, 7))
	place(t, m, rat, Pos(30, 2, 7))

	assert.Equal(t, []uint32{1}, ids(m.PlayersNear(Pos(31, 2, 7))))
	require.NoError(t, m.MoveCreature(p, Pos(32, 2, 7), false))
	assert.Equal(t, []uint32{1}, ids(m.players.Region(Pos(32, 2, 7))))
	assert.Empty(t, m.players.Region(Pos(31, 2, 7)))
	assert.Equal(t, 1, m.GridStats().Players)

	require.True(t, m.RemoveCreature(p))
	assert.Zero(t, m.GridStats().Players)

	m.ClearPlayerGrid()
	assert.Zero(t, m.GridStats().Regions)
}
