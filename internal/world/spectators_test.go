package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpectatorsSetDeduplicates(t *testing.T) {
	s := NewSpectators()
	a, b := newMonster(1), newMonster(2)
	assert.True(t, s.Add(a))
	assert.False(t, s.Add(a))
	assert.True(t, s.Add(b))
	s.AddAll([]Creature{a, b, a})
	assert.Equal(t, []uint32{1, 2}, s.IDs())

	s.Remove(a)
	assert.False(t, s.Contains(1))
	assert.Equal(t, 1, s.Len())

	var zero Spectators
	assert.True(t, zero.Add(a))
	assert.True(t, zero.Contains(1))
}

func TestGetSpectatorsExactRectangle(t *testing.T) {
	m := newTestMap(t)
	center := Pos(100, 100, 7)
	fillGround(t, m, 85, 85, 115, 115, 7)

	// one creature every third tile, players and monsters mixed
	var all []*Actor
	id := uint32(1)
	for x := int32(86); x <= 114; x += 3 {
		for y := int32(86); y <= 114; y += 3 {
			var a *Actor
			if id%2 == 0 {
				a = newPlayer(id)
			} else {
				a = newMonster(id)
			}
			place(t, m, a, Pos(x, y, 7))
			all = append(all, a)
			id++
		}
	}

	cases := []struct {
		name                   string
		minX, maxX, minY, maxY int32
	}{
		{"asymmetric", 3, 5, 2, 4},
		{"wide", 14, 14, 1, 1},
		{"single column", 1, 1, 14, 14},
		{"viewport", 0, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			minX, maxX, minY, maxY := tc.minX, tc.maxX, tc.minY, tc.maxY
			if minX == 0 {
				minX, maxX, minY, maxY = MaxViewportX, MaxViewportX, MaxViewportY, MaxViewportY
			}
			var want []uint32
			for _, a := range all {
				p := a.Position()
				if p.X >= center.X-minX && p.X <= center.X+maxX && p.Y >= center.Y-minY && p.Y <= center.Y+maxY {
					want = append(want, a.ID())
				}
			}

			got := NewSpectators()
			m.GetSpectators(got, center, false, false, tc.minX, tc.maxX, tc.minY, tc.maxY)
			assert.ElementsMatch(t, want, got.IDs())
			assert.Len(t, got.IDs(), len(want))
		})
	}
}

func TestGetSpectatorsOnlyPlayers(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 20, 20, 7)
	place(t, m, newPlayer(1), Pos(5, 5, 7))
	place(t, m, newMonster(2), Pos(6, 5, 7))
	place(t, m, newPlayer(3), Pos(15, 15, 7))

	got := NewSpectators()
	m.GetSpectators(got, Pos(5, 5, 7), false, true, 0, 0, 0, 0)
	assert.ElementsMatch(t, []uint32{1, 3}, got.IDs())
}

func TestGetSpectatorsLayerWindow(t *testing.T) {
	m := newTestMap(t)
	for z := int32(0); z < MaxLayers; z++ {
		fillGround(t, m, 98, 98, 102, 102, z)
	}
	for z := int32(0); z < MaxLayers; z++ {
		place(t, m, newMonster(uint32(z+1)), Pos(100, 100, z))
	}

	cases := []struct {
		z          int32
		minZ, maxZ int32
	}{
		{0, 0, 7},
		{5, 0, 7},
		{6, 0, 8},
		{7, 0, 9},
		{8, 6, 10},
		{12, 10, 14},
		{15, 13, 15},
	}
	for _, tc := range cases {
		got := NewSpectators()
		m.GetSpectators(got, Pos(100, 100, tc.z), true, false, 0, 0, 0, 0)
		var want []uint32
		for z := tc.minZ; z <= tc.maxZ; z++ {
			want = append(want, uint32(z+1))
		}
		assert.ElementsMatch(t, want, got.IDs(), "center layer %d", tc.z)

		single := NewSpectators()
		m.GetSpectators(single, Pos(100, 100, tc.z), false, false, 0, 0, 0, 0)
		assert.Equal(t, []uint32{uint32(tc.z + 1)}, single.IDs(), "center layer %d", tc.z)
	}
}

func TestGetSpectatorsPerspectiveShift(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 80, 80, 120, 120, 5)
	// two layers up the visible box is shifted two tiles towards +x/+y
	place(t, m, newMonster(1), Pos(113, 100, 5))
	place(t, m, newMonster(2), Pos(114, 100, 5))
	place(t, m, newMonster(3), Pos(90, 100, 5))
	place(t, m, newMonster(4), Pos(91, 100, 5))

	got := NewSpectators()
	m.GetSpectators(got, Pos(100, 100, 7), true, false, 0, 0, 0, 0)
	assert.ElementsMatch(t, []uint32{1, 4}, got.IDs())
}

func TestGetSpectatorsAcrossLeafGaps(t *testing.T) {
	m := newTestMap(t)
	// tiles only in two leaves with an empty leaf column between them
	fillGround(t, m, 96, 96, 97, 97, 7)
	fillGround(t, m, 112, 96, 113, 97, 7)
	fillGround(t, m, 96, 112, 97, 113, 7)
	place(t, m, newMonster(1), Pos(96, 96, 7))
	place(t, m, newMonster(2), Pos(113, 97, 7))
	place(t, m, newMonster(3), Pos(97, 112, 7))

	got := NewSpectators()
	m.GetSpectators(got, Pos(104, 104, 7), false, false, 0, 0, 0, 0)
	assert.ElementsMatch(t, []uint32{1, 2, 3}, got.IDs())
}

func TestGetSpectatorsMergesIntoExistingSet(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 10, 10, 7)
	a := newMonster(1)
	place(t, m, a, Pos(5, 5, 7))

	got := NewSpectators()
	got.Add(a)
	m.GetSpectators(got, Pos(5, 5, 7), true, false, 0, 0, 0, 0)
	assert.Equal(t, []uint32{1}, got.IDs())
}

func TestSpectatorCacheCoherence(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 30, 30, 7)
	center := Pos(15, 15, 7)
	place(t, m, newMonster(1), Pos(14, 14, 7))

	first := NewSpectators()
	m.GetSpectators(first, center, true, false, 0, 0, 0, 0)
	assert.Equal(t, []uint32{1}, first.IDs())
	assert.Equal(t, 1, m.Stats().SpectatorCache)

	place(t, m, newMonster(2), Pos(16, 16, 7))
	assert.Zero(t, m.Stats().SpectatorCache)

	second := NewSpectators()
	m.GetSpectators(second, center, true, false, 0, 0, 0, 0)
	assert.ElementsMatch(t, []uint32{1, 2}, second.IDs())

	// a move out of range invalidates as well
	require.NoError(t, m.MoveCreature(m.Creature(2), Pos(17, 16, 7), false))
	third := NewSpectators()
	m.GetSpectators(third, center, true, false, 0, 0, 0, 0)
	assert.ElementsMatch(t, []uint32{1, 2}, third.IDs())

	require.True(t, m.RemoveCreature(m.Creature(1)))
	fourth := NewSpectators()
	m.GetSpectators(fourth, center, true, false, 0, 0, 0, 0)
	assert.Equal(t, []uint32{2}, fourth.IDs())
}

func TestSpectatorCacheOnlyForDefaultMultifloor(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 10, 10, 7)
	place(t, m, newPlayer(1), Pos(5, 5, 7))

	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), false, false, 0, 0, 0, 0)
	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, false, 3, 3, 3, 3)
	assert.Zero(t, m.Stats().SpectatorCache)
	assert.Zero(t, m.Stats().PlayersSpectatorCache)

	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, true, 0, 0, 0, 0)
	assert.Zero(t, m.Stats().SpectatorCache)
	assert.Equal(t, 1, m.Stats().PlayersSpectatorCache)

	m.SetSpectatorCache(false)
	m.GetSpectators(NewSpectators(), Pos(6, 6, 7), true, false, 0, 0, 0, 0)
	assert.Zero(t, m.Stats().SpectatorCache)
}

func TestSpectatorCacheExplicitDefaultRange(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 10, 10, 7)
	place(t, m, newPlayer(1), Pos(5, 5, 7))

	explicit := NewSpectators()
	m.GetSpectators(explicit, Pos(5, 5, 7), true, false, MaxViewportX, MaxViewportX, MaxViewportY, MaxViewportY)
	assert.Equal(t, 1, m.Stats().SpectatorCache)

	// the zero-range form is served from the same entry
	implicit := NewSpectators()
	m.GetSpectators(implicit, Pos(5, 5, 7), true, false, 0, 0, 0, 0)
	assert.Equal(t, explicit.IDs(), implicit.IDs())
	assert.Equal(t, 1, m.Stats().SpectatorCache)

	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, false, MaxViewportX, MaxViewportX, MaxViewportY, 3)
	assert.Equal(t, 1, m.Stats().SpectatorCache)
}

func TestPlayersQueryServedFromGeneralCache(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 10, 10, 7)
	place(t, m, newPlayer(1), Pos(5, 5, 7))
	place(t, m, newMonster(2), Pos(6, 6, 7))

	all := NewSpectators()
	m.GetSpectators(all, Pos(5, 5, 7), true, false, 0, 0, 0, 0)
	assert.ElementsMatch(t, []uint32{1, 2}, all.IDs())

	players := NewSpectators()
	m.GetSpectators(players, Pos(5, 5, 7), true, true, 0, 0, 0, 0)
	assert.Equal(t, []uint32{1}, players.IDs())
	assert.Zero(t, m.Stats().PlayersSpectatorCache)
}

func TestMonsterMoveKeepsPlayersCache(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 10, 10, 7)
	place(t, m, newPlayer(1), Pos(5, 5, 7))
	rat := newMonster(2)
	place(t, m, rat, Pos(6, 6, 7))

	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, true, 0, 0, 0, 0)
	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, false, 0, 0, 0, 0)
	require.NoError(t, m.MoveCreature(rat, Pos(7, 6, 7), false))

	assert.Zero(t, m.Stats().SpectatorCache)
	assert.Equal(t, 1, m.Stats().PlayersSpectatorCache)
}

func TestTileMutationClearsCaches(t *testing.T) {
	m := newTestMap(t)
	fillGround(t, m, 0, 0, 10, 10, 7)
	place(t, m, newPlayer(1), Pos(5, 5, 7))
	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, true, 0, 0, 0, 0)
	m.GetSpectators(NewSpectators(), Pos(5, 5, 7), true, false, 0, 0, 0, 0)

	require.NoError(t, m.AddItem(Pos(3, 3, 7), NewItem(wallType)))
	assert.Zero(t, m.Stats().SpectatorCache)
	assert.Zero(t, m.Stats().PlayersSpectatorCache)
}
