package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/worldcore/internal/persist"
	"github.com/l1jgo/worldcore/internal/world"
)

type fakeTileStore struct {
	saves [][]persist.TileSnapshot
	err   error
}

func (f *fakeTileStore) Save(_ context.Context, snaps []persist.TileSnapshot) error {
	f.saves = append(f.saves, snaps)
	return f.err
}

func houseMap(t *testing.T) *world.Map {
	t.Helper()
	m := openMap(t, 4)
	pos := world.Pos(1, 1, 7)
	m.GetTile(pos).SetZone(world.ZoneHouse)
	rubbish := world.NewItem(rubbishType)
	rubbish.Count = 3
	require.NoError(t, m.AddItem(pos, rubbish))
	return m
}

func TestPersistenceSavesOnInterval(t *testing.T) {
	store := &fakeTileStore{}
	s := NewPersistenceSystem(houseMap(t), store, zaptest.NewLogger(t), 3)

	s.Update(0)
	s.Update(0)
	assert.Empty(t, store.saves)
	s.Update(0)
	require.Len(t, store.saves, 1)

	snaps := store.saves[0]
	require.Len(t, snaps, 1)
	assert.Equal(t, world.Pos(1, 1, 7), snaps[0].Pos)
	assert.Equal(t, []persist.ItemRecord{{ID: 400, Count: 3}}, snaps[0].Items)

	for i := 0; i < 3; i++ {
		s.Update(0)
	}
	assert.Len(t, store.saves, 2)
}

func TestPersistenceSaveHouses(t *testing.T) {
	store := &fakeTileStore{}
	s := NewPersistenceSystem(openMap(t, 4), store, zaptest.NewLogger(t), 1)
	require.NoError(t, s.SaveHouses())
	assert.Empty(t, store.saves, "nothing to save without houses")

	boom := errors.New("connection reset")
	store.err = boom
	s = NewPersistenceSystem(houseMap(t), store, zaptest.NewLogger(t), 1)
	err := s.SaveHouses()
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "save 1 house tiles")

	// a failed periodic save is logged, not fatal
	s.Update(0)
	assert.Len(t, store.saves, 2)
}
