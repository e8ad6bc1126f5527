package persist

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/l1jgo/worldcore/internal/world"
)

// ItemRecord is an item as stored: its type id and stack count.
type ItemRecord struct {
	ID    uint16
	Count uint16
}

// TileSnapshot is the item stack of one tile, detached from the map so it
// can be written outside the game loop.
type TileSnapshot struct {
	Pos   world.Position
	Items []ItemRecord
}

// Rows flattens the snapshot into table rows.
func (s TileSnapshot) Rows() []TileItemRow {
	out := make([]TileItemRow, 0, len(s.Items))
	for i, it := range s.Items {
		out = append(out, TileItemRow{
			X:      s.Pos.X,
			Y:      s.Pos.Y,
			Z:      int16(s.Pos.Z),
			Slot:   int16(i),
			ItemID: int32(it.ID),
			Count:  int32(it.Count),
		})
	}
	return out
}

// SnapshotHouseTiles copies the item stacks of every house tile in m.
func SnapshotHouseTiles(m *world.Map) []TileSnapshot {
	tiles := m.HouseTiles()
	out := make([]TileSnapshot, 0, len(tiles))
	for _, t := range tiles {
		snap := TileSnapshot{Pos: t.Position(), Items: make([]ItemRecord, 0, len(t.Items()))}
		for _, it := range t.Items() {
			snap.Items = append(snap.Items, ItemRecord{ID: it.ID(), Count: it.Count})
		}
		out = append(out, snap)
	}
	return out
}

// GroupRows folds rows sorted by position and slot back into snapshots.
func GroupRows(rows []TileItemRow) []TileSnapshot {
	var out []TileSnapshot
	for _, row := range rows {
		pos := world.Pos(row.X, row.Y, int32(row.Z))
		if len(out) == 0 || out[len(out)-1].Pos != pos {
			out = append(out, TileSnapshot{Pos: pos})
		}
		last := &out[len(out)-1]
		last.Items = append(last.Items, ItemRecord{ID: uint16(row.ItemID), Count: uint16(row.Count)})
	}
	return out
}

// ItemFactory creates items by type id. data.ItemTable implements it.
type ItemFactory interface {
	NewItem(id uint16) (*world.Item, error)
}

// Restore puts the saved stacks back on the map. Snapshots that cannot be
// applied are reported together; the others are still restored.
func Restore(m *world.Map, items ItemFactory, snaps []TileSnapshot) (int, error) {
	var errs error
	restored := 0
	for _, s := range snaps {
		stack := make([]*world.Item, 0, len(s.Items))
		var bad error
		for _, rec := range s.Items {
			it, err := items.NewItem(rec.ID)
			if err != nil {
				bad = err
				break
			}
			it.Count = max(rec.Count, 1)
			stack = append(stack, it)
		}
		if bad != nil {
			errs = multierr.Append(errs, fmt.Errorf("restore %s: %w", s.Pos, bad))
			continue
		}
		if err := m.RestoreItems(s.Pos, stack); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		restored++
	}
	return restored, errs
}
