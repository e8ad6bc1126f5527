package persist

import (
	"context"
	"fmt"
)

// TileItemRow is one stored item of a house tile.
type TileItemRow struct {
	X, Y   int32
	Z      int16
	Slot   int16 // position in the tile's item stack
	ItemID int32
	Count  int32
}

type TileRepo struct {
	db *DB
}

func NewTileRepo(db *DB) *TileRepo {
	return &TileRepo{db: db}
}

// Save replaces the stored stack of every snapshot in one transaction.
// Tiles whose stack is empty are cleared.
func (r *TileRepo) Save(ctx context.Context, snaps []TileSnapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("house tiles begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range snaps {
		if _, err := tx.Exec(ctx,
			`DELETE FROM house_tiles WHERE x = $1 AND y = $2 AND z = $3`,
			s.Pos.X, s.Pos.Y, int16(s.Pos.Z),
		); err != nil {
			return fmt.Errorf("house tiles clear %s: %w", s.Pos, err)
		}
		for _, row := range s.Rows() {
			if _, err := tx.Exec(ctx,
				`INSERT INTO house_tiles (x, y, z, slot, item_id, count)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				row.X, row.Y, row.Z, row.Slot, row.ItemID, row.Count,
			); err != nil {
				return fmt.Errorf("house tiles insert %s: %w", s.Pos, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// LoadAll returns every stored house tile.
func (r *TileRepo) LoadAll(ctx context.Context) ([]TileSnapshot, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT x, y, z, slot, item_id, count FROM house_tiles ORDER BY x, y, z, slot`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TileItemRow
	for rows.Next() {
		var row TileItemRow
		if err := rows.Scan(&row.X, &row.Y, &row.Z, &row.Slot, &row.ItemID, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return GroupRows(result), nil
}
