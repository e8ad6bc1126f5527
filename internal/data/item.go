package data

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldcore/internal/world"
)

// ErrUnknownItem is returned when a data file references an item id that
// items.yaml does not define.
var ErrUnknownItem = errors.New("unknown item id")

// itemEntry is one items.yaml record.
type itemEntry struct {
	ID              uint16 `yaml:"id"`
	Name            string `yaml:"name"`
	Ground          bool   `yaml:"ground"`
	BlockSolid      bool   `yaml:"block_solid"`
	BlockProjectile bool   `yaml:"block_projectile"`
	BlockPathfind   bool   `yaml:"block_pathfind"`
	Moveable        bool   `yaml:"moveable"`
	FloorChange     bool   `yaml:"floor_change"`
	Teleport        bool   `yaml:"teleport"`
	Cleanable       bool   `yaml:"cleanable"`
	Field           string `yaml:"field"` // combat type name, e.g. "fire"
	FieldDamage     int32  `yaml:"field_damage"`
}

type itemListFile struct {
	Items []itemEntry `yaml:"items"`
}

// ItemTable holds every item type indexed by id.
type ItemTable struct {
	types map[uint16]*world.ItemType
}

// LoadItemTypes loads item types from a YAML file.
func LoadItemTypes(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item list %s: %w", path, err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item list: %w", err)
	}

	t := &ItemTable{types: make(map[uint16]*world.ItemType, len(f.Items))}
	for _, e := range f.Items {
		if e.ID == 0 {
			return nil, fmt.Errorf("item %q: id 0 is reserved for empty cells", e.Name)
		}
		if _, dup := t.types[e.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id", e.ID)
		}
		field, ok := world.ParseCombatType(e.Field)
		if !ok {
			return nil, fmt.Errorf("item %d: unknown field type %q", e.ID, e.Field)
		}
		t.types[e.ID] = &world.ItemType{
			ID:              e.ID,
			Name:            e.Name,
			Ground:          e.Ground,
			BlockSolid:      e.BlockSolid,
			BlockProjectile: e.BlockProjectile,
			BlockPathfind:   e.BlockPathfind,
			Moveable:        e.Moveable,
			FloorChange:     e.FloorChange,
			Teleport:        e.Teleport,
			Cleanable:       e.Cleanable,
			Field:           field,
			FieldDamage:     e.FieldDamage,
		}
	}
	return t, nil
}

// Get returns the type for id, or nil if not found.
func (t *ItemTable) Get(id uint16) *world.ItemType {
	return t.types[id]
}

// NewItem creates an instance of the type with the given id.
func (t *ItemTable) NewItem(id uint16) (*world.Item, error) {
	it := t.types[id]
	if it == nil {
		return nil, fmt.Errorf("item %d: %w", id, ErrUnknownItem)
	}
	return world.NewItem(it), nil
}

// Count returns the number of loaded item types.
func (t *ItemTable) Count() int {
	return len(t.types)
}
