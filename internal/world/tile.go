package world

// ZoneFlags are the area attributes a map assigns to a tile.
type ZoneFlags uint16

const (
	ZoneProtection ZoneFlags = 1 << iota
	ZoneNoLogout
	ZoneHouse
	ZoneNoClean
	ZonePvP
)

var zoneNames = map[string]ZoneFlags{
	"protection": ZoneProtection,
	"nologout":   ZoneNoLogout,
	"house":      ZoneHouse,
	"noclean":    ZoneNoClean,
	"pvp":        ZonePvP,
}

// ParseZone maps a data-file zone kind to its flag.
func ParseZone(s string) (ZoneFlags, bool) {
	z, ok := zoneNames[s]
	return z, ok
}

// Prop is a derived tile property, computed from the ground and item stack.
type Prop uint8

const (
	PropBlockSolid Prop = iota
	PropImmovableBlockSolid
	PropBlockProjectile
	PropBlockPath
	PropImmovableBlockPath
	PropFloorChange
	PropTeleport
)

// QueryFlags modify how QueryAdd judges a creature entering a tile.
type QueryFlags uint8

const (
	FlagNoLimit QueryFlags = 1 << iota
	FlagIgnoreBlockItem
	FlagIgnoreBlockCreature
	FlagPathfinding
	FlagIgnoreFieldDamage
)

// ReturnValue is the outcome of QueryAdd.
type ReturnValue uint8

const (
	ReturnOK ReturnValue = iota
	ReturnNotPossible
	ReturnNotEnoughRoom
)

func (r ReturnValue) String() string {
	switch r {
	case ReturnOK:
		return "ok"
	case ReturnNotPossible:
		return "not possible"
	case ReturnNotEnoughRoom:
		return "not enough room"
	}
	return "unknown"
}

// Tile is the content of one (x, y, z) cell.
type Tile struct {
	pos       Position
	ground    *Item
	items     []*Item
	creatures []Creature
	zone      ZoneFlags
}

// NewTile builds a detached tile; SetTile assigns its position.
func NewTile(ground *Item, items ...*Item) *Tile {
	t := &Tile{ground: ground}
	if len(items) > 0 {
		t.items = append([]*Item(nil), items...)
	}
	return t
}

func (t *Tile) Position() Position { return t.pos }
func (t *Tile) Ground() *Item      { return t.ground }
func (t *Tile) Items() []*Item     { return t.items }
func (t *Tile) Zone() ZoneFlags    { return t.zone }

// Creatures returns the registered creatures, bottom first.
func (t *Tile) Creatures() []Creature { return t.creatures }

func (t *Tile) HasZone(z ZoneFlags) bool { return t.zone&z != 0 }

// SetZone adds zone flags to the tile.
func (t *Tile) SetZone(z ZoneFlags) { t.zone |= z }

// ItemCount counts the ground plus the stacked items.
func (t *Tile) ItemCount() int {
	n := len(t.items)
	if t.ground != nil {
		n++
	}
	return n
}

func (t *Tile) addItem(it *Item) {
	if it.Type != nil && it.Type.Ground {
		t.ground = it
		return
	}
	t.items = append(t.items, it)
}

func (t *Tile) removeItem(it *Item) bool {
	if t.ground == it {
		t.ground = nil
		return true
	}
	for i, cur := range t.items {
		if cur == it {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Tile) addCreature(c Creature) {
	t.creatures = append(t.creatures, c)
}

func (t *Tile) removeCreature(c Creature) bool {
	for i, cur := range t.creatures {
		if cur.ID() == c.ID() {
			t.creatures = append(t.creatures[:i], t.creatures[i+1:]...)
			return true
		}
	}
	return false
}

// TopCreature returns the top visible creature other than exclude.
func (t *Tile) TopCreature(exclude Creature) Creature {
	for i := len(t.creatures) - 1; i >= 0; i-- {
		c := t.creatures[i]
		if exclude != nil && c.ID() == exclude.ID() {
			continue
		}
		if c.Traits().Ghost {
			continue
		}
		return c
	}
	return nil
}

func (t *Tile) eachItem(fn func(*ItemType) bool) bool {
	if t.ground != nil && t.ground.Type != nil && fn(t.ground.Type) {
		return true
	}
	for _, it := range t.items {
		if it.Type != nil && fn(it.Type) {
			return true
		}
	}
	return false
}

// HasProperty reports whether the ground or any stacked item has prop.
func (t *Tile) HasProperty(prop Prop) bool {
	return t.eachItem(func(it *ItemType) bool {
		switch prop {
		case PropBlockSolid:
			return it.BlockSolid
		case PropImmovableBlockSolid:
			return it.BlockSolid && !it.Moveable
		case PropBlockProjectile:
			return it.BlockProjectile
		case PropBlockPath:
			return it.BlockPathfind && !it.IsField()
		case PropImmovableBlockPath:
			return it.BlockPathfind && !it.IsField() && !it.Moveable
		case PropFloorChange:
			return it.FloorChange
		case PropTeleport:
			return it.Teleport
		}
		return false
	})
}

// BlocksProjectile reports whether missiles stop on this tile.
func (t *Tile) BlocksProjectile() bool {
	return t.HasProperty(PropBlockProjectile)
}

// FieldItem returns the topmost magic field, if any.
func (t *Tile) FieldItem() *Item {
	for i := len(t.items) - 1; i >= 0; i-- {
		if it := t.items[i]; it.Type != nil && it.Type.IsField() {
			return it
		}
	}
	return nil
}

func (t *Tile) otherCreatures(self Creature) []Creature {
	var out []Creature
	for _, c := range t.creatures {
		if c.ID() == self.ID() || c.Traits().Ghost {
			continue
		}
		out = append(out, c)
	}
	return out
}

// QueryAdd decides whether c may enter the tile.
func (t *Tile) QueryAdd(c Creature, flags QueryFlags) ReturnValue {
	if flags&FlagNoLimit != 0 {
		return ReturnOK
	}
	pathfinding := flags&FlagPathfinding != 0
	if pathfinding && (t.HasProperty(PropFloorChange) || t.HasProperty(PropTeleport)) {
		return ReturnNotPossible
	}
	if t.ground == nil {
		return ReturnNotPossible
	}

	tr := c.Traits()
	others := t.otherCreatures(c)

	switch c.Kind() {
	case KindMonster:
		return t.queryAddMonster(tr, others, flags)
	case KindPlayer:
		if len(others) > 0 && flags&FlagIgnoreBlockCreature == 0 {
			return ReturnNotPossible
		}
	default:
		if len(others) > 0 && flags&FlagIgnoreBlockCreature == 0 {
			return ReturnNotEnoughRoom
		}
	}

	if pathfinding && t.HasProperty(PropBlockPath) {
		return ReturnNotPossible
	}
	if flags&FlagIgnoreBlockItem == 0 {
		if t.HasProperty(PropBlockSolid) {
			return ReturnNotEnoughRoom
		}
	} else if t.HasProperty(PropImmovableBlockSolid) {
		return ReturnNotPossible
	}
	return ReturnOK
}

func (t *Tile) queryAddMonster(tr Traits, others []Creature, flags QueryFlags) ReturnValue {
	pathfinding := flags&FlagPathfinding != 0
	if t.HasZone(ZoneProtection) || t.HasProperty(PropFloorChange) || t.HasProperty(PropTeleport) {
		return ReturnNotPossible
	}

	if tr.PushCreatures {
		for _, o := range others {
			if o.Kind() != KindMonster || !o.Traits().Pushable {
				return ReturnNotPossible
			}
		}
	} else if len(others) > 0 {
		return ReturnNotEnoughRoom
	}

	if t.HasProperty(PropImmovableBlockSolid) {
		return ReturnNotPossible
	}
	if pathfinding && t.HasProperty(PropImmovableBlockPath) {
		return ReturnNotPossible
	}
	if t.HasProperty(PropBlockSolid) || (pathfinding && t.HasProperty(PropBlockPath)) {
		if !(tr.PushItems || flags&FlagIgnoreBlockItem != 0) {
			return ReturnNotPossible
		}
	}

	field := t.FieldItem()
	if field == nil || field.Type.BlockSolid || field.Type.FieldDamage == 0 {
		return ReturnOK
	}
	ct := field.Type.Field
	if tr.IsImmune(ct) {
		return ReturnOK
	}
	if flags&FlagIgnoreFieldDamage != 0 && (tr.CanWalkOnField(ct) || tr.IgnoreFieldDamage) {
		return ReturnOK
	}
	return ReturnNotPossible
}
