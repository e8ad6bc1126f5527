package world

// CreatureKind distinguishes the movers the map knows about.
type CreatureKind uint8

const (
	KindPlayer CreatureKind = iota
	KindMonster
	KindNpc
)

func (k CreatureKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindNpc:
		return "npc"
	}
	return "unknown"
}

// Creature is anything the simulation registers on the map. The map
// keeps references only; the simulation owns the value.
type Creature interface {
	ID() uint32
	Kind() CreatureKind
	Position() Position
	SetPosition(pos Position)
	Direction() Direction
	SetDirection(dir Direction)
	Traits() Traits
}

// WalkCacher is implemented by creatures that keep a small walkability
// cache around themselves. WalkCache returns -1 when pos is unknown, 0 for
// blocked and 1 for walkable.
type WalkCacher interface {
	WalkCache(pos Position) int8
}

// Traits holds the movement capabilities consulted by walkability checks
// and path costs.
type Traits struct {
	Ghost         bool
	Pushable      bool
	PushItems     bool
	PushCreatures bool
	// Immune lists the combat types whose fields deal no damage.
	Immune CombatMask
	// FieldWalk lists the field types the creature walks over voluntarily.
	FieldWalk CombatMask
	// IgnoreFieldDamage is set while a monster steps randomly under attack.
	IgnoreFieldDamage bool
}

// IsImmune reports whether fields of combat type ct are harmless.
func (t Traits) IsImmune(ct CombatType) bool {
	return t.Immune.Has(ct)
}

// CanWalkOnField reports whether the creature accepts stepping onto a
// field of type ct. Only energy, fire and earth fields are ever refused.
func (t Traits) CanWalkOnField(ct CombatType) bool {
	switch ct {
	case CombatEnergy, CombatFire, CombatEarth:
		return t.FieldWalk.Has(ct)
	}
	return true
}

func isPlayer(c Creature) bool {
	return c.Kind() == KindPlayer
}

// Actor is a plain Creature implementation used by the server glue and tests.
type Actor struct {
	id     uint32
	kind   CreatureKind
	name   string
	pos    Position
	dir    Direction
	traits Traits
}

func NewActor(id uint32, kind CreatureKind, name string, traits Traits) *Actor {
	return &Actor{id: id, kind: kind, name: name, dir: South, traits: traits}
}

func (a *Actor) ID() uint32                 { return a.id }
func (a *Actor) Kind() CreatureKind         { return a.kind }
func (a *Actor) Name() string               { return a.name }
func (a *Actor) Position() Position         { return a.pos }
func (a *Actor) SetPosition(pos Position)   { a.pos = pos }
func (a *Actor) Direction() Direction       { return a.dir }
func (a *Actor) SetDirection(dir Direction) { a.dir = dir }
func (a *Actor) Traits() Traits             { return a.traits }

// SetTraits replaces the movement capabilities, e.g. when a monster starts
// ignoring field damage.
func (a *Actor) SetTraits(t Traits) { a.traits = t }
