package world

import "strings"

// CombatType is the damage element of a magic field.
type CombatType uint8

const (
	CombatNone CombatType = iota
	CombatPhysical
	CombatEnergy
	CombatFire
	CombatEarth
	CombatIce
	CombatHoly
	CombatDeath
)

var combatNames = map[string]CombatType{
	"":         CombatNone,
	"none":     CombatNone,
	"physical": CombatPhysical,
	"energy":   CombatEnergy,
	"fire":     CombatFire,
	"earth":    CombatEarth,
	"poison":   CombatEarth,
	"ice":      CombatIce,
	"holy":     CombatHoly,
	"death":    CombatDeath,
}

// ParseCombatType maps a data-file name to a CombatType.
func ParseCombatType(s string) (CombatType, bool) {
	ct, ok := combatNames[strings.ToLower(strings.TrimSpace(s))]
	return ct, ok
}

// CombatMask is a set of combat types.
type CombatMask uint16

// MaskOf builds a mask from the given types.
func MaskOf(types ...CombatType) CombatMask {
	var m CombatMask
	for _, ct := range types {
		m |= 1 << ct
	}
	return m
}

// Has reports whether ct is in the set.
func (m CombatMask) Has(ct CombatType) bool {
	return m&(1<<ct) != 0
}

// ItemType is the static description shared by every instance of an item id.
type ItemType struct {
	ID              uint16
	Name            string
	Ground          bool
	BlockSolid      bool
	BlockProjectile bool
	BlockPathfind   bool
	Moveable        bool
	FloorChange     bool
	Teleport        bool
	Cleanable       bool
	Field           CombatType
	FieldDamage     int32
}

// IsField reports whether the type is a magic field.
func (t *ItemType) IsField() bool {
	return t.Field != CombatNone
}

// Item is a placed instance of an ItemType.
type Item struct {
	Type  *ItemType
	Count uint16
}

func NewItem(t *ItemType) *Item {
	return &Item{Type: t, Count: 1}
}

// ID returns the type id, or 0 for an untyped item.
func (it *Item) ID() uint16 {
	if it == nil || it.Type == nil {
		return 0
	}
	return it.Type.ID
}
