package world

import "fmt"

// World bounds and view constants.
const (
	MaxLayers = 16

	// Layers 0..SeaLevel are above ground, the rest are underground.
	SeaLevel        = 7
	LayerLowerLimit = 0
	LayerUpperLimit = MaxLayers - 1

	MaxCoord = 0xFFFF

	MaxViewportX       = 11
	MaxViewportY       = 11
	MaxClientViewportX = 8
	MaxClientViewportY = 6
)

// Position is a world coordinate. Z is the layer, 0 is the highest.
type Position struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// Pos is shorthand for building a Position literal.
func Pos(x, y, z int32) Position {
	return Position{X: x, Y: y, Z: z}
}

// Valid reports whether p lies inside the indexable world.
func (p Position) Valid() bool {
	return p.X >= 0 && p.X <= MaxCoord && p.Y >= 0 && p.Y <= MaxCoord &&
		p.Z >= LayerLowerLimit && p.Z <= LayerUpperLimit
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Moved returns the neighbouring position in direction dir on the same layer.
func (p Position) Moved(dir Direction) Position {
	return Position{X: p.X + dir.DX(), Y: p.Y + dir.DY(), Z: p.Z}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// DistanceX returns |a.X - b.X|.
func DistanceX(a, b Position) int32 { return abs32(a.X - b.X) }

// DistanceY returns |a.Y - b.Y|.
func DistanceY(a, b Position) int32 { return abs32(a.Y - b.Y) }

// DistanceZ returns |a.Z - b.Z|.
func DistanceZ(a, b Position) int32 { return abs32(a.Z - b.Z) }

// Distance is the Chebyshev distance on the x/y plane.
func Distance(a, b Position) int32 {
	dx, dy := DistanceX(a, b), DistanceY(a, b)
	if dy > dx {
		return dy
	}
	return dx
}

// InRange reports whether b lies inside the box of half-size (dx, dy) around a.
func InRange(a, b Position, dx, dy int32) bool {
	return DistanceX(a, b) <= dx && DistanceY(a, b) <= dy
}

// CanSee applies the creature view rule: above-ground viewers never see
// underground, underground viewers see two layers up or down, and the
// visible box is shifted one tile per layer of height difference.
func CanSee(from, to Position, rangeX, rangeY int32) bool {
	if from.Z <= SeaLevel {
		if to.Z > SeaLevel {
			return false
		}
	} else if DistanceZ(from, to) > 2 {
		return false
	}
	offsetZ := from.Z - to.Z
	return to.X >= from.X-rangeX+offsetZ && to.X <= from.X+rangeX+offsetZ &&
		to.Y >= from.Y-rangeY+offsetZ && to.Y <= from.Y+rangeY+offsetZ
}

// Direction is a heading 0-7, clockwise from north.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var headingDX = [8]int32{0, 1, 1, 1, 0, -1, -1, -1}
var headingDY = [8]int32{-1, -1, 0, 1, 1, 1, 0, -1}

var directionNames = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// DX is the x step of the heading.
func (d Direction) DX() int32 { return headingDX[d&7] }

// DY is the y step of the heading.
func (d Direction) DY() int32 { return headingDY[d&7] }

// Diagonal reports whether the heading moves on both axes.
func (d Direction) Diagonal() bool { return d&1 == 1 }

func (d Direction) String() string { return directionNames[d&7] }

// DirectionTo returns the heading that points from a towards b. Equal
// positions yield South.
func DirectionTo(a, b Position) Direction {
	dx := sign32(b.X - a.X)
	dy := sign32(b.Y - a.Y)
	return stepDirection(dx, dy)
}

func sign32(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func stepDirection(dx, dy int32) Direction {
	for i := 0; i < 8; i++ {
		if headingDX[i] == dx && headingDY[i] == dy {
			return Direction(i)
		}
	}
	return South
}
