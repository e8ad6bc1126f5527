package world

// CheckSightLine walks the grid line from (x0, y0) to (x1, y1) on layer z
// and fails on the first tile, destination included, that blocks
// projectiles. The start tile is never tested.
func (m *Map) CheckSightLine(x0, y0, x1, y1, z int32) bool {
	if x0 == x1 && y0 == y1 {
		return true
	}
	cx, cy := x0, y0
	mx := sign32(x1 - x0)
	my := sign32(y1 - y0)

	// Line through both points as A*x + B*y + C = 0.
	a := y1 - y0
	b := x0 - x1
	c := -(a*x1 + b*y1)

	for cx != x1 || cy != y1 {
		moveHor := abs32(a*(cx+mx) + b*cy + c)
		moveVer := abs32(a*cx + b*(cy+my) + c)
		moveCross := abs32(a*(cx+mx) + b*(cy+my) + c)

		if cy != y1 && (cx == x1 || moveHor > moveVer || moveHor > moveCross) {
			cy += my
		}
		if cx != x1 && (cy == y1 || moveVer > moveHor || moveVer > moveCross) {
			cx += mx
		}

		if t := m.GetTile(Position{X: cx, Y: cy, Z: z}); t != nil && t.BlocksProjectile() {
			return false
		}
	}
	return true
}

// IsSightClear reports whether a missile can travel from one position to
// the other. Without sameFloor the shot may arc over an obstacle through
// the layer above, or reach one layer up or any layer down on the same
// side of sea level.
func (m *Map) IsSightClear(from, to Position, sameFloor bool) bool {
	if from.Z == to.Z {
		if DistanceX(from, to) < 2 && DistanceY(from, to) < 2 {
			return true
		}
		sightClear := m.CheckSightLine(from.X, from.Y, to.X, to.Y, from.Z)
		if sightClear || sameFloor {
			return sightClear
		}
		if from.Z == 0 {
			return true
		}
		upper := from.Z - 1
		return m.IsTileClear(Position{X: from.X, Y: from.Y, Z: upper}, true) &&
			m.IsTileClear(Position{X: to.X, Y: to.Y, Z: upper}, true) &&
			m.CheckSightLine(from.X, from.Y, to.X, to.Y, upper)
	}

	if sameFloor {
		return false
	}
	if (from.Z <= SeaLevel && to.Z > SeaLevel) || (from.Z > SeaLevel && to.Z <= SeaLevel) {
		return false
	}

	if from.Z > to.Z {
		// target is above
		if DistanceZ(from, to) > 1 {
			return false
		}
		upper := from.Z - 1
		return m.IsTileClear(Position{X: from.X, Y: from.Y, Z: upper}, true) &&
			m.CheckSightLine(from.X, from.Y, to.X, to.Y, upper)
	}

	for z := from.Z; z < to.Z; z++ {
		if !m.IsTileClear(Position{X: to.X, Y: to.Y, Z: z}, true) {
			return false
		}
	}
	return m.CheckSightLine(from.X, from.Y, to.X, to.Y, from.Z)
}

// IsTileClear reports whether nothing at pos stops a missile. With
// blockFloor a ground item counts as an obstacle too.
func (m *Map) IsTileClear(pos Position, blockFloor bool) bool {
	t := m.GetTile(pos)
	if t == nil {
		return true
	}
	if blockFloor && t.ground != nil {
		return false
	}
	return !t.BlocksProjectile()
}

// ThrowOptions tunes CanThrowObjectTo. The zero value is not the default;
// use DefaultThrowOptions.
type ThrowOptions struct {
	CheckLineOfSight bool
	SameFloor        bool
	RangeX           int32
	RangeY           int32
}

func DefaultThrowOptions() ThrowOptions {
	return ThrowOptions{CheckLineOfSight: true, RangeX: MaxClientViewportX, RangeY: MaxClientViewportY}
}

// CanThrowObjectTo checks the throw range box and, optionally, sight.
func (m *Map) CanThrowObjectTo(from, to Position, opts ThrowOptions) bool {
	if DistanceX(from, to) > opts.RangeX || DistanceY(from, to) > opts.RangeY {
		return false
	}
	return !opts.CheckLineOfSight || m.IsSightClear(from, to, opts.SameFloor)
}
