package game

import "math"

// Direction is a unit step on the grid.
type Direction struct {
	X int32
	Y int32
}

var (
	Up    = Direction{X: 0, Y: -1}
	Down  = Direction{X: 0, Y: 1}
	Left  = Direction{X: -1, Y: 0}
	Right = Direction{X: 1, Y: 0}
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	return Direction{X: -d.X, Y: -d.Y}
}

// IsReverseOf reports whether d points exactly back along o.
func (d Direction) IsReverseOf(o Direction) bool {
	return d.X == -o.X && d.Y == -o.Y
}

// Valid reports whether d is one of the four unit directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// DirectionBuffer is a single-slot pending direction.
// The latest Set wins; Take empties the slot.
type DirectionBuffer struct {
	dir Direction
	set bool
}

// Set overwrites any pending direction. Invalid directions are ignored.
func (b *DirectionBuffer) Set(d Direction) {
	if !d.Valid() {
		return
	}
	b.dir = d
	b.set = true
}

// Pending returns the buffered direction without consuming it.
func (b *DirectionBuffer) Pending() (Direction, bool) {
	return b.dir, b.set
}

// Take returns the buffered direction and clears the slot.
func (b *DirectionBuffer) Take() (Direction, bool) {
	d, ok := b.dir, b.set
	b.dir = Direction{}
	b.set = false
	return d, ok
}

// Clear drops any pending direction.
func (b *DirectionBuffer) Clear() {
	b.dir = Direction{}
	b.set = false
}

// SwipeTapThreshold is the largest pointer travel still treated as a tap.
const SwipeTapThreshold = 10.0

// ClassifySwipe maps pointer travel (dx, dy) to a direction along its
// dominant axis. ok is false for a tap: travel below threshold on both axes.
// Ties go to the vertical axis.
func ClassifySwipe(dx, dy, threshold float64) (d Direction, ok bool) {
	adx, ady := math.Abs(dx), math.Abs(dy)
	if math.Max(adx, ady) < threshold {
		return Direction{}, false
	}
	if adx > ady {
		if dx > 0 {
			return Right, true
		}
		return Left, true
	}
	if dy > 0 {
		return Down, true
	}
	return Up, true
}
