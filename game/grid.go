package game

// Grid is the fixed-size board. It owns no entities, only coordinate rules.
type Grid struct {
	Cols int32
	Rows int32
}

// DefaultGrid is the classic 20x20 board.
var DefaultGrid = Grid{Cols: 20, Rows: 20}

// Contains reports whether p lies inside [0,Cols)x[0,Rows).
func (g Grid) Contains(p Point) bool {
	return p.X >= 0 && p.X < g.Cols && p.Y >= 0 && p.Y < g.Rows
}

// Wrap folds p onto the torus so every coordinate lands inside the grid.
func (g Grid) Wrap(p Point) Point {
	return Point{X: mod(p.X, g.Cols), Y: mod(p.Y, g.Rows)}
}

// Interior reports whether p is inside the grid and off the outermost ring.
func (g Grid) Interior(p Point) bool {
	return p.X >= 1 && p.X <= g.Cols-2 && p.Y >= 1 && p.Y <= g.Rows-2
}

// Area is the number of cells on the board.
func (g Grid) Area() int {
	return int(g.Cols) * int(g.Rows)
}

// Cells lists every cell in row-major order.
func (g Grid) Cells() []Point {
	out := make([]Point, 0, g.Area())
	for y := int32(0); y < g.Rows; y++ {
		for x := int32(0); x < g.Cols; x++ {
			out = append(out, Point{X: x, Y: y})
		}
	}
	return out
}

func mod(v, n int32) int32 {
	if n <= 0 {
		return v
	}
	return ((v % n) + n) % n
}
