// Package world provides the weighted square grid agents walk across, its
// noise-based terrain generation, and the transforms between grid cells and
// continuous world coordinates.
package world

// Cell is an integer grid coordinate.
// Cells are totally ordered by X, then Y.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Compare returns -1, 0 or +1 depending on whether c sorts before, equal to,
// or after o.
func (c Cell) Compare(o Cell) int {
	switch {
	case c.X < o.X:
		return -1
	case c.X > o.X:
		return 1
	case c.Y < o.Y:
		return -1
	case c.Y > o.Y:
		return 1
	}
	return 0
}

// Less reports whether c sorts before o.
func (c Cell) Less(o Cell) bool {
	return c.Compare(o) < 0
}

// NeighborDirections defines the eight neighbor offsets: orthogonal first,
// then diagonal.
var NeighborDirections = [8]Cell{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 1},
	{X: 1, Y: -1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
}

// Neighbors returns the eight adjacent cells.
func (c Cell) Neighbors() [8]Cell {
	var result [8]Cell
	for i, dir := range NeighborDirections {
		result[i] = Cell{X: c.X + dir.X, Y: c.Y + dir.Y}
	}
	return result
}

// Distance returns the Manhattan (L1) distance between two cells.
func Distance(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
