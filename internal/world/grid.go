package world

import (
	"fmt"
	"math"
)

// DefaultWeight is the movement cost of any cell without a registered weight,
// including cells outside the grid. It makes such cells maximally repulsive
// to the pathfinder without making them unreachable.
const DefaultWeight uint32 = 9999

// DefaultCellSize is the edge length of one cell in world units.
const DefaultCellSize = 32

// Grid holds per-cell movement costs and terrain for a Width x Height area.
//
// A Grid is written only during world generation. Once the simulation starts
// it is shared read-only between the tick loop and search workers, so no
// synchronization is needed.
type Grid struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	CellSize int `json:"cell_size"`

	weights []uint32  // 0 = unweighted
	terrain []Terrain // parallel to weights
}

// NewGrid creates a grid with every cell unweighted.
func NewGrid(width, height, cellSize int) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		weights:  make([]uint32, width*height),
		terrain:  make([]Terrain, width*height),
	}
}

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.Width + c.X
}

// Set registers the movement cost of a cell. Out-of-bounds cells are ignored.
// A weight of 0 unregisters the cell.
func (g *Grid) Set(c Cell, weight uint32) {
	if !g.InBounds(c) {
		return
	}
	g.weights[g.index(c)] = weight
}

// SetTerrain assigns terrain to a cell and registers the terrain's weight.
func (g *Grid) SetTerrain(c Cell, t Terrain) {
	if !g.InBounds(c) {
		return
	}
	i := g.index(c)
	g.terrain[i] = t
	g.weights[i] = t.Weight()
}

// Fill registers the same weight on every cell.
func (g *Grid) Fill(weight uint32) {
	for i := range g.weights {
		g.weights[i] = weight
	}
}

// Cost returns the movement cost of entering c. Cells that are unweighted or
// outside the grid cost DefaultWeight.
func (g *Grid) Cost(c Cell) uint32 {
	if !g.InBounds(c) {
		return DefaultWeight
	}
	if w := g.weights[g.index(c)]; w != 0 {
		return w
	}
	return DefaultWeight
}

// Weighted reports whether c has a registered weight.
func (g *Grid) Weighted(c Cell) bool {
	return g.InBounds(c) && g.weights[g.index(c)] != 0
}

// TerrainAt returns the terrain of c, or TerrainWater outside the grid.
func (g *Grid) TerrainAt(c Cell) Terrain {
	if !g.InBounds(c) {
		return TerrainWater
	}
	return g.terrain[g.index(c)]
}

// Neighbors8 returns the eight cells adjacent to c. Neighbors may lie outside
// the grid; Cost prices those at DefaultWeight.
func (g *Grid) Neighbors8(c Cell) [8]Cell {
	return c.Neighbors()
}

// Extent returns the world-space size of the grid.
func (g *Grid) Extent() Vec2 {
	return Vec2{
		X: float32(g.Width * g.CellSize),
		Y: float32(g.Height * g.CellSize),
	}
}

// CellToWorld returns the world position of a cell. The grid is centred on
// the world origin.
func (g *Grid) CellToWorld(c Cell) Vec2 {
	ext := g.Extent()
	return Vec2{
		X: float32(c.X*g.CellSize) - ext.X/2,
		Y: float32(c.Y*g.CellSize) - ext.Y/2,
	}
}

// WorldToCell returns the cell containing world position p.
func (g *Grid) WorldToCell(p Vec2) Cell {
	ext := g.Extent()
	size := float64(g.CellSize)
	return Cell{
		X: int(math.Floor(float64(p.X+ext.X/2) / size)),
		Y: int(math.Floor(float64(p.Y+ext.Y/2) / size)),
	}
}

// ContainsWorld reports whether world position p lies on the grid.
func (g *Grid) ContainsWorld(p Vec2) bool {
	return g.InBounds(g.WorldToCell(p))
}

// ClampCell returns the in-bounds cell nearest to c.
func (g *Grid) ClampCell(c Cell) Cell {
	return Cell{
		X: max(0, min(c.X, g.Width-1)),
		Y: max(0, min(c.Y, g.Height-1)),
	}
}

// ClampWorld pulls p onto the grid. An axis that lies off the grid is moved
// to the centre of the nearest edge cell; an axis already on it is kept.
func (g *Grid) ClampWorld(p Vec2) Vec2 {
	c := g.WorldToCell(p)
	if g.InBounds(c) {
		return p
	}
	cc := g.ClampCell(c)
	centre := g.CellToWorld(cc).Add(Vec2{X: float32(g.CellSize) / 2, Y: float32(g.CellSize) / 2})
	if cc.X != c.X {
		p.X = centre.X
	}
	if cc.Y != c.Y {
		p.Y = centre.Y
	}
	return p
}

// CellCount returns the total number of cells in the grid.
func (g *Grid) CellCount() int {
	return g.Width * g.Height
}

// WeightedCount returns the number of cells with a registered weight.
func (g *Grid) WeightedCount() int {
	n := 0
	for _, w := range g.weights {
		if w != 0 {
			n++
		}
	}
	return n
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, cell=%d, weighted=%d)", g.Width, g.Height, g.CellSize, g.WeightedCount())
}
