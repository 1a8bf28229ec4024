package world

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceIsManhattan(t *testing.T) {
	assert.Equal(t, 0, Distance(Cell{3, 4}, Cell{3, 4}))
	assert.Equal(t, 2, Distance(Cell{0, 0}, Cell{2, 0}))
	assert.Equal(t, 7, Distance(Cell{-1, 2}, Cell{2, -2}))
}

func TestCellOrdering(t *testing.T) {
	cells := []Cell{{2, 1}, {1, 5}, {1, 2}, {0, 9}}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	assert.Equal(t, []Cell{{0, 9}, {1, 2}, {1, 5}, {2, 1}}, cells)
	assert.Equal(t, 0, Cell{4, 4}.Compare(Cell{4, 4}))
}

func TestNeighbors8(t *testing.T) {
	g := NewGrid(4, 4, 32)
	n := g.Neighbors8(Cell{1, 1})

	seen := make(map[Cell]bool)
	for _, c := range n {
		assert.Equal(t, 1, max(abs(c.X-1), abs(c.Y-1)), "neighbor %v not adjacent", c)
		seen[c] = true
	}
	assert.Len(t, seen, 8)
}

func TestCostDefaultsForUnweightedAndOutOfBounds(t *testing.T) {
	g := NewGrid(3, 3, 32)
	g.Set(Cell{1, 1}, 5)

	assert.Equal(t, uint32(5), g.Cost(Cell{1, 1}))
	assert.Equal(t, DefaultWeight, g.Cost(Cell{0, 0}))
	assert.Equal(t, DefaultWeight, g.Cost(Cell{-1, 0}))
	assert.Equal(t, DefaultWeight, g.Cost(Cell{3, 3}))
	assert.True(t, g.Weighted(Cell{1, 1}))
	assert.False(t, g.Weighted(Cell{0, 0}))

	// Writes outside the grid are ignored.
	g.Set(Cell{10, 10}, 1)
	assert.Equal(t, 1, g.WeightedCount())
}

func TestCellWorldRoundTrip(t *testing.T) {
	g := NewGrid(64, 32, 32)

	assert.Equal(t, Vec2{X: -1024, Y: -512}, g.CellToWorld(Cell{0, 0}))

	for _, c := range []Cell{{0, 0}, {10, 3}, {63, 31}, {32, 16}} {
		p := g.CellToWorld(c)
		assert.Equal(t, c, g.WorldToCell(p))
		// Anywhere inside the cell maps back to it.
		assert.Equal(t, c, g.WorldToCell(p.Add(Vec2{X: 31.5, Y: 0.5})))
	}

	// Left of the grid floors to negative cells rather than truncating to 0.
	assert.Equal(t, Cell{-1, 0}, g.WorldToCell(Vec2{X: -1025, Y: -512}))
}

func TestClampWorld(t *testing.T) {
	g := NewGrid(64, 32, 32)

	inside := Vec2{X: 100.5, Y: -20}
	assert.True(t, g.ContainsWorld(inside))
	assert.Equal(t, inside, g.ClampWorld(inside))

	assert.False(t, g.ContainsWorld(Vec2{X: 5000, Y: 0}))
	assert.Equal(t, Vec2{X: 1008, Y: 0}, g.ClampWorld(Vec2{X: 5000, Y: 0}))
	assert.Equal(t, Vec2{X: -1008, Y: -496}, g.ClampWorld(Vec2{X: -5000, Y: -5000}))

	// The far edge is exclusive.
	assert.False(t, g.ContainsWorld(Vec2{X: 1024, Y: 0}))
	assert.True(t, g.ContainsWorld(g.ClampWorld(Vec2{X: 1024, Y: 0})))

	assert.Equal(t, Cell{63, 0}, g.ClampCell(Cell{99, -3}))
}

func TestVec2Normalize(t *testing.T) {
	n, ok := Vec2{X: 3, Y: 4}.Normalize()
	require.True(t, ok)
	assert.InDelta(t, 0.6, n.X, 1e-6)
	assert.InDelta(t, 0.8, n.Y, 1e-6)

	_, ok = Vec2{}.Normalize()
	assert.False(t, ok)
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	require.Equal(t, cfg.Width, a.Width)
	require.Equal(t, cfg.Height, a.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			c := Cell{x, y}
			assert.Equal(t, a.Cost(c), b.Cost(c))
			assert.Equal(t, a.TerrainAt(c), b.TerrainAt(c))
		}
	}

	counts := TerrainCounts(a)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, a.CellCount(), total)
	assert.Equal(t, total-counts[TerrainWater], a.WeightedCount())
}

func TestTerrainWeights(t *testing.T) {
	assert.Zero(t, TerrainWater.Weight())
	assert.Equal(t, uint32(1), TerrainGrass.Weight())
	assert.Less(t, TerrainMud.Weight(), TerrainRock.Weight())
	assert.Equal(t, "Unknown", TerrainName(Terrain(200)))
	assert.Zero(t, Terrain(200).Weight())
}
