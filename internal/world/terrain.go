package world

// Terrain types for grid cells.
type Terrain uint8

const (
	TerrainWater Terrain = iota // Unweighted; priced at DefaultWeight
	TerrainGrass                // Open ground, cheapest to cross
	TerrainDirt
	TerrainMud
	TerrainRock
)

// NumTerrains is the number of terrain types.
const NumTerrains = 5

// terrainWeights maps terrain to movement cost. Water is deliberately absent
// from the weight table.
var terrainWeights = [NumTerrains]uint32{
	TerrainWater: 0,
	TerrainGrass: 1,
	TerrainDirt:  2,
	TerrainMud:   4,
	TerrainRock:  12,
}

// Weight returns the registered movement cost of the terrain, or 0 when the
// terrain is unweighted.
func (t Terrain) Weight() uint32 {
	if int(t) >= len(terrainWeights) {
		return 0
	}
	return terrainWeights[t]
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainWater:
		return "Water"
	case TerrainGrass:
		return "Grass"
	case TerrainDirt:
		return "Dirt"
	case TerrainMud:
		return "Mud"
	case TerrainRock:
		return "Rock"
	default:
		return "Unknown"
	}
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, t := range g.terrain {
		counts[t]++
	}
	return counts
}
