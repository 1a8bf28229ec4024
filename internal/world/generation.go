// World generation using layered simplex noise.
// Generates elevation and moisture fields, then derives terrain and weights.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width      int     // Cells along X
	Height     int     // Cells along Y
	CellSize   int     // World units per cell
	Seed       int64   // Random seed (0 = random)
	WaterLevel float64 // Elevation below which cells are water (0.0-1.0)
	RockLevel  float64 // Elevation above which cells are rock (0.0-1.0)
	MudLevel   float64 // Moisture above which land is mud
	DirtLevel  float64 // Moisture below which land is dirt
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:      256,
		Height:     256,
		CellSize:   DefaultCellSize,
		Seed:       0,
		WaterLevel: 0.22,
		RockLevel:  0.78,
		MudLevel:   0.68,
		DirtLevel:  0.30,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 24
	cfg.Height = 24
	cfg.Seed = 42
	return cfg
}

// Generate creates a complete grid with terrain and weights.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Independent noise layers.
	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	g := NewGrid(cfg.Width, cfg.Height, cfg.CellSize)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)

			elev := octaveNoise(elevNoise, fx, fy, 4, 0.03, 0.5)
			moist := octaveNoise(moistNoise, fx, fy, 3, 0.05, 0.5)

			g.SetTerrain(Cell{X: x, Y: y}, deriveTerrain(elev, moist, cfg))
		}
	}

	return g
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	if elev < cfg.WaterLevel {
		return TerrainWater
	}
	if elev > cfg.RockLevel {
		return TerrainRock
	}
	if moist > cfg.MudLevel {
		return TerrainMud
	}
	if moist < cfg.DirtLevel {
		return TerrainDirt
	}
	return TerrainGrass
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
