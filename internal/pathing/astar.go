// Package pathing computes shortest paths on the world grid off the tick
// thread, installs finished paths into agent state, and walks agents along
// them.
package pathing

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/talgya/colony/internal/world"
)

// ErrNoPath is returned when a search exhausts its frontier or budget
// without reaching the goal.
var ErrNoPath = errors.New("no path found")

// cancelCheckInterval is how many expansions pass between context checks.
const cancelCheckInterval = 1024

// CostGrid is the read-only view of the world a search needs. Cells outside
// the grid must still report a cost.
type CostGrid interface {
	Cost(c world.Cell) uint32
	Neighbors8(c world.Cell) [8]world.Cell
	InBounds(c world.Cell) bool
}

// SearchConfig tunes the A* search.
type SearchConfig struct {
	// HeuristicDivisor scales the Manhattan heuristic down: h = L1 / divisor.
	// Values below 1 are treated as 1.
	HeuristicDivisor int
	// MaxCost prunes partial paths costlier than this. 0 disables pruning.
	MaxCost uint32
	// MaxExpansions caps how many cells a search may expand. 0 is unbounded.
	MaxExpansions int
}

// DefaultSearchConfig returns the stock search tuning.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		HeuristicDivisor: 3,
		MaxCost:          0,
		MaxExpansions:    1 << 20,
	}
}

// Path is a finished search result. Waypoints run from origin to goal
// inclusive.
type Path struct {
	Waypoints []world.Cell
	TotalCost uint32
	Expanded  int
}

// FindPath runs A* from origin to goal. Entering a cell costs that cell's
// weight. Cells outside the grid may be entered at their (default) cost but
// are never expanded, which keeps the frontier finite.
func FindPath(ctx context.Context, g CostGrid, origin, goal world.Cell, cfg SearchConfig) (Path, error) {
	div := cfg.HeuristicDivisor
	if div < 1 {
		div = 1
	}
	h := func(c world.Cell) uint64 {
		return uint64(world.Distance(c, goal) / div)
	}

	open := &openList{}
	best := map[world.Cell]uint64{origin: 0}
	parent := make(map[world.Cell]world.Cell)
	closed := make(map[world.Cell]bool)

	var seq uint64
	heap.Push(open, &node{cell: origin, g: 0, f: h(origin), seq: seq})

	expanded := 0
	for open.Len() > 0 {
		if expanded%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Path{}, err
			}
		}

		n := heap.Pop(open).(*node)
		if closed[n.cell] {
			continue
		}
		closed[n.cell] = true

		if n.cell == goal {
			return Path{
				Waypoints: reconstruct(parent, origin, goal),
				TotalCost: saturate(n.g),
				Expanded:  expanded,
			}, nil
		}

		expanded++
		if cfg.MaxExpansions > 0 && expanded > cfg.MaxExpansions {
			return Path{}, fmt.Errorf("%w: expansion budget %d exhausted", ErrNoPath, cfg.MaxExpansions)
		}

		if !g.InBounds(n.cell) {
			continue
		}

		for _, nb := range g.Neighbors8(n.cell) {
			if closed[nb] {
				continue
			}
			ng := n.g + uint64(g.Cost(nb))
			if cfg.MaxCost > 0 && ng > uint64(cfg.MaxCost) {
				continue
			}
			if old, ok := best[nb]; ok && ng >= old {
				continue
			}
			best[nb] = ng
			parent[nb] = n.cell
			seq++
			heap.Push(open, &node{cell: nb, g: ng, f: ng + h(nb), seq: seq})
		}
	}

	return Path{}, ErrNoPath
}

func reconstruct(parent map[world.Cell]world.Cell, origin, goal world.Cell) []world.Cell {
	path := []world.Cell{goal}
	for c := goal; c != origin; {
		c = parent[c]
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func saturate(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

type node struct {
	cell world.Cell
	g    uint64
	f    uint64
	seq  uint64 // insertion order; breaks f ties
}

// openList is a min-heap on (f, seq).
type openList []*node

func (o openList) Len() int { return len(o) }

func (o openList) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openList) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openList) Push(x any) { *o = append(*o, x.(*node)) }

func (o *openList) Pop() any {
	old := *o
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return x
}
