package pathing

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/world"
)

// FollowerConfig tunes path following.
type FollowerConfig struct {
	Speed             float32 // world units per second
	ArrivalRadius     float32 // distance at which a waypoint counts as reached
	ParallelThreshold int     // population above which updates fan out; 0 disables
	Workers           int     // fan-out width; 0 means GOMAXPROCS
}

// DefaultFollowerConfig returns the stock follower tuning.
func DefaultFollowerConfig() FollowerConfig {
	return FollowerConfig{
		Speed:             100,
		ArrivalRadius:     world.DefaultCellSize,
		ParallelThreshold: 1024,
	}
}

// Follower moves agents along their installed plans.
type Follower struct {
	grid *world.Grid
	cfg  FollowerConfig
}

// NewFollower creates a follower on grid.
func NewFollower(grid *world.Grid, cfg FollowerConfig) *Follower {
	return &Follower{grid: grid, cfg: cfg}
}

// Update advances every agent with a plan by elapsed seconds and returns how
// many plans were completed. Each agent is touched by exactly one goroutine.
func (f *Follower) Update(population []*agents.Agent, elapsed float32) int {
	if f.cfg.ParallelThreshold <= 0 || len(population) < f.cfg.ParallelThreshold {
		done := 0
		for _, a := range population {
			if f.Step(a, elapsed) {
				done++
			}
		}
		return done
	}

	workers := f.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(population) + workers - 1) / workers

	var done atomic.Int64
	var g errgroup.Group
	for start := 0; start < len(population); start += chunk {
		part := population[start:min(start+chunk, len(population))]
		g.Go(func() error {
			for _, a := range part {
				if f.Step(a, elapsed) {
					done.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(done.Load())
}

// Step advances one agent. Reaching the current waypoint moves the cursor on
// by one; passing the last waypoint clears the plan and returns true.
func (f *Follower) Step(a *agents.Agent, elapsed float32) bool {
	plan := a.Path.Plan
	if plan == nil {
		return false
	}

	target := f.grid.CellToWorld(plan.Target())
	if a.Position.Dist(target) < f.cfg.ArrivalRadius {
		plan.Cursor++
		if plan.Cursor >= len(plan.Waypoints) {
			a.Path.Plan = nil
			a.Path.Goal = nil
			return true
		}
		target = f.grid.CellToWorld(plan.Target())
	}

	f.move(a, target, elapsed)
	return false
}

func (f *Follower) move(a *agents.Agent, target world.Vec2, elapsed float32) {
	delta := target.Sub(a.Position)
	dir, ok := delta.Normalize()
	if !ok {
		return
	}
	step := f.cfg.Speed * elapsed
	if step <= 0 {
		return
	}
	if dist := delta.Len(); step >= dist {
		a.Position = target
		return
	}
	a.Position = a.Position.Add(dir.Scale(step))
}
