package pathing

import (
	"errors"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/world"
)

// Submitter accepts search jobs without blocking. *Pool implements it.
type Submitter interface {
	Submit(req Request) (*Handle, error)
}

// PlannerConfig tunes the planner.
type PlannerConfig struct {
	Seed int64
	// MaxSubmitsPerTick caps new searches per step. 0 is unlimited.
	MaxSubmitsPerTick int
}

// DefaultPlannerConfig returns the stock planner tuning.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{MaxSubmitsPerTick: 256}
}

// PlannerStats counts planner outcomes since start.
type PlannerStats struct {
	Submitted uint64 `json:"submitted"`
	Installed uint64 `json:"installed"`
	NoPath    uint64 `json:"no_path"`
	Failed    uint64 `json:"failed"`
	Stale     uint64 `json:"stale"`
	Saturated uint64 `json:"saturated"`
	Dropped   uint64 `json:"dropped"`
}

type pendingSearch struct {
	agent  agents.AgentID
	handle *Handle
}

// completion is a finished search waiting to be applied on the tick thread.
type completion struct {
	agent  agents.AgentID
	result Result
}

// Planner drives each wandering agent through Idle, GoalSet, Searching and
// Planned. It must only be used from the tick loop.
type Planner struct {
	grid *world.Grid
	pool Submitter
	cfg  PlannerConfig
	rng  *rand.Rand

	submits int // this step

	pending  map[uuid.UUID]pendingSearch
	deferred []completion

	Stats PlannerStats
}

// NewPlanner creates a planner that submits searches to pool.
func NewPlanner(grid *world.Grid, pool Submitter, cfg PlannerConfig) *Planner {
	return &Planner{
		grid:    grid,
		pool:    pool,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed + 700)),
		pending: make(map[uuid.UUID]pendingSearch),
	}
}

// Update runs one planner step: finished searches are applied first, then
// each agent is advanced through its path lifecycle. index must map every
// live agent ID to its agent.
func (p *Planner) Update(population []*agents.Agent, index map[agents.AgentID]*agents.Agent, tick uint64) {
	p.collect()
	p.apply(index)
	p.submits = 0

	for _, a := range population {
		p.advance(a, tick)
	}
}

// Outstanding returns the number of searches the planner is waiting on.
func (p *Planner) Outstanding() int {
	return len(p.pending)
}

// Forget stops tracking searches issued for a removed agent. Their results
// are dropped on arrival.
func (p *Planner) Forget(id agents.AgentID) {
	for jobID, ps := range p.pending {
		if ps.agent == id {
			delete(p.pending, jobID)
			p.Stats.Dropped++
		}
	}
}

// collect moves finished searches into the deferred queue.
func (p *Planner) collect() {
	for jobID, ps := range p.pending {
		res, ok := ps.handle.Poll()
		if !ok {
			continue
		}
		delete(p.pending, jobID)
		p.deferred = append(p.deferred, completion{agent: ps.agent, result: res})
	}
}

func (p *Planner) apply(index map[agents.AgentID]*agents.Agent) {
	for _, c := range p.deferred {
		p.install(index[c.agent], c.result)
	}
	clear(p.deferred)
	p.deferred = p.deferred[:0]
}

func (p *Planner) install(a *agents.Agent, res Result) {
	if a == nil || a.Path.Pending == nil || a.Path.Pending.JobID != res.JobID {
		p.Stats.Stale++
		return
	}
	a.Path.Pending = nil

	if a.Task.Current != agents.TaskWander {
		p.Stats.Stale++
		a.Path.Goal = nil
		return
	}

	if res.Err != nil || len(res.Path.Waypoints) == 0 {
		if res.Err == nil || errors.Is(res.Err, ErrNoPath) {
			p.Stats.NoPath++
		} else {
			p.Stats.Failed++
			slog.Warn("path search failed", "agent", a.ID, "job", res.JobID, "error", res.Err)
		}
		// Back to Idle; a fresh goal is picked below.
		a.Path.Goal = nil
		return
	}

	a.Path.Plan = &agents.PathPlan{
		Waypoints: res.Path.Waypoints,
		TotalCost: res.Path.TotalCost,
	}
	a.Path.Goal = nil
	p.Stats.Installed++
	slog.Debug("path installed",
		"agent", a.ID,
		"waypoints", len(res.Path.Waypoints),
		"cost", res.Path.TotalCost,
		"expanded", res.Path.Expanded,
		"elapsed", res.Elapsed,
	)
}

func (p *Planner) advance(a *agents.Agent, tick uint64) {
	if a.Task.Current != agents.TaskWander {
		// Busy agents stand still. A pending search stays tracked so its
		// result can be discarded when it lands.
		a.Path.Reset()
		return
	}

	if t := a.Path.Pending; t != nil {
		if _, ok := p.pending[t.JobID]; ok {
			return
		}
		// Orphaned ticket; nothing will ever answer it.
		a.Path.Pending = nil
	}
	if a.Path.Plan != nil {
		return
	}

	if a.Path.Goal == nil {
		goal := p.randomGoal()
		a.Path.Goal = &goal
	}

	if p.cfg.MaxSubmitsPerTick > 0 && p.submits >= p.cfg.MaxSubmitsPerTick {
		return
	}

	// An off-grid origin is never expanded, so search from the nearest edge cell.
	origin := p.grid.ClampCell(p.grid.WorldToCell(a.Position))
	h, err := p.pool.Submit(Request{Origin: origin, Goal: *a.Path.Goal})
	if err != nil {
		// Stay in GoalSet and retry next tick.
		p.Stats.Saturated++
		return
	}

	a.Path.Pending = &agents.SearchTicket{
		JobID:      h.ID,
		Origin:     origin,
		Goal:       *a.Path.Goal,
		IssuedTick: tick,
	}
	p.pending[h.ID] = pendingSearch{agent: a.ID, handle: h}
	p.submits++
	p.Stats.Submitted++
}

func (p *Planner) randomGoal() world.Cell {
	return world.Cell{
		X: p.rng.Intn(p.grid.Width),
		Y: p.rng.Intn(p.grid.Height),
	}
}
