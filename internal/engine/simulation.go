// Simulation ties together all colony systems and runs them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/pathing"
	"github.com/talgya/colony/internal/world"
)

// Config holds simulation construction parameters.
type Config struct {
	Seed         int64
	Planner      pathing.PlannerConfig
	Follower     pathing.FollowerConfig
	MaxEvents    int // Events kept in memory
	CommandQueue int // External mutations accepted per tick
}

// DefaultConfig returns the stock simulation settings.
func DefaultConfig() Config {
	return Config{
		Planner:      pathing.DefaultPlannerConfig(),
		Follower:     pathing.DefaultFollowerConfig(),
		MaxEvents:    1000,
		CommandQueue: 256,
	}
}

// Simulation holds the complete colony state and wires systems together.
// Tick runs under the write lock; readers use the view methods.
type Simulation struct {
	mu sync.RWMutex

	Grid       *world.Grid
	Agents     []*agents.Agent
	AgentIndex map[agents.AgentID]*agents.Agent
	Events     []Event // Recent events, oldest first
	LastTick   uint64  // Most recent tick processed

	Seed      int64
	SessionID uuid.UUID

	Spawner  *agents.Spawner
	Arbiter  *agents.Arbiter
	Executor *agents.Executor
	Planner  *pathing.Planner
	Follower *pathing.Follower

	cfg      Config
	cmdMu    sync.Mutex
	commands []Command

	Stats SimStats
}

// Event is a notable occurrence in the colony.
type Event struct {
	Tick        uint64         `json:"tick"`
	Description string         `json:"description"`
	Category    string         `json:"category"` // "task", "spawn", "despawn", "admin"
	Meta        map[string]any `json:"meta,omitempty"`
}

// SimStats tracks aggregate colony statistics.
type SimStats struct {
	Population     int                  `json:"population"`
	Tasks          map[string]int       `json:"tasks"`
	Phases         map[string]int       `json:"phases"`
	Locked         int                  `json:"locked"`
	AvgNeeds       map[string]float32   `json:"avg_needs"`
	TasksStarted   uint64               `json:"tasks_started"`
	TasksCompleted uint64               `json:"tasks_completed"`
	PlansCompleted uint64               `json:"plans_completed"`
	Spawned        uint64               `json:"spawned"`
	Despawned      uint64               `json:"despawned"`
	Search         pathing.PlannerStats `json:"search"`
}

// NewSimulation creates a Simulation over grid with an initial population.
// pool receives path searches; the caller owns its lifetime.
func NewSimulation(grid *world.Grid, pool pathing.Submitter, population []*agents.Agent, cfg Config) *Simulation {
	index := make(map[agents.AgentID]*agents.Agent, len(population))
	next := agents.AgentID(1)
	for _, a := range population {
		// A restored agent may sit off a grid generated with other dimensions.
		a.Position = grid.ClampWorld(a.Position)
		index[a.ID] = a
		if a.ID >= next {
			next = a.ID + 1
		}
	}

	spawner := agents.NewSpawner(cfg.Seed)
	spawner.SetNextID(next)

	plannerCfg := cfg.Planner
	plannerCfg.Seed = cfg.Seed

	sim := &Simulation{
		Grid:       grid,
		Agents:     population,
		AgentIndex: index,
		Seed:       cfg.Seed,
		SessionID:  uuid.New(),
		Spawner:    spawner,
		Arbiter:    &agents.Arbiter{},
		Executor:   agents.NewExecutor(cfg.Seed),
		Planner:    pathing.NewPlanner(grid, pool, plannerCfg),
		Follower:   pathing.NewFollower(grid, cfg.Follower),
		cfg:        cfg,
	}
	sim.Arbiter.OnLock = sim.onLock
	sim.Executor.OnComplete = sim.onComplete
	sim.updateStats()
	return sim
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// Tick runs every system once, in order: queued external mutations, need
// decay, task arbitration, task execution, path planning, path following.
func (s *Simulation) Tick(tick uint64, dt float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	s.applyCommands(tick)

	agents.DecayAll(s.Agents, dt)
	s.Arbiter.Run(s.Agents)
	s.Executor.Run(s.Agents, dt)
	s.Planner.Update(s.Agents, s.AgentIndex, tick)
	s.Stats.PlansCompleted += uint64(s.Follower.Update(s.Agents, dt))

	s.trimEvents()
	s.updateStats()
}

// Report logs a periodic colony summary.
func (s *Simulation) Report(tick uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.Stats
	slog.Info("colony report",
		"tick", humanize.Comma(int64(tick)),
		"population", humanize.Comma(int64(st.Population)),
		"wander", st.Tasks[agents.TaskWander.String()],
		"drink", st.Tasks[agents.TaskDrink.String()],
		"eat", st.Tasks[agents.TaskEat.String()],
		"sleep", st.Tasks[agents.TaskSleep.String()],
		"avg_hunger", fmt.Sprintf("%.1f", st.AvgNeeds[agents.NeedHunger.String()]),
		"avg_thirst", fmt.Sprintf("%.1f", st.AvgNeeds[agents.NeedThirst.String()]),
		"avg_fatigue", fmt.Sprintf("%.1f", st.AvgNeeds[agents.NeedFatigue.String()]),
		"searches", humanize.Comma(int64(st.Search.Submitted)),
		"installed", humanize.Comma(int64(st.Search.Installed)),
		"no_path", st.Search.NoPath,
		"stale", st.Search.Stale,
		"saturated", st.Search.Saturated,
		"plans_completed", humanize.Comma(int64(st.PlansCompleted)),
	)
}

// EmitEvent records an event. Callers must hold the write lock.
func (s *Simulation) EmitEvent(e Event) {
	s.Events = append(s.Events, e)
}

func (s *Simulation) onLock(a *agents.Agent, task agents.TaskKind) {
	s.Stats.TasksStarted++
	slog.Debug("task locked", "agent", a.Name, "task", task)
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("%s turns to %s", a.Name, task),
		Category:    "task",
		Meta: map[string]any{
			"agent_id": a.ID,
			"task":     task.String(),
		},
	})
}

func (s *Simulation) onComplete(a *agents.Agent, task agents.TaskKind) {
	s.Stats.TasksCompleted++
	slog.Debug("task complete", "agent", a.Name, "task", task)
}

// trimEvents keeps the most recent MaxEvents events.
func (s *Simulation) trimEvents() {
	if s.cfg.MaxEvents > 0 && len(s.Events) > s.cfg.MaxEvents {
		s.Events = append(s.Events[:0:0], s.Events[len(s.Events)-s.cfg.MaxEvents:]...)
	}
}

func (s *Simulation) updateStats() {
	tasks := make(map[string]int, agents.NumTasks)
	phases := make(map[string]int, 4)
	var needSums [agents.NumNeeds]float32
	locked := 0

	for _, a := range s.Agents {
		tasks[a.Task.Current.String()]++
		phases[a.Path.Phase().String()]++
		if a.Task.Locked {
			locked++
		}
		for k := agents.NeedKind(0); k < agents.NumNeeds; k++ {
			needSums[k] += a.Needs.Get(k).Value
		}
	}

	avg := make(map[string]float32, agents.NumNeeds)
	for k := agents.NeedKind(0); k < agents.NumNeeds; k++ {
		if len(s.Agents) > 0 {
			avg[k.String()] = needSums[k] / float32(len(s.Agents))
		}
	}

	s.Stats.Population = len(s.Agents)
	s.Stats.Tasks = tasks
	s.Stats.Phases = phases
	s.Stats.Locked = locked
	s.Stats.AvgNeeds = avg
	s.Stats.Search = s.Planner.Stats
}
