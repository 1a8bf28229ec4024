package engine

import (
	"maps"

	"github.com/google/uuid"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/world"
)

// AgentView is a read-only copy of an agent for observers.
type AgentView struct {
	ID        agents.AgentID    `json:"id"`
	Name      string            `json:"name"`
	Position  world.Vec2        `json:"position"`
	Cell      world.Cell        `json:"cell"`
	Needs     agents.NeedsState `json:"needs"`
	Task      string            `json:"task"`
	Locked    bool              `json:"locked"`
	Phase     string            `json:"phase"`
	Goal      *world.Cell       `json:"goal,omitempty"`
	Waypoints int               `json:"waypoints_remaining"`
	PathCost  uint32            `json:"path_cost,omitempty"`
	BornTick  uint64            `json:"born_tick"`
}

// Status is a point-in-time summary of the simulation.
type Status struct {
	Tick      uint64    `json:"tick"`
	SessionID uuid.UUID `json:"session_id"`
	Seed      int64     `json:"seed"`
	GridW     int       `json:"grid_width"`
	GridH     int       `json:"grid_height"`
	Pending   int       `json:"pending_commands"`
	Stats     SimStats  `json:"stats"`
}

// Snapshot is a detached copy of the persistent simulation state.
type Snapshot struct {
	Tick      uint64
	Seed      int64
	SessionID uuid.UUID
	Agents    []agents.Agent
	Events    []Event
}

func (s *Simulation) viewOf(a *agents.Agent) AgentView {
	v := AgentView{
		ID:       a.ID,
		Name:     a.Name,
		Position: a.Position,
		Cell:     s.Grid.WorldToCell(a.Position),
		Needs:    a.Needs,
		Task:     a.Task.Current.String(),
		Locked:   a.Task.Locked,
		Phase:    a.Path.Phase().String(),
		BornTick: a.BornTick,
	}
	switch {
	case a.Path.Pending != nil:
		g := a.Path.Pending.Goal
		v.Goal = &g
	case a.Path.Goal != nil:
		g := *a.Path.Goal
		v.Goal = &g
	}
	if p := a.Path.Plan; p != nil {
		v.Waypoints = p.Remaining()
		v.PathCost = p.TotalCost
		last := p.Waypoints[len(p.Waypoints)-1]
		v.Goal = &last
	}
	return v
}

// Status returns a summary of the current state.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.Stats
	st.Tasks = maps.Clone(st.Tasks)
	st.Phases = maps.Clone(st.Phases)
	st.AvgNeeds = maps.Clone(st.AvgNeeds)

	return Status{
		Tick:      s.LastTick,
		SessionID: s.SessionID,
		Seed:      s.Seed,
		GridW:     s.Grid.Width,
		GridH:     s.Grid.Height,
		Pending:   s.PendingCommands(),
		Stats:     st,
	}
}

// AgentViews returns copies of every agent, in spawn order.
func (s *Simulation) AgentViews() []AgentView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AgentView, 0, len(s.Agents))
	for _, a := range s.Agents {
		out = append(out, s.viewOf(a))
	}
	return out
}

// AgentView returns a copy of one agent.
func (s *Simulation) AgentView(id agents.AgentID) (AgentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.AgentIndex[id]
	if !ok {
		return AgentView{}, false
	}
	return s.viewOf(a), true
}

// RecentEvents returns up to limit of the newest events, newest first.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.Events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.Events[i])
	}
	return out
}

// Snapshot copies the state that survives a restart. Path state is left
// out; restored agents start Idle.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Tick:      s.LastTick,
		Seed:      s.Seed,
		SessionID: s.SessionID,
		Agents:    make([]agents.Agent, 0, len(s.Agents)),
		Events:    make([]Event, len(s.Events)),
	}
	for _, a := range s.Agents {
		cp := *a
		cp.Path = agents.PathState{}
		snap.Agents = append(snap.Agents, cp)
	}
	copy(snap.Events, s.Events)
	return snap
}
