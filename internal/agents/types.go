package agents

import (
	"errors"

	"github.com/google/uuid"

	"github.com/talgya/colony/internal/world"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// Agent is the core entity: a named body in world space with needs, a task,
// and wander-path state.
type Agent struct {
	ID   AgentID `json:"id"`
	Name string  `json:"name"`

	// Location in continuous world coordinates.
	Position world.Vec2 `json:"position"`

	Needs NeedsState `json:"needs"`
	Task  TaskState  `json:"task"`

	// Path state is rebuilt after a restore; never persisted.
	Path PathState `json:"-"`

	BornTick uint64 `json:"born_tick"`
}

// PathPlan is an installed route. Cursor indexes the waypoint being walked
// toward and stays below len(Waypoints) while the plan exists.
type PathPlan struct {
	Waypoints []world.Cell `json:"waypoints"`
	TotalCost uint32       `json:"total_cost"`
	Cursor    int          `json:"cursor"`
}

// Target returns the waypoint the agent is heading for.
func (p *PathPlan) Target() world.Cell {
	return p.Waypoints[p.Cursor]
}

// Remaining returns how many waypoints are left, including the current one.
func (p *PathPlan) Remaining() int {
	return len(p.Waypoints) - p.Cursor
}

// SearchTicket records an in-flight path search issued for an agent.
type SearchTicket struct {
	JobID      uuid.UUID  `json:"job_id"`
	Origin     world.Cell `json:"origin"`
	Goal       world.Cell `json:"goal"`
	IssuedTick uint64     `json:"issued_tick"`
}

// PathState is the per-agent wander-path lifecycle. At most one of Goal
// (without a search), Pending, or Plan drives the agent at a time.
type PathState struct {
	Goal    *world.Cell   `json:"goal,omitempty"`
	Pending *SearchTicket `json:"pending,omitempty"`
	Plan    *PathPlan     `json:"plan,omitempty"`
}

// PathPhase names where an agent is in the wander-path lifecycle.
type PathPhase uint8

const (
	PhaseIdle      PathPhase = iota // No goal, no plan
	PhaseGoalSet                    // Goal chosen, no search issued
	PhaseSearching                  // Search outstanding
	PhasePlanned                    // Plan installed
)

func (p PathPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseGoalSet:
		return "GoalSet"
	case PhaseSearching:
		return "Searching"
	case PhasePlanned:
		return "Planned"
	default:
		return "Unknown"
	}
}

// Phase derives the lifecycle phase from which fields are set.
func (p *PathState) Phase() PathPhase {
	switch {
	case p.Pending != nil:
		return PhaseSearching
	case p.Plan != nil:
		return PhasePlanned
	case p.Goal != nil:
		return PhaseGoalSet
	default:
		return PhaseIdle
	}
}

// Reset drops the goal and the plan. An outstanding search ticket is kept
// so its result can be matched and discarded on arrival; until then no
// second search is issued.
func (p *PathState) Reset() {
	p.Goal = nil
	p.Plan = nil
}

var (
	errLockedWander   = errors.New("locked agent is wandering")
	errPlanAndSearch  = errors.New("agent has both a plan and a pending search")
	errCursorOverflow = errors.New("plan cursor past last waypoint")
	errNeedRange      = errors.New("need value out of range")
)

// Validate checks the agent's structural invariants.
func (a *Agent) Validate() error {
	if a.Task.Locked && a.Task.Current == TaskWander {
		return errLockedWander
	}
	if a.Path.Plan != nil && a.Path.Pending != nil {
		return errPlanAndSearch
	}
	if p := a.Path.Plan; p != nil && (p.Cursor < 0 || p.Cursor >= len(p.Waypoints)) {
		return errCursorOverflow
	}
	for k := NeedKind(0); k < NumNeeds; k++ {
		if v := a.Needs.Get(k).Value; v < 0 || v > MaxNeedValue {
			return errNeedRange
		}
	}
	return nil
}
