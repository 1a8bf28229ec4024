// Task arbitration: utility scoring over needs with a busy lock.
// Every tick, each unlocked agent scores its candidate tasks and takes the best.
package agents

import (
	"cmp"
	"fmt"
	"slices"
)

// TaskKind enumerates what an agent can be doing.
type TaskKind uint8

const (
	TaskWander TaskKind = iota // Default; fixed utility
	TaskDrink
	TaskEat
	TaskSleep
)

// NumTasks is the total number of task kinds.
const NumTasks = 4

// WanderUtility is the fixed score of the fallback task. Every need-driven
// task scores at least its need's urgency score (>= 9 by default) when urgent.
const WanderUtility float32 = 1.0

func (k TaskKind) String() string {
	switch k {
	case TaskWander:
		return "Wander"
	case TaskDrink:
		return "Drink"
	case TaskEat:
		return "Eat"
	case TaskSleep:
		return "Sleep"
	default:
		return "Unknown"
	}
}

// ParseTaskKind converts a task name back to its kind.
func ParseTaskKind(s string) (TaskKind, error) {
	for k := TaskKind(0); k < NumTasks; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown task %q", s)
}

// Need returns the need a task satisfies. Wander satisfies none.
func (k TaskKind) Need() (NeedKind, bool) {
	switch k {
	case TaskEat:
		return NeedHunger, true
	case TaskDrink:
		return NeedThirst, true
	case TaskSleep:
		return NeedFatigue, true
	default:
		return 0, false
	}
}

// TaskState is an agent's current task and busy lock.
// Locked implies Current != TaskWander.
type TaskState struct {
	Current TaskKind `json:"current"`
	Locked  bool     `json:"locked"`
}

// Busy reports whether arbitration must skip the agent.
func (t TaskState) Busy() bool {
	return t.Locked
}

// Candidate is one scored option for arbitration.
type Candidate struct {
	Task  TaskKind
	Score float32
}

// Candidates returns the scored options in tie-break order: Wander, Eat,
// Drink, Sleep. Earlier entries win ties.
func Candidates(n *NeedsState) [NumTasks]Candidate {
	return [NumTasks]Candidate{
		{Task: TaskWander, Score: WanderUtility},
		{Task: TaskEat, Score: n.Hunger.Score()},
		{Task: TaskDrink, Score: n.Thirst.Score()},
		{Task: TaskSleep, Score: n.Fatigue.Score()},
	}
}

// Select returns the highest-scoring candidate. The sort is stable, so equal
// scores keep list order.
func Select(candidates [NumTasks]Candidate) TaskKind {
	ranked := candidates[:]
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked[0].Task
}

// Arbitrate re-evaluates an unlocked agent's task. Selecting Wander clears the
// lock; selecting anything else sets it. Locked agents are left untouched.
// It returns the agent's task and whether the agent just became busy.
func Arbitrate(a *Agent) (TaskKind, bool) {
	if a.Task.Busy() {
		return a.Task.Current, false
	}

	selected := Select(Candidates(&a.Needs))
	a.Task.Current = selected

	switch selected {
	case TaskWander:
		a.Task.Locked = false
		return selected, false
	case TaskDrink, TaskEat, TaskSleep:
		a.Task.Locked = true
		return selected, true
	default:
		panic(fmt.Sprintf("agents: unhandled task %d", selected))
	}
}

// Arbiter runs arbitration over a population once per tick.
type Arbiter struct {
	// OnLock, if set, is called when an agent enters a busy task. It is
	// purely observational.
	OnLock func(a *Agent, task TaskKind)
}

// Run arbitrates every unlocked agent.
func (ar *Arbiter) Run(agents []*Agent) {
	for _, a := range agents {
		if a.Task.Busy() {
			continue
		}
		task, locked := Arbitrate(a)
		if locked && ar.OnLock != nil {
			ar.OnLock(a, task)
		}
	}
}
