// Task execution for busy tasks. Eating, drinking and sleeping refill the
// matching need; the lock is released once the need is full again.
package agents

import "math/rand"

// CompletionThreshold is the need value at which a busy task finishes.
const CompletionThreshold float32 = MaxNeedValue

// RefillRange bounds the random per-second refill rate of a busy task.
type RefillRange struct {
	Min float32
	Max float32
}

// DefaultRefill holds the stock refill rates, indexed by need.
var DefaultRefill = [NumNeeds]RefillRange{
	NeedHunger:  {Min: 10, Max: 50},
	NeedThirst:  {Min: 10, Max: 50},
	NeedFatigue: {Min: 2, Max: 16},
}

// Executor advances busy tasks. It owns its random source and must only be
// used from the tick loop.
type Executor struct {
	rng    *rand.Rand
	Refill [NumNeeds]RefillRange

	// OnComplete, if set, is called when an agent's busy task finishes.
	OnComplete func(a *Agent, task TaskKind)
}

// NewExecutor creates an executor with the default refill rates.
func NewExecutor(seed int64) *Executor {
	return &Executor{
		rng:    rand.New(rand.NewSource(seed + 500)),
		Refill: DefaultRefill,
	}
}

// Run advances every busy agent by elapsed seconds.
func (e *Executor) Run(agents []*Agent, elapsed float32) {
	for _, a := range agents {
		if e.Step(a, elapsed) && e.OnComplete != nil {
			e.OnComplete(a, a.Task.Current)
		}
	}
}

// Step advances one agent's busy task. The refill also covers the need's own
// drain so progress is independent of decay. It returns true when the task
// completes and the lock is released.
func (e *Executor) Step(a *Agent, elapsed float32) bool {
	if !a.Task.Locked || elapsed <= 0 {
		return false
	}

	kind, ok := a.Task.Current.Need()
	if !ok {
		// A locked Wander breaks the busy invariant; release it.
		a.Task.Locked = false
		return false
	}

	need := a.Needs.Get(kind)
	r := e.Refill[kind]
	rate := r.Min + e.rng.Float32()*(r.Max-r.Min)
	need.Replenish((rate + need.DrainRate) * elapsed)

	if need.Value >= CompletionThreshold {
		a.Task.Locked = false
		return true
	}
	return false
}
