// Package agents provides the agent record, the decaying needs model, task
// arbitration, and the task-execution systems that refill needs.
package agents

import (
	"golang.org/x/exp/constraints"
)

// MaxNeedValue is the ceiling of every need. Agents spawn with full needs.
const MaxNeedValue float32 = 100

// NeedKind enumerates the decaying needs.
type NeedKind uint8

const (
	NeedHunger NeedKind = iota
	NeedThirst
	NeedFatigue
)

// NumNeeds is the total number of need kinds.
const NumNeeds = 3

func (k NeedKind) String() string {
	switch k {
	case NeedHunger:
		return "hunger"
	case NeedThirst:
		return "thirst"
	case NeedFatigue:
		return "fatigue"
	default:
		return "unknown"
	}
}

// Need is a decaying scalar in [0, MaxNeedValue].
// It contributes UrgencyScore to task arbitration while Value is below
// UrgencyThreshold, and nothing otherwise.
type Need struct {
	Value            float32 `json:"value"`
	DrainRate        float32 `json:"drain_rate"`        // per second, >= 0
	UrgencyThreshold float32 `json:"urgency_threshold"` // score applies strictly below this
	UrgencyScore     float32 `json:"urgency_score"`
}

// Decay drains the need by DrainRate × elapsed seconds, floored at 0.
// Non-positive elapsed time leaves the need untouched.
func (n *Need) Decay(elapsed float32) {
	if elapsed <= 0 {
		return
	}
	n.Value = clamp(n.Value-n.DrainRate*elapsed, 0, MaxNeedValue)
}

// Replenish raises the need by amount, capped at MaxNeedValue.
func (n *Need) Replenish(amount float32) {
	n.Value = clamp(n.Value+amount, 0, MaxNeedValue)
}

// Score returns UrgencyScore when the need is below its threshold, else 0.
func (n Need) Score() float32 {
	if n.Value < n.UrgencyThreshold {
		return n.UrgencyScore
	}
	return 0
}

// NeedParams holds the fixed per-kind parameters of a need.
type NeedParams struct {
	DrainRate        float32
	UrgencyThreshold float32
	UrgencyScore     float32
}

// DefaultNeedParams are the stock tunings. Thirst drains fastest and is the
// most urgent once triggered; fatigue is the slowest and least urgent.
var DefaultNeedParams = [NumNeeds]NeedParams{
	NeedHunger:  {DrainRate: 2, UrgencyThreshold: 30, UrgencyScore: 10},
	NeedThirst:  {DrainRate: 4, UrgencyThreshold: 50, UrgencyScore: 11},
	NeedFatigue: {DrainRate: 1, UrgencyThreshold: 30, UrgencyScore: 9},
}

// NewNeed returns a full need with the given parameters.
func NewNeed(p NeedParams) Need {
	return Need{
		Value:            MaxNeedValue,
		DrainRate:        p.DrainRate,
		UrgencyThreshold: p.UrgencyThreshold,
		UrgencyScore:     p.UrgencyScore,
	}
}

// NeedsState holds one Need per kind.
type NeedsState struct {
	Hunger  Need `json:"hunger"`
	Thirst  Need `json:"thirst"`
	Fatigue Need `json:"fatigue"`
}

// NewNeedsState returns full needs built from params.
func NewNeedsState(params [NumNeeds]NeedParams) NeedsState {
	return NeedsState{
		Hunger:  NewNeed(params[NeedHunger]),
		Thirst:  NewNeed(params[NeedThirst]),
		Fatigue: NewNeed(params[NeedFatigue]),
	}
}

// Get returns the need of the given kind, or nil for an unknown kind.
func (s *NeedsState) Get(k NeedKind) *Need {
	switch k {
	case NeedHunger:
		return &s.Hunger
	case NeedThirst:
		return &s.Thirst
	case NeedFatigue:
		return &s.Fatigue
	default:
		return nil
	}
}

// Decay drains every need by elapsed seconds.
func (s *NeedsState) Decay(elapsed float32) {
	s.Hunger.Decay(elapsed)
	s.Thirst.Decay(elapsed)
	s.Fatigue.Decay(elapsed)
}

// DecayAll drains the needs of every agent. This is the first system of a tick.
func DecayAll(agents []*Agent, elapsed float32) {
	for _, a := range agents {
		a.Needs.Decay(elapsed)
	}
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
