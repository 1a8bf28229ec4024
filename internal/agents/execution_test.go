package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutorRefillsUntilComplete(t *testing.T) {
	e := NewExecutor(1)
	a := newTestAgent()
	a.Needs.Hunger.Value = 10
	a.Task = TaskState{Current: TaskEat, Locked: true}

	var done []TaskKind
	e.OnComplete = func(_ *Agent, task TaskKind) { done = append(done, task) }

	ticks := 0
	for a.Task.Locked && ticks < 1000 {
		a.Needs.Decay(0.1)
		e.Run([]*Agent{a}, 0.1)
		assert.NoError(t, a.Validate())
		ticks++
	}

	assert.False(t, a.Task.Locked)
	assert.Equal(t, MaxNeedValue, a.Needs.Hunger.Value)
	assert.Equal(t, []TaskKind{TaskEat}, done)
	// A net refill of at least Min per second from 10 needs about 9s.
	assert.LessOrEqual(t, ticks, 100)
}

func TestExecutorIgnoresUnlockedAgents(t *testing.T) {
	e := NewExecutor(1)
	a := newTestAgent()
	a.Needs.Thirst.Value = 10
	a.Task = TaskState{Current: TaskDrink}

	assert.False(t, e.Step(a, 1))
	assert.Equal(t, float32(10), a.Needs.Thirst.Value)
}

func TestExecutorReleasesLockedWander(t *testing.T) {
	e := NewExecutor(1)
	a := newTestAgent()
	a.Task = TaskState{Current: TaskWander, Locked: true}

	e.Step(a, 1)
	assert.False(t, a.Task.Locked)
}

func TestExecutorOnlyTouchesMatchingNeed(t *testing.T) {
	e := NewExecutor(7)
	a := newTestAgent()
	a.Needs.Fatigue.Value = 5
	a.Needs.Hunger.Value = 50
	a.Task = TaskState{Current: TaskSleep, Locked: true}

	e.Step(a, 1)
	assert.Greater(t, a.Needs.Fatigue.Value, float32(5))
	assert.Equal(t, float32(50), a.Needs.Hunger.Value)
}
