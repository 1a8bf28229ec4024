package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent() *Agent {
	return &Agent{
		ID:    1,
		Name:  "Alice",
		Needs: NewNeedsState(DefaultNeedParams),
		Task:  TaskState{Current: TaskWander},
	}
}

func TestSelectPicksEat(t *testing.T) {
	got := Select([NumTasks]Candidate{
		{TaskWander, 1}, {TaskEat, 10}, {TaskDrink, 0}, {TaskSleep, 0},
	})
	assert.Equal(t, TaskEat, got)
}

func TestSelectFallsBackToWander(t *testing.T) {
	got := Select([NumTasks]Candidate{
		{TaskWander, 1}, {TaskEat, 0}, {TaskDrink, 0}, {TaskSleep, 0},
	})
	assert.Equal(t, TaskWander, got)
}

func TestSelectTiesKeepListOrder(t *testing.T) {
	got := Select([NumTasks]Candidate{
		{TaskWander, 1}, {TaskEat, 10}, {TaskDrink, 10}, {TaskSleep, 10},
	})
	assert.Equal(t, TaskEat, got)

	got = Select([NumTasks]Candidate{
		{TaskWander, 1}, {TaskEat, 0}, {TaskDrink, 9}, {TaskSleep, 9},
	})
	assert.Equal(t, TaskDrink, got)
}

func TestArbitrateLocksNeedTask(t *testing.T) {
	a := newTestAgent()
	a.Needs.Hunger.Value = 20

	task, locked := Arbitrate(a)
	assert.Equal(t, TaskEat, task)
	assert.True(t, locked)
	assert.Equal(t, TaskState{Current: TaskEat, Locked: true}, a.Task)
}

func TestArbitrateWanderUnlocks(t *testing.T) {
	a := newTestAgent()
	task, locked := Arbitrate(a)
	assert.Equal(t, TaskWander, task)
	assert.False(t, locked)
	assert.False(t, a.Task.Locked)
}

func TestArbitrateSkipsBusyAgents(t *testing.T) {
	a := newTestAgent()
	a.Task = TaskState{Current: TaskSleep, Locked: true}
	a.Needs.Thirst.Value = 1 // would outrank sleep if re-evaluated

	task, locked := Arbitrate(a)
	assert.Equal(t, TaskSleep, task)
	assert.False(t, locked)
	assert.Equal(t, TaskSleep, a.Task.Current)
}

func TestArbitrateThirstOutranksHunger(t *testing.T) {
	a := newTestAgent()
	a.Needs.Hunger.Value = 10
	a.Needs.Thirst.Value = 10

	task, _ := Arbitrate(a)
	assert.Equal(t, TaskDrink, task)
}

func TestArbitrationIsDeterministic(t *testing.T) {
	values := [][3]float32{{100, 100, 100}, {20, 80, 10}, {50, 40, 20}, {0, 0, 0}, {29, 49, 29}}
	for _, v := range values {
		a, b := newTestAgent(), newTestAgent()
		for _, ag := range []*Agent{a, b} {
			ag.Needs.Hunger.Value, ag.Needs.Thirst.Value, ag.Needs.Fatigue.Value = v[0], v[1], v[2]
		}
		ta, _ := Arbitrate(a)
		tb, _ := Arbitrate(b)
		assert.Equal(t, ta, tb, "needs %v", v)
	}
}

func TestArbiterRunReportsLocks(t *testing.T) {
	hungry := newTestAgent()
	hungry.Needs.Hunger.Value = 5
	content := newTestAgent()
	content.ID = 2
	busy := newTestAgent()
	busy.ID = 3
	busy.Task = TaskState{Current: TaskDrink, Locked: true}
	busy.Needs.Thirst.Value = 0

	var locked []AgentID
	ar := Arbiter{OnLock: func(a *Agent, task TaskKind) {
		assert.NotEqual(t, TaskWander, task)
		locked = append(locked, a.ID)
	}}
	ar.Run([]*Agent{hungry, content, busy})

	assert.Equal(t, []AgentID{1}, locked)
	for _, a := range []*Agent{hungry, content, busy} {
		require.NoError(t, a.Validate())
	}
}

func TestTaskKindRoundTrip(t *testing.T) {
	for k := TaskKind(0); k < NumTasks; k++ {
		got, err := ParseTaskKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseTaskKind("Dance")
	assert.Error(t, err)
}

func TestTaskNeedMapping(t *testing.T) {
	_, ok := TaskWander.Need()
	assert.False(t, ok)

	k, ok := TaskSleep.Need()
	assert.True(t, ok)
	assert.Equal(t, NeedFatigue, k)
}
