package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/colony/internal/world"
)

func TestSpawnInitialState(t *testing.T) {
	g := world.NewGrid(16, 16, 32)
	g.Fill(1)

	s := NewSpawner(42)
	pop := s.SpawnPopulation(10, g, 7)
	require.Len(t, pop, 10)

	for i, a := range pop {
		assert.Equal(t, AgentID(i+1), a.ID)
		assert.NotEmpty(t, a.Name)
		assert.Equal(t, TaskState{Current: TaskWander}, a.Task)
		assert.Equal(t, PhaseIdle, a.Path.Phase())
		assert.Equal(t, uint64(7), a.BornTick)
		assert.Equal(t, MaxNeedValue, a.Needs.Hunger.Value)
		assert.Equal(t, MaxNeedValue, a.Needs.Thirst.Value)
		assert.Equal(t, MaxNeedValue, a.Needs.Fatigue.Value)
		assert.True(t, g.InBounds(g.WorldToCell(a.Position)), "agent %d spawned off-grid", a.ID)
		assert.NoError(t, a.Validate())
	}
	assert.Equal(t, AgentID(11), s.NextID())
}

func TestSpawnPrefersWeightedCells(t *testing.T) {
	g := world.NewGrid(8, 8, 32)
	for x := 0; x < 8; x++ {
		g.Set(world.Cell{X: x, Y: 5}, 1)
	}

	s := NewSpawner(1)
	hits := 0
	for i := 0; i < 50; i++ {
		if g.WorldToCell(s.RandomPosition(g)).Y == 5 {
			hits++
		}
	}
	// One row in eight is weighted; the attempt budget almost always finds it.
	assert.Greater(t, hits, 40)
}

func TestSetNextID(t *testing.T) {
	s := NewSpawner(1)
	s.SetNextID(100)
	a := s.Spawn(world.Vec2{}, 0)
	assert.Equal(t, AgentID(100), a.ID)
}

func TestPathPhase(t *testing.T) {
	var p PathState
	assert.Equal(t, PhaseIdle, p.Phase())

	goal := world.Cell{X: 1, Y: 1}
	p.Goal = &goal
	assert.Equal(t, PhaseGoalSet, p.Phase())

	p.Pending = &SearchTicket{Goal: goal}
	assert.Equal(t, PhaseSearching, p.Phase())

	p.Pending, p.Goal = nil, nil
	p.Plan = &PathPlan{Waypoints: []world.Cell{goal}}
	assert.Equal(t, PhasePlanned, p.Phase())

	p.Reset()
	assert.Equal(t, PhaseIdle, p.Phase())

	p.Goal = &goal
	p.Pending = &SearchTicket{Goal: goal}
	p.Reset()
	assert.Nil(t, p.Goal)
	assert.Equal(t, PhaseSearching, p.Phase(), "reset keeps the outstanding ticket")
}
