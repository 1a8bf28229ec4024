package persistence

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/engine"
	"github.com/talgya/colony/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "colony.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot(tick uint64) engine.Snapshot {
	sp := agents.NewSpawner(9)
	a := sp.Spawn(world.Vec2{X: 12.5, Y: -40}, 3)
	b := sp.Spawn(world.Vec2{X: -1, Y: 2}, 4)
	b.Needs.Hunger.Value = 17
	b.Task = agents.TaskState{Current: agents.TaskEat, Locked: true}

	return engine.Snapshot{
		Tick:      tick,
		Seed:      77,
		SessionID: uuid.New(),
		Agents:    []agents.Agent{*a, *b},
		Events: []engine.Event{
			{Tick: 2, Description: "first", Category: "spawn", Meta: map[string]any{"agent_id": 1}},
			{Tick: 5, Description: "second", Category: "task"},
		},
	}
}

func TestLoadWithoutStateFails(t *testing.T) {
	db := openTestDB(t)

	assert.False(t, db.HasWorldState())
	_, err := db.LoadWorldState()
	assert.ErrorIs(t, err, ErrNoWorldState)
}

func TestSaveAndLoadWorldState(t *testing.T) {
	db := openTestDB(t)
	snap := testSnapshot(5)

	require.NoError(t, db.SaveWorldState(snap))
	assert.True(t, db.HasWorldState())

	ws, err := db.LoadWorldState()
	require.NoError(t, err)

	assert.Equal(t, uint64(5), ws.Tick)
	assert.Equal(t, int64(77), ws.Seed)
	assert.Equal(t, snap.SessionID.String(), ws.SessionID)

	require.Len(t, ws.Agents, 2)
	for i, got := range ws.Agents {
		want := snap.Agents[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Position, got.Position)
		assert.Equal(t, want.Needs, got.Needs)
		assert.Equal(t, want.Task, got.Task)
		assert.Equal(t, want.BornTick, got.BornTick)
		assert.Equal(t, agents.PhaseIdle, got.Path.Phase())
		assert.NoError(t, got.Validate())
	}

	require.Len(t, ws.Events, 2)
	assert.Equal(t, "first", ws.Events[0].Description)
	assert.Equal(t, "second", ws.Events[1].Description)
	assert.EqualValues(t, 1, ws.Events[0].Meta["agent_id"])
}

func TestSaveAppendsOnlyNewEvents(t *testing.T) {
	db := openTestDB(t)
	snap := testSnapshot(5)
	require.NoError(t, db.SaveWorldState(snap))

	snap.Tick = 9
	snap.Events = append(snap.Events, engine.Event{Tick: 8, Description: "third", Category: "despawn"})
	require.NoError(t, db.SaveWorldState(snap))

	events, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Description, "newest first")
}

func TestSaveAgentsReplaces(t *testing.T) {
	db := openTestDB(t)
	snap := testSnapshot(1)
	require.NoError(t, db.SaveAgents(snap.Agents))
	require.NoError(t, db.SaveAgents(snap.Agents[:1]))

	loaded, err := db.LoadAgents()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

func TestDecodeAgentRejectsUnknownTask(t *testing.T) {
	_, err := DecodeAgent(1, "x", 0, 0, "{}", "Dance", false, 0)
	assert.Error(t, err)
}

func TestEventsAfter(t *testing.T) {
	events := []engine.Event{{Tick: 1}, {Tick: 3}, {Tick: 3}, {Tick: 6}}

	assert.Len(t, EventsAfter(events, 0), 4)
	assert.Len(t, EventsAfter(events, 3), 1)
	assert.Nil(t, EventsAfter(events, 6))
}
