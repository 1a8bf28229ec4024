package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/world"
)

// ErrCommandQueueFull is returned by Enqueue when too many external
// mutations are waiting for the next tick.
var ErrCommandQueueFull = errors.New("command queue full")

// CommandKind identifies an external mutation.
type CommandKind uint8

const (
	CommandSpawn CommandKind = iota
	CommandDespawn
)

func (k CommandKind) String() string {
	switch k {
	case CommandSpawn:
		return "spawn"
	case CommandDespawn:
		return "despawn"
	default:
		return "unknown"
	}
}

// Command is an external mutation applied at the start of the next tick.
type Command struct {
	Kind     CommandKind
	AgentID  agents.AgentID // Despawn target
	Position *world.Vec2    // Spawn position; nil picks a random one
}

// Enqueue queues cmd for the next tick. It is safe to call from any
// goroutine.
func (s *Simulation) Enqueue(cmd Command) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.cfg.CommandQueue > 0 && len(s.commands) >= s.cfg.CommandQueue {
		return ErrCommandQueueFull
	}
	s.commands = append(s.commands, cmd)
	return nil
}

// PendingCommands returns how many commands wait for the next tick.
func (s *Simulation) PendingCommands() int {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return len(s.commands)
}

func (s *Simulation) applyCommands(tick uint64) {
	s.cmdMu.Lock()
	cmds := s.commands
	s.commands = nil
	s.cmdMu.Unlock()

	for _, cmd := range cmds {
		switch cmd.Kind {
		case CommandSpawn:
			pos := s.Spawner.RandomPosition(s.Grid)
			if cmd.Position != nil {
				pos = *cmd.Position
			}
			s.Spawn(pos, tick)
		case CommandDespawn:
			if !s.Despawn(cmd.AgentID, tick) {
				slog.Debug("despawn of unknown agent ignored", "agent", cmd.AgentID)
			}
		}
	}
}

// Spawn adds a new agent at pos, pulled onto the grid if it lies outside.
// Callers must hold the write lock or own the simulation exclusively.
func (s *Simulation) Spawn(pos world.Vec2, tick uint64) *agents.Agent {
	a := s.Spawner.Spawn(s.Grid.ClampWorld(pos), tick)
	s.Agents = append(s.Agents, a)
	s.AgentIndex[a.ID] = a
	s.Stats.Spawned++

	s.EmitEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s arrives in the colony", a.Name),
		Category:    "spawn",
		Meta:        map[string]any{"agent_id": a.ID},
	})
	slog.Info("agent spawned", "agent", a.ID, "name", a.Name, "x", a.Position.X, "y", a.Position.Y)
	return a
}

// Despawn removes an agent and releases any search issued for it. It
// returns false if the agent does not exist.
func (s *Simulation) Despawn(id agents.AgentID, tick uint64) bool {
	a, ok := s.AgentIndex[id]
	if !ok {
		return false
	}

	s.Planner.Forget(id)
	delete(s.AgentIndex, id)
	s.Agents = slices.DeleteFunc(s.Agents, func(x *agents.Agent) bool { return x.ID == id })
	s.Stats.Despawned++

	s.EmitEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s leaves the colony", a.Name),
		Category:    "despawn",
		Meta:        map[string]any{"agent_id": id},
	})
	slog.Info("agent despawned", "agent", id, "name", a.Name)
	return true
}
