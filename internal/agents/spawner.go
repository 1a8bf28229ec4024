// Agent spawning: creates agents with full needs, an unlocked Wander task,
// and no path.
package agents

import (
	"math/rand"

	"github.com/talgya/colony/internal/world"
)

// placementAttempts bounds the search for a weighted cell to spawn on.
const placementAttempts = 32

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID

	// Params are copied into every new agent's needs.
	Params [NumNeeds]NeedParams
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
		Params: DefaultNeedParams,
	}
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// NextID returns the ID the next spawned agent will receive.
func (s *Spawner) NextID() AgentID {
	return s.nextID
}

// SpawnPopulation creates count agents at random positions on the grid.
func (s *Spawner) SpawnPopulation(count int, g *world.Grid, tick uint64) []*Agent {
	agents := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		agents = append(agents, s.Spawn(s.RandomPosition(g), tick))
	}
	return agents
}

// Spawn creates one agent at pos.
func (s *Spawner) Spawn(pos world.Vec2, tick uint64) *Agent {
	id := s.nextID
	s.nextID++

	return &Agent{
		ID:       id,
		Name:     s.generateName(),
		Position: pos,
		Needs:    NewNeedsState(s.Params),
		Task:     TaskState{Current: TaskWander},
		BornTick: tick,
	}
}

// RandomPosition returns a uniformly random world position inside the grid,
// preferring cells with a registered weight.
func (s *Spawner) RandomPosition(g *world.Grid) world.Vec2 {
	var c world.Cell
	for i := 0; i < placementAttempts; i++ {
		c = world.Cell{X: s.rng.Intn(g.Width), Y: s.rng.Intn(g.Height)}
		if g.Weighted(c) {
			break
		}
	}
	// Jitter inside the cell.
	offset := world.Vec2{
		X: s.rng.Float32() * float32(g.CellSize),
		Y: s.rng.Float32() * float32(g.CellSize),
	}
	return g.CellToWorld(c).Add(offset)
}

func (s *Spawner) generateName() string {
	return names[s.rng.Intn(len(names))]
}

var names = []string{
	"Alice", "Charlie", "Dave", "Eve", "Frank", "Grace", "Hank", "Iris",
	"Judy", "Karl", "Linda", "Mike", "Nancy", "Oscar", "Peggy", "Quinn",
	"Ruth", "Steve", "Tina", "Ursula", "Victor", "Wendy", "Xavier",
	"Yvonne", "Zach",
}
