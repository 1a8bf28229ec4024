// Command colonysim runs the colony simulation: needs-driven agents that
// wander a weighted grid along asynchronously planned paths.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/api"
	"github.com/talgya/colony/internal/engine"
	"github.com/talgya/colony/internal/pathing"
	"github.com/talgya/colony/internal/persistence"
	"github.com/talgya/colony/internal/persistence/pgstore"
	"github.com/talgya/colony/internal/world"
)

func main() {
	cfg := loadConfig()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("colony simulation starting", "seed", cfg.Sim.Seed)

	// ── Store ─────────────────────────────────────────────────────────
	store, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Restore ───────────────────────────────────────────────────────
	saved, err := store.LoadWorldState()
	switch {
	case errors.Is(err, persistence.ErrNoWorldState):
		saved = nil
		slog.Info("no saved state found, generating new colony")
	case err != nil:
		slog.Error("failed to load world state", "error", err)
		os.Exit(1)
	default:
		// The grid is rebuilt from the seed the colony was created with.
		if saved.Seed != 0 {
			cfg.Gen.Seed = saved.Seed
			cfg.Sim.Seed = saved.Seed
		}
	}

	// ── Grid (always regenerated, deterministic from seed) ───────────
	grid := world.Generate(cfg.Gen)
	for t, c := range world.TerrainCounts(grid) {
		slog.Info("terrain", "type", world.TerrainName(t), "count", c)
	}
	slog.Info("grid generated", "grid", grid.String())

	var population []*agents.Agent
	var startTick uint64
	if saved != nil {
		population = saved.Agents
		startTick = saved.Tick
	} else {
		population = agents.NewSpawner(cfg.Sim.Seed).SpawnPopulation(cfg.Agents, grid, 0)
	}

	// ── Pathing ───────────────────────────────────────────────────────
	pool := pathing.NewPool(grid, cfg.Search, cfg.Workers, cfg.Queue)
	defer pool.Close()

	sim := engine.NewSimulation(grid, pool, population, cfg.Sim)
	if saved != nil {
		sim.LastTick = startTick
		sim.Events = saved.Events
		if id, err := uuid.Parse(saved.SessionID); err == nil {
			sim.SessionID = id
		}
		slog.Info("world state restored",
			"agents", len(population),
			"events", len(saved.Events),
			"tick", startTick,
			"sim_time", engine.SimTime(startTick, cfg.Interval),
		)
	} else if err := store.SaveWorldState(sim.Snapshot()); err != nil {
		slog.Warn("initial save failed", "error", err)
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.Interval
	eng.SetTick(startTick)
	eng.ReportEvery = cfg.ReportEvery
	eng.SaveEvery = cfg.SaveEvery
	eng.OnTick = sim.Tick
	eng.OnReport = sim.Report
	eng.OnSave = func(tick uint64) {
		start := time.Now()
		if err := store.SaveWorldState(sim.Snapshot()); err != nil {
			slog.Error("autosave failed", "tick", tick, "error", err)
			return
		}
		slog.Info("world saved", "tick", tick, "took", time.Since(start))
	}

	// ── API Server ────────────────────────────────────────────────────
	apiServer := api.NewServer(sim, eng, store, cfg.API)
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nColony is alive: %d agents on a %dx%d grid.\n", len(population), grid.Width, grid.Height)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.API.Addr)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(startTick, cfg.Interval))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// Final save on shutdown.
	slog.Info("final save...")
	if err := store.SaveWorldState(sim.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api shutdown", "error", err)
	}

	fmt.Println("Simulation stopped. Colony state saved.")
}

// openStore picks PostgreSQL when a DSN is configured, SQLite otherwise.
func openStore(cfg config) (persistence.Store, error) {
	if cfg.PGDSN != "" {
		s, err := pgstore.Open(cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		slog.Info("postgres store opened")
		return s, nil
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.DBPath)
	return db, nil
}
