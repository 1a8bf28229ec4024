package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/colony/internal/api"
	"github.com/talgya/colony/internal/engine"
	"github.com/talgya/colony/internal/pathing"
	"github.com/talgya/colony/internal/world"
)

// config is everything the process reads from the environment.
type config struct {
	LogLevel slog.Level

	Gen    world.GenConfig
	Search pathing.SearchConfig
	Sim    engine.Config
	API    api.Config

	Agents      int
	Workers     int
	Queue       int
	Interval    time.Duration
	SaveEvery   uint64
	ReportEvery uint64

	DBPath string
	PGDSN  string
}

func loadConfig() config {
	cfg := config{
		LogLevel: parseLevel(envOrDefault("COLONY_LOG_LEVEL", "info")),
		Gen:      world.DefaultGenConfig(),
		Search:   pathing.DefaultSearchConfig(),
		Sim:      engine.DefaultConfig(),
		API:      api.DefaultConfig(),
	}

	seed := int64(envIntOrDefault("COLONY_SEED", 42))
	cfg.Gen.Seed = seed
	cfg.Sim.Seed = seed
	cfg.Gen.Width = envIntOrDefault("COLONY_GRID_W", cfg.Gen.Width)
	cfg.Gen.Height = envIntOrDefault("COLONY_GRID_H", cfg.Gen.Height)
	cfg.Search.HeuristicDivisor = envIntOrDefault("COLONY_HEURISTIC_DIVISOR", cfg.Search.HeuristicDivisor)

	cfg.Agents = envIntOrDefault("COLONY_AGENTS", 200)
	cfg.Workers = envIntOrDefault("COLONY_WORKERS", 4)
	cfg.Queue = cfg.Sim.Planner.MaxSubmitsPerTick
	if cfg.Queue <= 0 {
		cfg.Queue = 256
	}
	cfg.Interval = time.Duration(envIntOrDefault("COLONY_TICK_MS", int(engine.DefaultInterval/time.Millisecond))) * time.Millisecond
	cfg.SaveEvery = uint64(max(0, envIntOrDefault("COLONY_SAVE_EVERY", 600)))
	cfg.ReportEvery = uint64(max(0, envIntOrDefault("COLONY_REPORT_EVERY", 100)))

	cfg.DBPath = envOrDefault("COLONY_DB_PATH", "data/colony.db")
	cfg.PGDSN = os.Getenv("COLONY_PG_DSN")
	cfg.API.Addr = envOrDefault("COLONY_API_ADDR", cfg.API.Addr)
	cfg.API.AdminKey = os.Getenv("COLONY_ADMIN_KEY")
	return cfg
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
