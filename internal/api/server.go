// Package api provides the HTTP API for observing the colony.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/engine"
	"github.com/talgya/colony/internal/persistence"
	"github.com/talgya/colony/internal/world"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
	maxSpeed          = 1000
)

// Config configures the HTTP server.
type Config struct {
	Addr       string
	AdminKey   string        // Bearer token for POST endpoints. Empty = POST disabled.
	AdminRate  int           // Admin requests per RateWindow per IP
	RateWindow time.Duration // Admin rate window
}

// DefaultConfig returns the stock server settings.
func DefaultConfig() Config {
	return Config{
		Addr:       ":8080",
		AdminRate:  60,
		RateWindow: time.Minute,
	}
}

// Server serves the colony state over HTTP.
type Server struct {
	Sim   *engine.Simulation
	Eng   *engine.Engine
	Store persistence.Store // optional; serves event history beyond memory

	cfg Config
	h   *server.Hertz
}

// NewServer builds the server and registers its routes. Call Start to
// serve.
func NewServer(sim *engine.Simulation, eng *engine.Engine, store persistence.Store, cfg Config) *Server {
	s := &Server{
		Sim:   sim,
		Eng:   eng,
		Store: store,
		cfg:   cfg,
		h:     server.Default(server.WithHostPorts(cfg.Addr)),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.h.Group("/api/v1")

	// Public endpoints (GET, read-only).
	v1.GET("/status", s.handleStatus)
	v1.GET("/agents", s.handleAgents)
	v1.GET("/agent/:id", s.handleAgent)
	v1.GET("/events", s.handleEvents)
	v1.GET("/grid", s.handleGrid)

	// Admin endpoints (POST, bearer token).
	limiter := NewRateLimiter(s.cfg.AdminRate, s.cfg.RateWindow)
	admin := v1.Group("", RateLimitMiddleware(limiter), s.adminOnly())
	admin.POST("/speed", s.handleSpeed)
	admin.POST("/spawn", s.handleSpawn)
	admin.POST("/despawn/:id", s.handleDespawn)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("api server listening", "addr", s.cfg.Addr)
		if err := s.h.Run(); err != nil {
			slog.Error("api server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.h.Shutdown(ctx)
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if s.cfg.AdminKey == "" {
			writeErrorBody(ctx, consts.StatusForbidden, "admin_disabled", "admin endpoints disabled (no COLONY_ADMIN_KEY set)")
			ctx.Abort()
			return
		}
		auth := string(ctx.GetHeader("Authorization"))
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.AdminKey {
			writeErrorBody(ctx, consts.StatusUnauthorized, "unauthorized", "unauthorized")
			ctx.Abort()
			return
		}
		ctx.Next(c)
	}
}

func (s *Server) handleStatus(c context.Context, ctx *app.RequestContext) {
	st := s.Sim.Status()
	ctx.JSON(consts.StatusOK, map[string]any{
		"tick":             st.Tick,
		"sim_time":         engine.SimTime(st.Tick, s.Eng.Interval).String(),
		"speed":            s.Eng.Speed(),
		"running":          s.Eng.Running(),
		"session_id":       st.SessionID,
		"seed":             st.Seed,
		"grid":             map[string]int{"width": st.GridW, "height": st.GridH},
		"pending_commands": st.Pending,
		"stats":            st.Stats,
	})
}

func (s *Server) handleAgents(c context.Context, ctx *app.RequestContext) {
	views := s.Sim.AgentViews()

	// Optional filters.
	task := ctx.Query("task")
	phase := ctx.Query("phase")
	if task != "" || phase != "" {
		filtered := views[:0]
		for _, v := range views {
			if (task == "" || strings.EqualFold(v.Task, task)) && (phase == "" || strings.EqualFold(v.Phase, phase)) {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	ctx.JSON(consts.StatusOK, views)
}

func (s *Server) handleAgent(c context.Context, ctx *app.RequestContext) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_agent_id", "invalid agent id")
		return
	}
	v, ok := s.Sim.AgentView(agents.AgentID(id))
	if !ok {
		writeErrorBody(ctx, consts.StatusNotFound, "agent_not_found", "agent not found")
		return
	}
	ctx.JSON(consts.StatusOK, v)
}

func (s *Server) handleEvents(c context.Context, ctx *app.RequestContext) {
	limit := defaultEventLimit
	if l := ctx.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxEventLimit {
			limit = n
		}
	}

	var events []engine.Event
	if ctx.Query("source") == "db" && s.Store != nil {
		var err error
		events, err = s.Store.RecentEvents(limit)
		if err != nil {
			slog.Warn("event history query failed", "error", err)
			writeErrorBody(ctx, consts.StatusInternalServerError, "store_error", "event history unavailable")
			return
		}
	} else {
		events = s.Sim.RecentEvents(limit)
	}

	if category := ctx.Query("category"); category != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	ctx.JSON(consts.StatusOK, events)
}

func (s *Server) handleGrid(c context.Context, ctx *app.RequestContext) {
	g := s.Sim.Grid
	resp := map[string]any{
		"width":          g.Width,
		"height":         g.Height,
		"cell_size":      g.CellSize,
		"weighted_cells": g.WeightedCount(),
		"default_weight": world.DefaultWeight,
	}

	xs, ys := ctx.Query("x"), ctx.Query("y")
	if xs != "" || ys != "" {
		x, errX := strconv.Atoi(xs)
		y, errY := strconv.Atoi(ys)
		if errX != nil || errY != nil {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_cell", "x and y must be integers")
			return
		}
		cell := world.Cell{X: x, Y: y}
		resp["cell"] = map[string]any{
			"x":        x,
			"y":        y,
			"in_grid":  g.InBounds(cell),
			"cost":     g.Cost(cell),
			"terrain":  world.TerrainName(g.TerrainAt(cell)),
			"world_xy": g.CellToWorld(cell),
		}
	}

	ctx.JSON(consts.StatusOK, resp)
}

func (s *Server) handleSpeed(c context.Context, ctx *app.RequestContext) {
	var req struct {
		Speed *float64 `json:"speed"`
	}
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil || req.Speed == nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "body must be {\"speed\": number}")
		return
	}
	if *req.Speed < 0 || *req.Speed > maxSpeed {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_speed", "speed must be 0-1000")
		return
	}
	s.Eng.SetSpeed(*req.Speed)
	slog.Info("speed changed", "speed", *req.Speed)

	ctx.JSON(consts.StatusOK, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSpawn(c context.Context, ctx *app.RequestContext) {
	var req struct {
		X *float32 `json:"x"`
		Y *float32 `json:"y"`
	}
	if body := ctx.Request.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
			return
		}
	}
	if (req.X == nil) != (req.Y == nil) {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_position", "give both x and y or neither")
		return
	}

	cmd := engine.Command{Kind: engine.CommandSpawn}
	if req.X != nil {
		pos := world.Vec2{X: *req.X, Y: *req.Y}
		if !s.Sim.Grid.ContainsWorld(pos) {
			ext := s.Sim.Grid.Extent()
			writeErrorBody(ctx, consts.StatusBadRequest, "position_off_grid",
				fmt.Sprintf("position must lie within +/-%g x +/-%g", ext.X/2, ext.Y/2))
			return
		}
		cmd.Position = &pos
	}
	s.enqueue(ctx, cmd)
}

func (s *Server) handleDespawn(c context.Context, ctx *app.RequestContext) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_agent_id", "invalid agent id")
		return
	}
	if _, ok := s.Sim.AgentView(agents.AgentID(id)); !ok {
		writeErrorBody(ctx, consts.StatusNotFound, "agent_not_found", "agent not found")
		return
	}
	s.enqueue(ctx, engine.Command{Kind: engine.CommandDespawn, AgentID: agents.AgentID(id)})
}

func (s *Server) enqueue(ctx *app.RequestContext, cmd engine.Command) {
	if err := s.Sim.Enqueue(cmd); err != nil {
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "queue_full", err.Error())
		return
	}
	slog.Info("admin command queued", "command", cmd.Kind, "agent", cmd.AgentID)
	ctx.JSON(consts.StatusAccepted, map[string]any{
		"queued":   cmd.Kind.String(),
		"pending":  s.Sim.PendingCommands(),
		"at_tick":  s.Sim.CurrentTick() + 1,
		"agent_id": cmd.AgentID,
	})
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
