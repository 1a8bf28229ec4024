// Package engine provides the fixed-step simulation loop and the Simulation
// aggregate it drives.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultInterval is the wall-clock length of one tick at speed 1.
	DefaultInterval = 100 * time.Millisecond

	// pausePoll is how often a paused engine checks whether to resume.
	pausePoll = 100 * time.Millisecond
)

// Engine drives the simulation forward in fixed steps. Every tick advances
// simulated time by Interval, whatever the speed; speed only changes how
// fast ticks are produced in wall-clock time.
type Engine struct {
	Interval time.Duration // Base tick interval

	// Report and save cadence in ticks. 0 disables.
	ReportEvery uint64
	SaveEvery   uint64

	// Callbacks, populated during setup.
	OnTick   func(tick uint64, dt float32) // Every tick
	OnReport func(tick uint64)             // Every ReportEvery ticks
	OnSave   func(tick uint64)             // Every SaveEvery ticks

	tick    atomic.Uint64
	speed   atomic.Uint64 // float64 bits
	running atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	e := &Engine{
		Interval: DefaultInterval,
		stop:     make(chan struct{}),
	}
	e.SetSpeed(1)
	return e
}

// Tick returns the last completed tick.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// SetTick sets the tick counter, used when restoring a saved world.
func (e *Engine) SetTick(t uint64) { e.tick.Store(t) }

// Speed returns the current speed multiplier. 0 means paused.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed sets the speed multiplier. Negative and NaN values pause.
func (e *Engine) SetSpeed(v float64) {
	if !(v > 0) {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// Running reports whether Run is executing.
func (e *Engine) Running() bool { return e.running.Load() }

// Dt returns the simulated seconds covered by one tick.
func (e *Engine) Dt() float32 { return float32(e.Interval.Seconds()) }

// Run drives the loop until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "interval", e.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Tick(), "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("simulation engine stopped", "tick", e.Tick())
			return
		case <-timer.C:
		}

		speed := e.Speed()
		if speed <= 0 {
			timer.Reset(pausePoll)
			continue
		}

		start := time.Now()
		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		wait := time.Duration(float64(e.Interval)/speed) - time.Since(start)
		timer.Reset(max(wait, 0))
	}
}

// Stop halts the loop. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Step advances the simulation by one tick and fires the due callbacks.
func (e *Engine) Step() {
	t := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(t, e.Dt())
	}
	if e.ReportEvery > 0 && t%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(t)
	}
	if e.SaveEvery > 0 && t%e.SaveEvery == 0 && e.OnSave != nil {
		e.OnSave(t)
	}
}

// SimTime returns the simulated time elapsed after tick ticks of interval.
func SimTime(tick uint64, interval time.Duration) time.Duration {
	return time.Duration(tick) * interval
}
