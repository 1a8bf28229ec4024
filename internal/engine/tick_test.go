package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepFiresCallbacksOnCadence(t *testing.T) {
	e := NewEngine()
	e.Interval = 250 * time.Millisecond
	e.ReportEvery = 3
	e.SaveEvery = 5

	var ticks, reports, saves []uint64
	var dts []float32
	e.OnTick = func(tick uint64, dt float32) {
		ticks = append(ticks, tick)
		dts = append(dts, dt)
	}
	e.OnReport = func(tick uint64) { reports = append(reports, tick) }
	e.OnSave = func(tick uint64) { saves = append(saves, tick) }

	for i := 0; i < 10; i++ {
		e.Step()
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ticks)
	assert.Equal(t, []uint64{3, 6, 9}, reports)
	assert.Equal(t, []uint64{5, 10}, saves)
	for _, dt := range dts {
		assert.InDelta(t, 0.25, dt, 1e-6)
	}
	assert.Equal(t, uint64(10), e.Tick())
}

func TestSetSpeedClampsToPause(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, 1.0, e.Speed())

	e.SetSpeed(4)
	assert.Equal(t, 4.0, e.Speed())

	e.SetSpeed(-2)
	assert.Zero(t, e.Speed())

	e.SetSpeed(math.NaN())
	assert.Zero(t, e.Speed())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond

	ticked := make(chan struct{}, 1)
	e.OnTick = func(uint64, float32) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never ticked")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, e.Running())
	assert.Positive(t, e.Tick())
}

func TestPausedEngineDoesNotTick(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	e.SetSpeed(0)
	e.OnTick = func(uint64, float32) { t.Error("paused engine ticked") }

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	e.Stop()
	e.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	require.Zero(t, e.Tick())
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, 90*time.Second, SimTime(900, 100*time.Millisecond))
}
