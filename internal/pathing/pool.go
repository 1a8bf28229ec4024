package pathing

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/colony/internal/world"
)

var (
	// ErrPoolSaturated is returned by Submit when the job queue is full.
	ErrPoolSaturated = errors.New("search pool saturated")
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("search pool closed")
)

// Request is the input of one search job.
type Request struct {
	Origin world.Cell
	Goal   world.Cell
}

// Result is the output of one search job. Err is ErrNoPath (possibly
// wrapped) when no route exists, or a context error if the pool closed
// mid-search.
type Result struct {
	JobID   uuid.UUID
	Origin  world.Cell
	Goal    world.Cell
	Path    Path
	Err     error
	Elapsed time.Duration
}

// Handle tracks one submitted job. The result is delivered exactly once.
type Handle struct {
	ID     uuid.UUID
	Origin world.Cell
	Goal   world.Cell

	grid CostGrid // captured at submit
	done chan Result
}

func newHandle(req Request, grid CostGrid) *Handle {
	return &Handle{
		ID:     uuid.New(),
		Origin: req.Origin,
		Goal:   req.Goal,
		grid:   grid,
		done:   make(chan Result, 1),
	}
}

// Poll returns the result if the job has finished. It never blocks.
func (h *Handle) Poll() (Result, bool) {
	select {
	case r := <-h.done:
		return r, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the job finishes or ctx is done. The tick loop must use
// Poll instead.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-h.done:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Pool runs searches on a fixed number of worker goroutines.
type Pool struct {
	grid CostGrid
	cfg  SearchConfig

	jobs   chan *Handle
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	closed   atomic.Bool
	inFlight atomic.Int64
}

// NewPool starts workers goroutines that search on grid. The grid must not
// be mutated while the pool is running. queue bounds how many submitted jobs
// may wait for a worker.
func NewPool(grid CostGrid, cfg SearchConfig, workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 1 {
		queue = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	p := &Pool{
		grid:   grid,
		cfg:    cfg,
		jobs:   make(chan *Handle, queue),
		ctx:    ctx,
		cancel: cancel,
		group:  g,
	}
	for i := 0; i < workers; i++ {
		g.Go(p.work)
	}

	slog.Debug("search pool started", "workers", workers, "queue", queue)
	return p
}

// Submit queues a search without blocking.
func (p *Pool) Submit(req Request) (*Handle, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	h := newHandle(req, p.grid)
	// Counted before the send so a fast worker cannot decrement first.
	p.inFlight.Add(1)
	select {
	case p.jobs <- h:
		return h, nil
	default:
		p.inFlight.Add(-1)
		return nil, ErrPoolSaturated
	}
}

// InFlight returns the number of submitted jobs that have not finished.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Close stops the workers, aborting searches in progress, and waits for them
// to exit. Queued jobs that never started are dropped.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.cancel()
	err := p.group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (p *Pool) work() error {
	for {
		select {
		case <-p.ctx.Done():
			return nil
		case h := <-p.jobs:
			p.run(h)
		}
	}
}

func (p *Pool) run(h *Handle) {
	start := time.Now()
	path, err := FindPath(p.ctx, h.grid, h.Origin, h.Goal, p.cfg)
	defer p.inFlight.Add(-1)

	// done is buffered for exactly one result, so this never blocks even if
	// the owner has stopped polling.
	h.done <- Result{
		JobID:   h.ID,
		Origin:  h.Origin,
		Goal:    h.Goal,
		Path:    path,
		Err:     err,
		Elapsed: time.Since(start),
	}
}
