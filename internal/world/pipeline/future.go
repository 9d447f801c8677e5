package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/mesh"
)

type waiter interface {
	Done() <-chan struct{}
	Wait() (*mesh.TerrainData, error)
}

const (
	taskQueued int32 = iota
	taskRunning
	taskCancelled
)

// Future is the pending result of one chunk request.
type Future struct {
	ID       string
	Coord    world.ChunkCoord
	Settings config.Settings

	w     waiter
	state atomic.Int32
}

func newFuture(coord world.ChunkCoord, settings config.Settings, w waiter) *Future {
	return &Future{ID: uuid.NewString(), Coord: coord, Settings: settings, w: w}
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.w.Done() }

// Ready reports whether the result is available without blocking.
func (f *Future) Ready() bool {
	select {
	case <-f.w.Done():
		return true
	default:
		return false
	}
}

// Result blocks until the request finishes and returns its payload.
func (f *Future) Result() (*mesh.TerrainData, error) { return f.w.Wait() }

// Begin marks the request as picked up by a worker. It returns false if the
// request was cancelled while queued, in which case the work must be skipped.
func (f *Future) Begin() bool {
	return f.state.CompareAndSwap(taskQueued, taskRunning) || f.state.Load() == taskRunning
}

// Started reports whether a worker has begun the request.
func (f *Future) Started() bool { return f.state.Load() == taskRunning }

// Cancel abandons a request that has not started yet. It has no effect once
// a worker has begun it.
func (f *Future) Cancel() { f.state.CompareAndSwap(taskQueued, taskCancelled) }

// Cancelled reports whether the request was abandoned before it started.
func (f *Future) Cancelled() bool { return f.state.Load() == taskCancelled }

// promise is a waiter resolved by hand.
type promise struct {
	once sync.Once
	done chan struct{}
	data *mesh.TerrainData
	err  error
}

func (p *promise) Done() <-chan struct{} { return p.done }

func (p *promise) Wait() (*mesh.TerrainData, error) {
	<-p.done
	return p.data, p.err
}

func (p *promise) resolve(data *mesh.TerrainData, err error) {
	p.once.Do(func() {
		p.data, p.err = data, err
		close(p.done)
	})
}

// NewPromise returns an unresolved Future and the function that resolves it.
// Only the first call to resolve has an effect. It lets other producers hand
// out Futures with the same contract as the pipeline; they call Begin when
// work on the request starts.
func NewPromise(coord world.ChunkCoord, settings config.Settings) (*Future, func(*mesh.TerrainData, error)) {
	p := &promise{done: make(chan struct{})}
	return newFuture(coord, settings, p), p.resolve
}

func resolved(coord world.ChunkCoord, settings config.Settings, data *mesh.TerrainData, err error) *Future {
	f, resolve := NewPromise(coord, settings)
	resolve(data, err)
	return f
}
