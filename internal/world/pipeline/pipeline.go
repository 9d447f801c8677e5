// Package pipeline runs terrain synthesis and meshing off the frame loop.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alitto/pond/v2"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/gen"
	"github.com/OCharnyshevich/terrainstream/internal/world/mesh"
)

var (
	// ErrClosed resolves futures requested after Close.
	ErrClosed = errors.New("pipeline closed")
	// ErrPanic wraps a panic raised while generating a chunk.
	ErrPanic = errors.New("chunk generation panicked")
	// ErrCancelled resolves futures cancelled before the worker reached them.
	ErrCancelled = errors.New("chunk request cancelled")
)

type buildFunc func(coord world.ChunkCoord, settings config.Settings, syn *gen.Synthesizer) (*mesh.TerrainData, error)

// Pipeline generates chunks on a single background worker, one request at a
// time in submission order. It does not deduplicate requests.
type Pipeline struct {
	log  *slog.Logger
	pool pond.ResultPool[*mesh.TerrainData]

	mu     sync.Mutex
	closed bool

	// Worker state, only touched from inside tasks.
	synMu sync.Mutex
	syn   *gen.Synthesizer
	build buildFunc

	generated atomic.Int64
	rebuilds  atomic.Int64
}

// New starts a pipeline with one long-lived worker.
func New(log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{
		log:  log,
		pool: pond.NewResultPool[*mesh.TerrainData](1),
	}
	p.build = buildChunk
	return p
}

// RequestChunk queues generation of coord with the given settings. A request
// cancelled while still queued resolves with ErrCancelled without being built.
func (p *Pipeline) RequestChunk(coord world.ChunkCoord, settings config.Settings) *Future {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return resolved(coord, settings, nil, ErrClosed)
	}
	f := newFuture(coord, settings, nil)
	f.w = p.pool.SubmitErr(func() (*mesh.TerrainData, error) {
		if !f.Begin() {
			return nil, ErrCancelled
		}
		return p.generate(coord, settings)
	})
	return f
}

// Close stops accepting requests and waits for queued ones to finish.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pool.StopAndWait()
}

// Generated returns the number of chunks built successfully.
func (p *Pipeline) Generated() int64 { return p.generated.Load() }

// Rebuilds returns how many times the synthesizer layers were seeded.
func (p *Pipeline) Rebuilds() int64 { return p.rebuilds.Load() }

func (p *Pipeline) generate(coord world.ChunkCoord, settings config.Settings) (data *mesh.TerrainData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: chunk %s: %v", ErrPanic, coord, r)
		}
	}()

	p.synMu.Lock()
	defer p.synMu.Unlock()

	syn, err := p.synthesizer(settings)
	if err != nil {
		return nil, err
	}
	data, err = p.build(coord, settings, syn)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", coord, err)
	}
	p.generated.Add(1)
	return data, nil
}

// synthesizer returns a synthesizer for settings, reseeding layers only when
// the seed or noise basis changed since the previous request.
func (p *Pipeline) synthesizer(settings config.Settings) (*gen.Synthesizer, error) {
	if p.syn == nil {
		syn, err := gen.NewSynthesizer(settings)
		if err != nil {
			return nil, err
		}
		p.syn = syn
		p.rebuilds.Add(1)
		p.log.Debug("synthesizer seeded", "seed", settings.Seed, "basis", settings.NoiseBasis)
		return syn, nil
	}

	rebuilt, err := p.syn.Reconfigure(settings)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		p.rebuilds.Add(1)
		p.log.Debug("synthesizer reseeded", "seed", settings.Seed, "basis", settings.NoiseBasis)
	}
	return p.syn, nil
}

func buildChunk(coord world.ChunkCoord, settings config.Settings, syn *gen.Synthesizer) (*mesh.TerrainData, error) {
	data := mesh.BuildSurface(coord, settings, syn.Surface)
	if data == nil {
		return nil, errors.New("no mesh for settings")
	}
	return data, nil
}
