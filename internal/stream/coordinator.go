// Package stream keeps the chunks around a moving observer generated and
// installed, one frame at a time.
package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/mesh"
	"github.com/OCharnyshevich/terrainstream/internal/world/pipeline"
)

// Requester issues asynchronous chunk generation. It must not block.
type Requester interface {
	RequestChunk(coord world.ChunkCoord, settings config.Settings) *pipeline.Future
}

// Renderer consumes installed chunks. InstallChunk returns an opaque handle
// stored on the chunk.
type Renderer interface {
	InstallChunk(chunk *world.WorldChunk, data *mesh.TerrainData) any
	RemoveChunk(chunk *world.WorldChunk)
}

type noopRenderer struct{}

func (noopRenderer) InstallChunk(*world.WorldChunk, *mesh.TerrainData) any { return nil }
func (noopRenderer) RemoveChunk(*world.WorldChunk)                         {}

// State is the streaming state of one coordinate.
type State int

// Streaming states.
const (
	Absent   State = iota // no request in flight and no terrain
	Loading               // requested, result not yet installed
	Resident              // terrain installed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Resident:
		return "resident"
	default:
		return "absent"
	}
}

// FrameReport summarises one Update.
type FrameReport struct {
	PlayerChunk        world.ChunkCoord
	PlayerChunkChanged bool
	Requested          []world.ChunkCoord
	Evicted            []world.ChunkCoord
	Installed          []world.ChunkCoord
	// Respawn is set once the chunk under the observer is ready after a
	// settings change (and for the very first chunk). It holds the surface
	// position raised by the spawn offset.
	Respawn *mgl64.Vec3
}

// Stats are cumulative counters since New.
type Stats struct {
	Requested int
	Reissued  int
	Installed int
	Evicted   int
	Stale     int
	Failed    int
	Throttled int
	Resets    int
}

type request struct {
	future *pipeline.Future
	// started is the frame time at which the worker was first seen running
	// the request. Queued requests never time out.
	started time.Time
}

// Coordinator drives chunk streaming. All methods must be called from the
// frame loop goroutine.
type Coordinator struct {
	log       *slog.Logger
	stream    config.StreamingConfig
	settings  config.Settings
	requester Requester
	renderer  Renderer
	manager   *world.Manager
	limiter   *rate.Limiter
	now       func() time.Time

	loading map[world.ChunkCoord]*request
	terrain map[world.ChunkCoord]*mesh.TerrainData
	retries map[world.ChunkCoord]int
	orphans []*pipeline.Future

	respawnPending bool
	stats          Stats
}

// New creates a Coordinator. A nil renderer discards installs.
func New(cfg *config.Config, requester Requester, renderer Renderer, log *slog.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("coordinator config: %w", err)
	}
	if requester == nil {
		return nil, errors.New("coordinator: nil requester")
	}
	if renderer == nil {
		renderer = noopRenderer{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	c := &Coordinator{
		log:            log,
		stream:         cfg.Streaming,
		settings:       cfg.Terrain,
		requester:      requester,
		renderer:       renderer,
		manager:        world.NewManager(cfg.Terrain.ChunkSize, cfg.Terrain.RenderDistance),
		now:            time.Now,
		loading:        make(map[world.ChunkCoord]*request),
		terrain:        make(map[world.ChunkCoord]*mesh.TerrainData),
		retries:        make(map[world.ChunkCoord]int),
		respawnPending: true,
	}
	if cfg.Streaming.MaxRequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Streaming.MaxRequestsPerSecond), cfg.Streaming.RequestBurst)
	}
	return c, nil
}

// Update runs one frame: recompute the required set, request missing chunks,
// evict chunks that are no longer required, then install finished results.
func (c *Coordinator) Update(pos mgl64.Vec3) FrameReport {
	now := c.now()

	delta := c.manager.UpdatePlayerPosition(pos)
	player, _ := c.manager.PlayerChunk()
	report := FrameReport{PlayerChunk: player, PlayerChunkChanged: delta.PlayerChunkChanged}

	for _, coord := range delta.ToLoad {
		c.manager.GenerateChunk(coord)
	}
	c.issueRequests(player, now, &report)

	for _, coord := range delta.ToUnload {
		c.evict(coord)
		report.Evicted = append(report.Evicted, coord)
	}

	c.install(&report)
	c.dropStale()

	if c.respawnPending {
		if h, ok := c.SpawnHeight(pos.X(), pos.Z()); ok {
			report.Respawn = &mgl64.Vec3{pos.X(), h, pos.Z()}
			c.respawnPending = false
			c.log.Info("respawn ready", "coord", player.String(), "height", h)
		}
	}
	return report
}

func (c *Coordinator) issueRequests(player world.ChunkCoord, now time.Time, report *FrameReport) {
	timeout := time.Duration(c.stream.RequestTimeoutMs) * time.Millisecond

	for _, coord := range c.manager.Required(player) {
		if _, ok := c.terrain[coord]; ok {
			continue
		}
		if req, ok := c.loading[coord]; ok {
			if timeout <= 0 || req.future.Ready() {
				continue
			}
			if req.started.IsZero() {
				if req.future.Started() {
					req.started = now
				}
				continue
			}
			if now.Sub(req.started) < timeout {
				continue
			}
			if c.retries[coord] >= c.stream.MaxRetries {
				continue
			}
			c.log.Warn("chunk request timed out", "coord", coord.String(), "requestID", req.future.ID,
				"attempt", c.retries[coord]+1)
			c.orphans = append(c.orphans, req.future)
			delete(c.loading, coord)
			c.retries[coord]++
			c.stats.Reissued++
		} else if c.retries[coord] > c.stream.MaxRetries {
			continue
		}

		if c.limiter != nil && !c.limiter.AllowN(now, 1) {
			c.stats.Throttled++
			return
		}
		f := c.requester.RequestChunk(coord, c.settings)
		c.loading[coord] = &request{future: f}
		c.stats.Requested++
		report.Requested = append(report.Requested, coord)
		c.log.Debug("chunk requested", "coord", coord.String(), "requestID", f.ID)
	}
}

func (c *Coordinator) evict(coord world.ChunkCoord) {
	wc, ok := c.manager.UnloadChunk(coord)
	if ok && wc.Loaded {
		c.renderer.RemoveChunk(wc)
	}
	if req, ok := c.loading[coord]; ok {
		req.future.Cancel()
		c.orphans = append(c.orphans, req.future)
		delete(c.loading, coord)
	}
	delete(c.terrain, coord)
	delete(c.retries, coord)
	c.stats.Evicted++
}

func (c *Coordinator) install(report *FrameReport) {
	for _, coord := range slices.SortedFunc(maps.Keys(c.loading), world.ChunkCoord.Compare) {
		req := c.loading[coord]
		if !req.future.Ready() {
			continue
		}
		delete(c.loading, coord)

		data, err := req.future.Result()
		if err == nil && data == nil {
			err = errors.New("empty result")
		}
		if err != nil {
			c.retries[coord]++
			c.stats.Failed++
			c.log.Warn("chunk generation failed", "coord", coord.String(), "requestID", req.future.ID,
				"attempt", c.retries[coord], "error", err)
			continue
		}

		wc, ok := c.manager.Chunk(coord)
		if !ok || req.future.Settings != c.settings || data.Coord != coord {
			c.stats.Stale++
			continue
		}
		handle := c.renderer.InstallChunk(wc, data)
		c.manager.InstallMesh(coord, handle)
		c.terrain[coord] = data
		delete(c.retries, coord)
		c.stats.Installed++
		report.Installed = append(report.Installed, coord)
	}
}

// dropStale discards results that arrived for requests nobody waits on.
func (c *Coordinator) dropStale() {
	c.orphans = slices.DeleteFunc(c.orphans, func(f *pipeline.Future) bool {
		if !f.Ready() {
			return false
		}
		c.stats.Stale++
		c.log.Debug("stale chunk discarded", "coord", f.Coord.String(), "requestID", f.ID)
		return true
	})
}

// SetSettings switches generation settings. Any difference by value tears
// down every chunk and arms a respawn; it reports whether that happened.
func (c *Coordinator) SetSettings(s config.Settings) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, fmt.Errorf("settings: %w", err)
	}
	if s == c.settings {
		return false, nil
	}

	for _, wc := range c.manager.Chunks() {
		if wc.Loaded {
			c.renderer.RemoveChunk(wc)
		}
	}
	for _, req := range c.loading {
		req.future.Cancel()
		c.orphans = append(c.orphans, req.future)
	}
	clear(c.loading)
	clear(c.terrain)
	clear(c.retries)
	c.manager.Reset(s.ChunkSize, s.RenderDistance)

	c.settings = s
	c.respawnPending = true
	c.stats.Resets++
	c.log.Info("terrain settings changed", "seed", s.Seed, "basis", s.NoiseBasis,
		"chunkSize", s.ChunkSize, "renderDistance", s.RenderDistance)
	return true, nil
}

// Settings returns the settings in effect.
func (c *Coordinator) Settings() config.Settings { return c.settings }

// HeightAt samples the resident terrain at world position (x, z).
func (c *Coordinator) HeightAt(x, z float64) (float64, bool) {
	coord := c.manager.ChunkAt(x, z)
	wc, ok := c.manager.Chunk(coord)
	if !ok {
		return 0, false
	}
	return SampleHeightAt(wc, c.terrain[coord], c.settings, x, z)
}

// SpawnHeight returns the height to place an observer at (x, z).
func (c *Coordinator) SpawnHeight(x, z float64) (float64, bool) {
	h, ok := c.HeightAt(x, z)
	if !ok {
		return 0, false
	}
	return h + c.stream.SpawnOffset, true
}

// State returns the streaming state of coord.
func (c *Coordinator) State(coord world.ChunkCoord) State {
	if _, ok := c.terrain[coord]; ok {
		return Resident
	}
	if _, ok := c.loading[coord]; ok {
		return Loading
	}
	return Absent
}

// Terrain returns the installed payload for coord.
func (c *Coordinator) Terrain(coord world.ChunkCoord) (*mesh.TerrainData, bool) {
	d, ok := c.terrain[coord]
	return d, ok
}

// Chunks returns the resident chunk records ordered by coordinate.
func (c *Coordinator) Chunks() []*world.WorldChunk { return c.manager.Chunks() }

// Stats returns cumulative counters.
func (c *Coordinator) Stats() Stats { return c.stats }
