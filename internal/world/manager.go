package world

import (
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Delta is the result of a position update.
type Delta struct {
	ToLoad             []ChunkCoord // required, no resident entry; nearest first
	ToUnload           []ChunkCoord // resident, no longer required
	PlayerChunkChanged bool
}

// Manager owns the resident chunk table and the required set around the
// observer. It is driven by a single frame loop. The lock guards the table
// and required set, so coordinate queries such as Len, IsRequired and
// PlayerChunk are safe from any goroutine. The *WorldChunk records it hands
// out are mutated in place by InstallMesh and UnloadChunk and must only be
// read on the frame loop.
type Manager struct {
	mu             sync.RWMutex
	chunkSize      float64
	renderDistance int
	chunks         map[ChunkCoord]*WorldChunk
	required       map[ChunkCoord]struct{}
	player         ChunkCoord
	hasPlayer      bool
}

// NewManager creates a Manager for chunks of edge chunkSize and a required
// square renderDistance chunks wide.
func NewManager(chunkSize float64, renderDistance int) *Manager {
	return &Manager{
		chunkSize:      chunkSize,
		renderDistance: renderDistance,
		chunks:         make(map[ChunkCoord]*WorldChunk),
		required:       make(map[ChunkCoord]struct{}),
	}
}

// ChunkSize returns the chunk edge length in world units.
func (m *Manager) ChunkSize() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chunkSize
}

// ChunkAt returns the coordinate of the chunk containing world position (x, z).
func (m *Manager) ChunkAt(x, z float64) ChunkCoord {
	return ChunkAt(x, z, m.ChunkSize())
}

// Required returns the R×R square of coordinates around center, where R is
// the render distance. The square starts at center - floor(R/2), so it is
// centred for odd R and leans towards negative coordinates for even R.
// Coordinates are ordered nearest ring first.
func (m *Manager) Required(center ChunkCoord) []ChunkCoord {
	m.mu.RLock()
	r := m.renderDistance
	m.mu.RUnlock()
	return requiredSquare(center, r)
}

func requiredSquare(center ChunkCoord, r int) []ChunkCoord {
	if r < 1 {
		return nil
	}
	lo := ChunkCoord{X: center.X - r/2, Z: center.Z - r/2}
	out := make([]ChunkCoord, 0, r*r)
	for dz := range r {
		for dx := range r {
			out = append(out, ChunkCoord{X: lo.X + dx, Z: lo.Z + dz})
		}
	}
	slices.SortStableFunc(out, func(a, b ChunkCoord) int {
		return a.Chebyshev(center) - b.Chebyshev(center)
	})
	return out
}

// UpdatePlayerPosition recomputes the required set for the observer at pos
// and reports which coordinates need loading and unloading. It does not
// modify the resident table.
func (m *Manager) UpdatePlayerPosition(pos mgl64.Vec3) Delta {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := ChunkAt(pos.X(), pos.Z(), m.chunkSize)
	var d Delta
	d.PlayerChunkChanged = !m.hasPlayer || p != m.player
	m.player, m.hasPlayer = p, true

	req := requiredSquare(p, m.renderDistance)
	clear(m.required)
	for _, c := range req {
		m.required[c] = struct{}{}
		if _, ok := m.chunks[c]; !ok {
			d.ToLoad = append(d.ToLoad, c)
		}
	}
	for c := range m.chunks {
		if _, ok := m.required[c]; !ok {
			d.ToUnload = append(d.ToUnload, c)
		}
	}
	slices.SortFunc(d.ToUnload, ChunkCoord.Compare)
	return d
}

// PlayerChunk returns the observer's chunk from the last position update.
func (m *Manager) PlayerChunk() (ChunkCoord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.player, m.hasPlayer
}

// IsRequired reports whether c is in the current required set.
func (m *Manager) IsRequired(c ChunkCoord) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.required[c]
	return ok
}

// GenerateChunk registers c in the resident table, unloaded, and returns its
// record. Registering an already resident coordinate returns the existing record.
func (m *Manager) GenerateChunk(c ChunkCoord) *WorldChunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wc, ok := m.chunks[c]; ok {
		return wc
	}
	wc := &WorldChunk{Coord: c, Origin: c.Origin(m.chunkSize)}
	m.chunks[c] = wc
	return wc
}

// InstallMesh marks a registered chunk loaded and visible with the given
// renderer handle. It returns false if c is not registered.
func (m *Manager) InstallMesh(c ChunkCoord, handle any) (*WorldChunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wc, ok := m.chunks[c]
	if !ok {
		return nil, false
	}
	wc.Mesh = handle
	wc.Loaded = true
	wc.Visible = true
	return wc, true
}

// UnloadChunk removes c from the resident table and returns the removed record.
// Discarding terrain data and request bookkeeping is up to the caller.
func (m *Manager) UnloadChunk(c ChunkCoord) (*WorldChunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wc, ok := m.chunks[c]
	if !ok {
		return nil, false
	}
	delete(m.chunks, c)
	wc.Visible = false
	return wc, true
}

// Chunk returns the resident record for c. The record is live, see Manager.
func (m *Manager) Chunk(c ChunkCoord) (*WorldChunk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wc, ok := m.chunks[c]
	return wc, ok
}

// Chunks returns all resident records ordered by coordinate. The records are
// live, see Manager.
func (m *Manager) Chunks() []*WorldChunk {
	m.mu.RLock()
	out := make([]*WorldChunk, 0, len(m.chunks))
	for _, wc := range m.chunks {
		out = append(out, wc)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *WorldChunk) int { return a.Coord.Compare(b.Coord) })
	return out
}

// Len returns the number of resident chunks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Reset drops every chunk and the required set and adopts new dimensions.
// The next position update reports a player chunk change.
func (m *Manager) Reset(chunkSize float64, renderDistance int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunkSize = chunkSize
	m.renderDistance = renderDistance
	clear(m.chunks)
	clear(m.required)
	m.hasPlayer = false
}
