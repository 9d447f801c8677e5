package world

import (
	"slices"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestChunkAtFloors(t *testing.T) {
	tests := []struct {
		x, z float64
		want ChunkCoord
	}{
		{0, 0, ChunkCoord{0, 0}},
		{127.9, 0, ChunkCoord{0, 0}},
		{128, 0, ChunkCoord{1, 0}},
		{-0.1, -128, ChunkCoord{-1, -1}},
		{-128.5, 300, ChunkCoord{-2, 2}},
	}
	for _, tt := range tests {
		if got := ChunkAt(tt.x, tt.z, 128); got != tt.want {
			t.Errorf("ChunkAt(%v, %v) = %v, want %v", tt.x, tt.z, got, tt.want)
		}
	}
}

func TestChunkCoordString(t *testing.T) {
	if got := (ChunkCoord{X: -3, Z: 7}).String(); got != "-3,7" {
		t.Errorf("String() = %q, want -3,7", got)
	}
}

func square(x0, z0, r int) map[ChunkCoord]bool {
	out := make(map[ChunkCoord]bool)
	for z := z0; z < z0+r; z++ {
		for x := x0; x < x0+r; x++ {
			out[ChunkCoord{x, z}] = true
		}
	}
	return out
}

func TestRequiredSquare(t *testing.T) {
	tests := []struct {
		r      int
		center ChunkCoord
		lo     ChunkCoord
	}{
		{1, ChunkCoord{4, 4}, ChunkCoord{4, 4}},
		{3, ChunkCoord{0, 0}, ChunkCoord{-1, -1}},
		{4, ChunkCoord{2, -5}, ChunkCoord{0, -7}},
		{5, ChunkCoord{-10, 3}, ChunkCoord{-12, 1}},
	}
	for _, tt := range tests {
		m := NewManager(128, tt.r)
		got := m.Required(tt.center)
		want := square(tt.lo.X, tt.lo.Z, tt.r)
		if len(got) != tt.r*tt.r {
			t.Fatalf("R=%d: %d coords, want %d", tt.r, len(got), tt.r*tt.r)
		}
		for _, c := range got {
			if !want[c] {
				t.Fatalf("R=%d: unexpected coord %v", tt.r, c)
			}
			delete(want, c)
		}
		if len(want) != 0 {
			t.Fatalf("R=%d: missing coords %v", tt.r, want)
		}
		if got[0] != tt.center {
			t.Errorf("R=%d: first coord %v, want center %v", tt.r, got[0], tt.center)
		}
	}
}

func TestUpdatePlayerPositionDelta(t *testing.T) {
	m := NewManager(128, 3)

	d := m.UpdatePlayerPosition(mgl64.Vec3{10, 50, 10})
	if !d.PlayerChunkChanged {
		t.Error("first update should report a chunk change")
	}
	if len(d.ToLoad) != 9 || len(d.ToUnload) != 0 {
		t.Fatalf("first delta = %d load / %d unload, want 9/0", len(d.ToLoad), len(d.ToUnload))
	}
	for _, c := range d.ToLoad {
		m.GenerateChunk(c)
	}

	// Same chunk: nothing to do.
	d = m.UpdatePlayerPosition(mgl64.Vec3{20, 0, 30})
	if d.PlayerChunkChanged || len(d.ToLoad) != 0 || len(d.ToUnload) != 0 {
		t.Fatalf("unchanged delta = %+v", d)
	}

	// One chunk east: column x=-1 leaves, column x=2 arrives.
	d = m.UpdatePlayerPosition(mgl64.Vec3{130, 0, 10})
	if !d.PlayerChunkChanged {
		t.Error("moving east should report a chunk change")
	}
	wantUnload := []ChunkCoord{{-1, -1}, {-1, 0}, {-1, 1}}
	if !slices.Equal(d.ToUnload, wantUnload) {
		t.Errorf("ToUnload = %v, want %v", d.ToUnload, wantUnload)
	}
	load := slices.Clone(d.ToLoad)
	slices.SortFunc(load, ChunkCoord.Compare)
	wantLoad := []ChunkCoord{{2, -1}, {2, 0}, {2, 1}}
	if !slices.Equal(load, wantLoad) {
		t.Errorf("ToLoad = %v, want %v", load, wantLoad)
	}

	// Teleport far away: every resident chunk is unloaded.
	d = m.UpdatePlayerPosition(mgl64.Vec3{-5000, 0, 9000})
	if len(d.ToUnload) != 9 || len(d.ToLoad) != 9 {
		t.Errorf("teleport delta = %d load / %d unload, want 9/9", len(d.ToLoad), len(d.ToUnload))
	}
}

func TestGenerateInstallUnload(t *testing.T) {
	m := NewManager(64, 3)
	c := ChunkCoord{2, -1}

	wc := m.GenerateChunk(c)
	if wc.Loaded || wc.Visible || wc.Mesh != nil {
		t.Fatalf("new chunk should be unloaded: %+v", wc)
	}
	if wc.Origin != (mgl64.Vec2{128, -64}) {
		t.Errorf("Origin = %v, want [128 -64]", wc.Origin)
	}
	if again := m.GenerateChunk(c); again != wc {
		t.Error("GenerateChunk should return the existing record")
	}

	if _, ok := m.InstallMesh(ChunkCoord{9, 9}, "x"); ok {
		t.Error("InstallMesh on unregistered coord should fail")
	}
	got, ok := m.InstallMesh(c, "mesh")
	if !ok || !got.Loaded || !got.Visible || got.Mesh != "mesh" {
		t.Fatalf("InstallMesh = %+v, %v", got, ok)
	}

	removed, ok := m.UnloadChunk(c)
	if !ok || removed != wc || removed.Visible {
		t.Fatalf("UnloadChunk = %+v, %v", removed, ok)
	}
	if _, ok := m.Chunk(c); ok {
		t.Error("chunk still resident after unload")
	}
	if _, ok := m.UnloadChunk(c); ok {
		t.Error("second unload should report false")
	}
}

func TestChunksSorted(t *testing.T) {
	m := NewManager(16, 3)
	for _, c := range []ChunkCoord{{1, 1}, {-1, 0}, {0, -2}, {0, 0}} {
		m.GenerateChunk(c)
	}
	var got []ChunkCoord
	for _, wc := range m.Chunks() {
		got = append(got, wc.Coord)
	}
	want := []ChunkCoord{{0, -2}, {-1, 0}, {0, 0}, {1, 1}}
	if !slices.Equal(got, want) {
		t.Errorf("Chunks() = %v, want %v", got, want)
	}
	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4", m.Len())
	}
}

func TestReset(t *testing.T) {
	m := NewManager(128, 3)
	d := m.UpdatePlayerPosition(mgl64.Vec3{})
	for _, c := range d.ToLoad {
		m.GenerateChunk(c)
	}

	m.Reset(32, 5)
	if m.Len() != 0 {
		t.Fatalf("Len() = %d after reset", m.Len())
	}
	if m.ChunkSize() != 32 {
		t.Errorf("ChunkSize() = %v, want 32", m.ChunkSize())
	}
	if m.IsRequired(ChunkCoord{}) {
		t.Error("required set should be cleared")
	}
	d = m.UpdatePlayerPosition(mgl64.Vec3{})
	if !d.PlayerChunkChanged || len(d.ToLoad) != 25 {
		t.Errorf("after reset: changed=%v load=%d, want true/25", d.PlayerChunkChanged, len(d.ToLoad))
	}
	if got := m.ChunkAt(33, -1); got != (ChunkCoord{1, -1}) {
		t.Errorf("ChunkAt after reset = %v", got)
	}
}

func TestTableQueriesFromOtherGoroutines(t *testing.T) {
	m := NewManager(16, 3)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = m.Len()
			_ = m.IsRequired(ChunkCoord{})
			_, _ = m.PlayerChunk()
			_ = m.Required(ChunkCoord{X: 1})
		}
	}()

	// Frame loop: register, install and unload while the reader polls.
	for i := range 200 {
		d := m.UpdatePlayerPosition(mgl64.Vec3{float64(i * 16), 0, 0})
		for _, c := range d.ToLoad {
			m.GenerateChunk(c)
			m.InstallMesh(c, i)
		}
		for _, c := range d.ToUnload {
			m.UnloadChunk(c)
		}
	}
	close(stop)
	wg.Wait()

	if m.Len() != 9 {
		t.Errorf("Len() = %d, want 9", m.Len())
	}
	for _, wc := range m.Chunks() {
		if !wc.Loaded || !m.IsRequired(wc.Coord) {
			t.Errorf("chunk %s = %+v", wc.Coord, wc)
		}
	}
}
