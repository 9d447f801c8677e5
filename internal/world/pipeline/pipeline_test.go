package pipeline

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/gen"
	"github.com/OCharnyshevich/terrainstream/internal/world/mesh"
)

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.Seed = "test"
	s.MeshResolution = 8
	return s
}

func await(t *testing.T, f *Future) (*mesh.TerrainData, error) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("future %s for %s never resolved", f.ID, f.Coord)
	}
	return f.Result()
}

func TestRequestChunkMatchesDirectBuild(t *testing.T) {
	p := New(nil)
	defer p.Close()

	s := testSettings()
	coord := world.ChunkCoord{X: 2, Z: -3}
	f := p.RequestChunk(coord, s)
	if f.Coord != coord || f.Settings != s || f.ID == "" {
		t.Fatalf("future metadata = %+v", f)
	}

	got, err := await(t, f)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}

	syn, err := gen.NewSynthesizer(s)
	if err != nil {
		t.Fatal(err)
	}
	want := mesh.BuildSurface(coord, s, syn.Surface)
	if !reflect.DeepEqual(got, want) {
		t.Fatal("pipeline result differs from a direct build")
	}
	if !f.Ready() {
		t.Error("resolved future should be ready")
	}
	if p.Generated() != 1 {
		t.Errorf("Generated() = %d, want 1", p.Generated())
	}
}

func TestRequestsAllResolve(t *testing.T) {
	p := New(nil)
	defer p.Close()

	s := testSettings()
	s.MeshResolution = 2
	ids := make(map[string]bool)
	var futures []*Future
	for x := range 6 {
		f := p.RequestChunk(world.ChunkCoord{X: x}, s)
		if ids[f.ID] {
			t.Fatalf("duplicate future id %s", f.ID)
		}
		ids[f.ID] = true
		futures = append(futures, f)
	}
	for _, f := range futures {
		data, err := await(t, f)
		if err != nil {
			t.Fatalf("chunk %s: %v", f.Coord, err)
		}
		if data.Coord != f.Coord {
			t.Errorf("data for %s carries coord %s", f.Coord, data.Coord)
		}
	}
}

func TestSynthesizerRebuiltOnlyOnSeedChange(t *testing.T) {
	p := New(nil)
	defer p.Close()

	s := testSettings()
	s.MeshResolution = 1
	run := func(s config.Settings) {
		t.Helper()
		if _, err := await(t, p.RequestChunk(world.ChunkCoord{}, s)); err != nil {
			t.Fatal(err)
		}
	}

	run(s)
	run(s)
	s.Hill.Amplitude = 5
	s.WaterLevel = 0
	run(s)
	if got := p.Rebuilds(); got != 1 {
		t.Fatalf("Rebuilds() = %d after parameter edits, want 1", got)
	}

	s.Seed = "fresh"
	run(s)
	s.NoiseBasis = config.BasisPerlin
	run(s)
	if got := p.Rebuilds(); got != 3 {
		t.Fatalf("Rebuilds() = %d after seed and basis changes, want 3", got)
	}
}

func TestInvalidSettingsFail(t *testing.T) {
	p := New(nil)
	defer p.Close()

	s := testSettings()
	s.MeshResolution = 0
	if _, err := await(t, p.RequestChunk(world.ChunkCoord{}, s)); err == nil {
		t.Fatal("expected error for invalid settings")
	}
}

func TestPanicResolvesFuture(t *testing.T) {
	p := New(nil)
	defer p.Close()

	p.build = func(coord world.ChunkCoord, _ config.Settings, _ *gen.Synthesizer) (*mesh.TerrainData, error) {
		if coord.X == 1 {
			panic("boom")
		}
		return &mesh.TerrainData{Coord: coord}, nil
	}

	s := testSettings()
	_, err := await(t, p.RequestChunk(world.ChunkCoord{X: 1}, s))
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("err = %v, want ErrPanic", err)
	}

	// The worker survives.
	data, err := await(t, p.RequestChunk(world.ChunkCoord{X: 2}, s))
	if err != nil || data.Coord.X != 2 {
		t.Fatalf("after panic: %+v, %v", data, err)
	}
}

func TestClosed(t *testing.T) {
	p := New(nil)
	p.Close()
	p.Close()

	_, err := await(t, p.RequestChunk(world.ChunkCoord{}, testSettings()))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestPromise(t *testing.T) {
	f, resolve := NewPromise(world.ChunkCoord{X: 7}, testSettings())
	if f.Ready() {
		t.Fatal("unresolved promise reports ready")
	}
	want := &mesh.TerrainData{Coord: f.Coord}
	resolve(want, nil)
	resolve(nil, errors.New("ignored"))

	got, err := await(t, f)
	if err != nil || got != want {
		t.Fatalf("Result() = %v, %v", got, err)
	}
}

func TestCancelledQueuedRequestSkipped(t *testing.T) {
	p := New(nil)
	defer p.Close()

	entered := make(chan struct{})
	gate := make(chan struct{})
	var built []world.ChunkCoord
	p.build = func(coord world.ChunkCoord, _ config.Settings, _ *gen.Synthesizer) (*mesh.TerrainData, error) {
		built = append(built, coord)
		if coord.X == 0 {
			close(entered)
			<-gate
		}
		return &mesh.TerrainData{Coord: coord}, nil
	}

	s := testSettings()
	running := p.RequestChunk(world.ChunkCoord{X: 0}, s)
	queued := p.RequestChunk(world.ChunkCoord{X: 1}, s)
	kept := p.RequestChunk(world.ChunkCoord{X: 2}, s)

	<-entered
	if !running.Started() || queued.Started() || kept.Started() {
		t.Fatalf("started = %v %v %v, want only the head of the queue",
			running.Started(), queued.Started(), kept.Started())
	}
	running.Cancel() // too late, already running
	queued.Cancel()
	close(gate)

	if _, err := await(t, running); err != nil {
		t.Fatalf("running request: %v", err)
	}
	if _, err := await(t, queued); !errors.Is(err, ErrCancelled) {
		t.Fatalf("queued request err = %v, want ErrCancelled", err)
	}
	if data, err := await(t, kept); err != nil || data.Coord.X != 2 {
		t.Fatalf("kept request = %+v, %v", data, err)
	}
	if !reflect.DeepEqual(built, []world.ChunkCoord{{X: 0}, {X: 2}}) {
		t.Errorf("built %v, want the cancelled chunk skipped", built)
	}
	if p.Generated() != 2 {
		t.Errorf("Generated() = %d, want 2", p.Generated())
	}
}
