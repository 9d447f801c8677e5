package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/mesh"
)

// Renderer is the chunk consumer a Recorder forwards to.
type Renderer interface {
	InstallChunk(chunk *world.WorldChunk, data *mesh.TerrainData) any
	RemoveChunk(chunk *world.WorldChunk)
}

// Record event kinds.
const (
	EventInstall = "install"
	EventRemove  = "remove"
)

// ChunkRecord is one line of a chunk recording.
type ChunkRecord struct {
	Event      string           `json:"event"`
	Time       time.Time        `json:"time"`
	Coord      world.ChunkCoord `json:"coord"`
	Origin     mgl64.Vec2       `json:"origin"`
	Resolution int              `json:"resolution,omitempty"`
	Heights    []float32        `json:"heights,omitempty"`
	Biomes     []uint8          `json:"biomes,omitempty"`
	Cuboids    []mesh.Cuboid    `json:"cuboids,omitempty"`
	Spheres    []mesh.Sphere    `json:"spheres,omitempty"`

	// Geometry, only with RecorderOptions.IncludeMesh.
	Vertices []float32 `json:"vertices,omitempty"`
	Normals  []float32 `json:"normals,omitempty"`
	Indices  []uint32  `json:"indices,omitempty"`
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	IncludeMesh bool
	Next        Renderer // receives every call after it is recorded; may be nil
}

// Recorder writes installed and removed chunks to a compressed JSONL log for
// offline inspection. Write failures are logged and never reach the caller.
type Recorder struct {
	w    *jsonlWriter
	opts RecorderOptions
	log  *slog.Logger
}

// NewRecorder records into the storage chunk directory.
func (s *Storage) NewRecorder(opts RecorderOptions) *Recorder {
	return &Recorder{
		w:    newJSONLWriter(s.ChunkDir(), "chunks"),
		opts: opts,
		log:  s.log,
	}
}

// InstallChunk records an install event and forwards to Next.
func (r *Recorder) InstallChunk(chunk *world.WorldChunk, data *mesh.TerrainData) any {
	rec := ChunkRecord{
		Event:      EventInstall,
		Time:       r.w.now().UTC(),
		Coord:      chunk.Coord,
		Origin:     chunk.Origin,
		Resolution: data.Resolution,
		Heights:    data.Heights,
		Biomes:     data.Biomes,
		Cuboids:    data.Cuboids,
		Spheres:    data.Spheres,
	}
	if r.opts.IncludeMesh {
		rec.Vertices, rec.Normals, rec.Indices = data.Vertices, data.Normals, data.Indices
	}
	r.write(rec)

	if r.opts.Next != nil {
		return r.opts.Next.InstallChunk(chunk, data)
	}
	return nil
}

// RemoveChunk records a remove event and forwards to Next.
func (r *Recorder) RemoveChunk(chunk *world.WorldChunk) {
	r.write(ChunkRecord{
		Event:  EventRemove,
		Time:   r.w.now().UTC(),
		Coord:  chunk.Coord,
		Origin: chunk.Origin,
	})
	if r.opts.Next != nil {
		r.opts.Next.RemoveChunk(chunk)
	}
}

func (r *Recorder) write(rec ChunkRecord) {
	if err := r.w.Write(rec); err != nil {
		r.log.Warn("chunk record failed", "coord", rec.Coord.String(), "event", rec.Event, "error", err)
	}
}

// Path returns the current recording file.
func (r *Recorder) Path() string { return r.w.Path() }

// Flush makes buffered records readable.
func (r *Recorder) Flush() error { return r.w.Flush() }

// Close flushes and closes the recording.
func (r *Recorder) Close() error { return r.w.Close() }

// ReadRecords decodes a recording file.
func ReadRecords(path string) ([]ChunkRecord, error) {
	var out []ChunkRecord
	err := readJSONL(path, func(line []byte) error {
		var rec ChunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
