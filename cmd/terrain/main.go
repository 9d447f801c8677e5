package main

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/storage"
	"github.com/OCharnyshevich/terrainstream/internal/stream"
	"github.com/OCharnyshevich/terrainstream/internal/world/pipeline"
)

func main() {
	cfg := config.DefaultConfig()

	var (
		configSrc  = flag.String("config", "", "config file or go-getter URL (yaml, toml or json)")
		dataDir    = flag.String("data", "", "session directory for the settings snapshot and recordings")
		resume     = flag.Bool("resume", false, "start from the settings snapshot in -data")
		record     = flag.Bool("record", false, "record installed chunks to -data/chunks")
		recordMesh = flag.Bool("record-mesh", false, "include vertex buffers in recordings")
		frames     = flag.Int("frames", 600, "number of frames to run (0 = until interrupted)")
		fps        = flag.Int("fps", 60, "frame rate")
		speed      = flag.Float64("speed", 40, "observer speed in world units per second")
		heading    = flag.Float64("heading", 30, "observer heading in degrees from +x")
		reseedAt   = flag.Int("reseed-at", 0, "change the seed at this frame (0 = never)")
	)
	flag.StringVar(&cfg.Terrain.Seed, "seed", cfg.Terrain.Seed, "world seed")
	flag.StringVar(&cfg.Terrain.NoiseBasis, "noise", cfg.Terrain.NoiseBasis, "noise basis: opensimplex, perlin or simplex")
	flag.Float64Var(&cfg.Terrain.ChunkSize, "chunk-size", cfg.Terrain.ChunkSize, "chunk edge length in world units")
	flag.IntVar(&cfg.Terrain.MeshResolution, "resolution", cfg.Terrain.MeshResolution, "mesh quads per chunk edge")
	flag.Float64Var(&cfg.Terrain.WaterLevel, "water-level", cfg.Terrain.WaterLevel, "water level")
	flag.IntVar(&cfg.Terrain.RenderDistance, "render-distance", cfg.Terrain.RenderDistance, "required square edge in chunks")
	flag.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	flag.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: text or json")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	log := newLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *configSrc != "" {
		path, err := config.Fetch(ctx, *configSrc, filepath.Join(os.TempDir(), "terrainstream"))
		if err != nil {
			log.Error("fetch config", "error", err)
			os.Exit(1)
		}
		fromFile, err := config.Load(path)
		if err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
		config.Merge(cfg, fromFile, explicit)
		log = newLogger(cfg.Log)
		log.Info("loaded config", "path", path)
	}

	var st *storage.Storage
	if *dataDir != "" {
		var err error
		st, err = storage.New(*dataDir, log)
		if err != nil {
			log.Error("open data dir", "error", err)
			os.Exit(1)
		}
		if *resume {
			if err := st.LoadSettings(cfg); err != nil {
				log.Error("load settings snapshot", "error", err)
				os.Exit(1)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if st != nil {
		if err := st.SaveSettings(cfg); err != nil {
			log.Error("save settings snapshot", "error", err)
			os.Exit(1)
		}
	}

	p := pipeline.New(log)
	defer p.Close()

	var renderer stream.Renderer
	if *record && st != nil {
		rec := st.NewRecorder(storage.RecorderOptions{IncludeMesh: *recordMesh})
		defer func() {
			if err := rec.Close(); err != nil {
				log.Error("close recording", "error", err)
			}
		}()
		renderer = rec
	}

	coord, err := stream.New(cfg, p, renderer, log)
	if err != nil {
		log.Error("create coordinator", "error", err)
		os.Exit(1)
	}

	log.Info("streaming started",
		"seed", cfg.Terrain.Seed,
		"basis", cfg.Terrain.NoiseBasis,
		"chunkSize", cfg.Terrain.ChunkSize,
		"resolution", cfg.Terrain.MeshResolution,
		"renderDistance", cfg.Terrain.RenderDistance,
	)

	run(ctx, coord, log, walk{
		frames:   *frames,
		fps:      max(*fps, 1),
		speed:    *speed,
		heading:  *heading * math.Pi / 180,
		reseedAt: *reseedAt,
	})

	s := coord.Stats()
	log.Info("streaming stopped",
		"requested", s.Requested,
		"installed", s.Installed,
		"evicted", s.Evicted,
		"stale", s.Stale,
		"failed", s.Failed,
		"reissued", s.Reissued,
		"generated", p.Generated(),
	)
}

type walk struct {
	frames   int
	fps      int
	speed    float64
	heading  float64
	reseedAt int
}

// run moves an observer in a straight line, one coordinator update per frame.
func run(ctx context.Context, c *stream.Coordinator, log *slog.Logger, w walk) {
	ticker := time.NewTicker(time.Second / time.Duration(w.fps))
	defer ticker.Stop()

	step := w.speed / float64(w.fps)
	dir := mgl64.Vec3{math.Cos(w.heading), 0, math.Sin(w.heading)}
	var pos mgl64.Vec3

	for frame := 1; w.frames == 0 || frame <= w.frames; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if frame == w.reseedAt {
			s := c.Settings()
			s.Seed += "'"
			if _, err := c.SetSettings(s); err != nil {
				log.Error("reseed", "error", err)
			}
		}

		report := c.Update(pos)
		if report.PlayerChunkChanged {
			log.Debug("player chunk changed", "coord", report.PlayerChunk.String(),
				"requested", len(report.Requested), "evicted", len(report.Evicted))
		}
		if report.Respawn != nil {
			pos = *report.Respawn
			log.Info("observer placed", "x", pos.X(), "y", pos.Y(), "z", pos.Z())
		}
		pos = pos.Add(dir.Mul(step))
		if h, ok := c.SpawnHeight(pos.X(), pos.Z()); ok {
			pos[1] = h
		}
	}
}

func newLogger(lc config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
