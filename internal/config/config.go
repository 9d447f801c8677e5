package config

import (
	"errors"
	"fmt"
)

// Noise bases understood by the height synthesizer.
const (
	BasisOpenSimplex = "opensimplex"
	BasisPerlin      = "perlin"
	BasisSimplex     = "simplex"
)

// Config holds everything needed to run a terrain streaming session.
type Config struct {
	Terrain   Settings        `json:"terrain"`
	Streaming StreamingConfig `json:"streaming"`
	Log       LogConfig       `json:"log"`
}

// Settings is the immutable-per-generation terrain configuration. It only holds
// comparable fields so two values can be compared with ==.
type Settings struct {
	Seed           string  `json:"seed"`
	NoiseBasis     string  `json:"noise_basis"`
	ChunkSize      float64 `json:"chunk_size"`
	MeshResolution int     `json:"mesh_resolution"`
	WaterLevel     float64 `json:"water_level"`
	RenderDistance int     `json:"render_distance"`

	Continent LayerParams `json:"continent"`
	Mountain  LayerParams `json:"mountain"`
	Hill      LayerParams `json:"hill"`
	Detail    LayerParams `json:"detail"`
	Warp      LayerParams `json:"warp"`
}

// LayerParams shapes one semantic noise layer. Scale is the feature wavelength
// in world units, Amplitude the height envelope (coordinate displacement for
// the warp layer) and Sharpness the ridge exponent.
type LayerParams struct {
	Scale     float64 `json:"scale"`
	Amplitude float64 `json:"amplitude"`
	Sharpness float64 `json:"sharpness"`
}

// StreamingConfig tunes the coordinator's request policy.
type StreamingConfig struct {
	RequestTimeoutMs     int     `json:"request_timeout_ms"`      // measured from task start; 0 disables re-issue
	MaxRetries           int     `json:"max_retries"`             // re-issues per coordinate
	MaxRequestsPerSecond float64 `json:"max_requests_per_second"` // 0 = unlimited
	RequestBurst         int     `json:"request_burst"`
	SpawnOffset          float64 `json:"spawn_offset"` // height above surface for respawns
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Terrain: DefaultSettings(),
		Streaming: StreamingConfig{
			RequestTimeoutMs: 5000,
			MaxRetries:       3,
			RequestBurst:     8,
			SpawnOffset:      2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultSettings returns the default generation settings.
func DefaultSettings() Settings {
	return Settings{
		Seed:           "terrain",
		NoiseBasis:     BasisOpenSimplex,
		ChunkSize:      128,
		MeshResolution: 64,
		WaterLevel:     10,
		RenderDistance: 5,
		Continent:      LayerParams{Scale: 1600, Amplitude: 60, Sharpness: 1},
		Mountain:       LayerParams{Scale: 500, Amplitude: 90, Sharpness: 2.2},
		Hill:           LayerParams{Scale: 220, Amplitude: 18, Sharpness: 1},
		Detail:         LayerParams{Scale: 24, Amplitude: 1.5, Sharpness: 1},
		Warp:           LayerParams{Scale: 700, Amplitude: 120, Sharpness: 1},
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Terrain.Seed = fromFile.Terrain.Seed
	}
	if !explicitFlags["noise"] {
		cfg.Terrain.NoiseBasis = fromFile.Terrain.NoiseBasis
	}
	if !explicitFlags["chunk-size"] {
		cfg.Terrain.ChunkSize = fromFile.Terrain.ChunkSize
	}
	if !explicitFlags["resolution"] {
		cfg.Terrain.MeshResolution = fromFile.Terrain.MeshResolution
	}
	if !explicitFlags["water-level"] {
		cfg.Terrain.WaterLevel = fromFile.Terrain.WaterLevel
	}
	if !explicitFlags["render-distance"] {
		cfg.Terrain.RenderDistance = fromFile.Terrain.RenderDistance
	}
	if !explicitFlags["log-level"] {
		cfg.Log.Level = fromFile.Log.Level
	}
	if !explicitFlags["log-format"] {
		cfg.Log.Format = fromFile.Log.Format
	}

	// Layer shapes and streaming policy have no flags.
	cfg.Terrain.Continent = fromFile.Terrain.Continent
	cfg.Terrain.Mountain = fromFile.Terrain.Mountain
	cfg.Terrain.Hill = fromFile.Terrain.Hill
	cfg.Terrain.Detail = fromFile.Terrain.Detail
	cfg.Terrain.Warp = fromFile.Terrain.Warp
	cfg.Streaming = fromFile.Streaming
}

// Validate reports the first configuration rule that is violated.
func (c *Config) Validate() error {
	if err := c.Terrain.Validate(); err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	s := c.Streaming
	if s.RequestTimeoutMs < 0 {
		return errors.New("streaming.request_timeout_ms cannot be negative")
	}
	if s.MaxRetries < 0 {
		return errors.New("streaming.max_retries cannot be negative")
	}
	if s.MaxRequestsPerSecond < 0 {
		return errors.New("streaming.max_requests_per_second cannot be negative")
	}
	if s.MaxRequestsPerSecond > 0 && s.RequestBurst < 1 {
		return errors.New("streaming.request_burst must be positive when throttling")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// Validate checks the generation settings.
func (s Settings) Validate() error {
	if s.Seed == "" {
		return errors.New("seed must be set")
	}
	switch s.NoiseBasis {
	case BasisOpenSimplex, BasisPerlin, BasisSimplex:
	default:
		return fmt.Errorf("noise_basis %q is not supported", s.NoiseBasis)
	}
	if s.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if s.MeshResolution < 1 || s.MeshResolution > 1024 {
		return errors.New("mesh_resolution must be within 1..1024")
	}
	if s.RenderDistance < 1 {
		return errors.New("render_distance must be positive")
	}
	layers := []struct {
		name string
		p    LayerParams
	}{
		{"continent", s.Continent},
		{"mountain", s.Mountain},
		{"hill", s.Hill},
		{"detail", s.Detail},
		{"warp", s.Warp},
	}
	for _, l := range layers {
		if l.p.Scale <= 0 {
			return fmt.Errorf("%s.scale must be positive", l.name)
		}
		if l.p.Amplitude < 0 {
			return fmt.Errorf("%s.amplitude cannot be negative", l.name)
		}
		if l.p.Sharpness <= 0 {
			return fmt.Errorf("%s.sharpness must be positive", l.name)
		}
	}
	return nil
}

// SameSeed reports whether two settings share the seeded layer state, i.e. a
// synthesizer built for one can serve the other after a parameter swap.
func (s Settings) SameSeed(other Settings) bool {
	return s.Seed == other.Seed && s.NoiseBasis == other.NoiseBasis
}

// AmplitudeEnvelope is the largest distance a synthesized height may stray
// from the water level.
func (s Settings) AmplitudeEnvelope() float64 {
	return s.Continent.Amplitude + s.Mountain.Amplitude + s.Hill.Amplitude + s.Detail.Amplitude
}
