package gen

import (
	"fmt"
	"math"

	"github.com/OCharnyshevich/terrainstream/internal/config"
)

// HeightFunc maps a world position to a terrain height.
type HeightFunc func(x, z float64) float64

// Layer names. Each layer is seeded with LayerSeed(seed, name).
const (
	LayerContinent  = "continent"
	LayerMountain   = "mountain"
	LayerHill       = "hill"
	LayerDetail     = "detail"
	LayerRidge      = "ridge"
	LayerValley     = "valley"
	LayerErosion    = "erosion"
	LayerUnderwater = "underwater"
	LayerPlains     = "plains"
	LayerUndulation = "undulation"
	LayerWarpX      = "warpX"
	LayerWarpZ      = "warpZ"
)

// Thresholds on the continental signal c in [-1, 1].
const (
	shoreline    = 0.0
	oceanFloor   = -0.3 // ocean mask saturates below this
	coastWidth   = 0.12
	mountainLow  = 0.3
	mountainHigh = 0.6
)

type layers struct {
	continent, mountain, hill, detail  Field
	ridge, valley, erosion, underwater Field
	plains, undulation, warpX, warpZ   Field
}

func buildLayers(seed, basis string) (layers, error) {
	var l layers
	slots := []struct {
		name string
		dst  *Field
	}{
		{LayerContinent, &l.continent},
		{LayerMountain, &l.mountain},
		{LayerHill, &l.hill},
		{LayerDetail, &l.detail},
		{LayerRidge, &l.ridge},
		{LayerValley, &l.valley},
		{LayerErosion, &l.erosion},
		{LayerUnderwater, &l.underwater},
		{LayerPlains, &l.plains},
		{LayerUndulation, &l.undulation},
		{LayerWarpX, &l.warpX},
		{LayerWarpZ, &l.warpZ},
	}
	for _, s := range slots {
		f, err := NewField(basis, LayerSeed(seed, s.name))
		if err != nil {
			return layers{}, fmt.Errorf("layer %s: %w", s.name, err)
		}
		*s.dst = f
	}
	return l, nil
}

// Synthesizer computes terrain heights for one set of generation settings.
// It owns the seeded layer fields and is not safe for concurrent Reconfigure.
type Synthesizer struct {
	settings config.Settings
	l        layers
}

// Sample is a synthesized height together with the mask intensities that
// produced it. Masks are in [0, 1].
type Sample struct {
	Height    float64
	Continent float64
	Ocean     float64
	Coast     float64
	Mountain  float64
	Hill      float64
	Valley    float64
	Plains    float64
	Plateau   float64
}

// NewSynthesizer validates settings and seeds all layers.
func NewSynthesizer(settings config.Settings) (*Synthesizer, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("synthesizer: %w", err)
	}
	l, err := buildLayers(settings.Seed, settings.NoiseBasis)
	if err != nil {
		return nil, fmt.Errorf("synthesizer: %w", err)
	}
	return &Synthesizer{settings: settings, l: l}, nil
}

// Settings returns the settings currently in effect.
func (s *Synthesizer) Settings() config.Settings { return s.settings }

// Reconfigure switches to new settings. Layers are reseeded only when the
// seed or noise basis differ; it reports whether that happened.
func (s *Synthesizer) Reconfigure(settings config.Settings) (bool, error) {
	if settings == s.settings {
		return false, nil
	}
	if err := settings.Validate(); err != nil {
		return false, fmt.Errorf("synthesizer: %w", err)
	}
	if settings.SameSeed(s.settings) {
		s.settings = settings
		return false, nil
	}
	l, err := buildLayers(settings.Seed, settings.NoiseBasis)
	if err != nil {
		return false, fmt.Errorf("synthesizer: %w", err)
	}
	s.settings, s.l = settings, l
	return true, nil
}

// Height returns the terrain height at world position (x, z).
func (s *Synthesizer) Height(x, z float64) float64 {
	return s.Sample(x, z).Height
}

// HeightFunc returns Height as a HeightFunc.
func (s *Synthesizer) HeightFunc() HeightFunc { return s.Height }

// Sample evaluates every layer at (x, z). The result deviates from the water
// level by at most Settings.AmplitudeEnvelope().
func (s *Synthesizer) Sample(x, z float64) Sample {
	p := &s.settings
	l := &s.l
	ac, am, ah, ad := p.Continent.Amplitude, p.Mountain.Amplitude, p.Hill.Amplitude, p.Detail.Amplitude

	// Domain warp.
	wf := 1 / p.Warp.Scale
	wx := x + p.Warp.Amplitude*Fractal(l.warpX, x*wf, z*wf, 3, 0.5, 2)
	wz := z + p.Warp.Amplitude*Fractal(l.warpZ, x*wf, z*wf, 3, 0.5, 2)

	// Continental base.
	cf := 1 / p.Continent.Scale
	c := Fractal(l.continent, wx*cf, wz*cf, 6, 0.55, 2.2)

	out := Sample{Continent: c}
	out.Ocean = 1 - Smootherstep(oceanFloor, shoreline, c)
	out.Coast = 1 - Smootherstep(0, coastWidth, math.Abs(c-shoreline))
	out.Mountain = Smootherstep(mountainLow, mountainHigh, c)
	inland := 1 - out.Mountain
	out.Hill = Smootherstep(0.08, 0.25, c) * inland
	out.Valley = Smootherstep(0.1, 0.25, c) * (1 - Smootherstep(0.45, 0.6, c)) * inland
	out.Plains = Smootherstep(shoreline, 0.08, c) * (1 - Smootherstep(0.2, 0.35, c))

	sum := 0.5 * ac * c

	// Underwater basins and canyons.
	if out.Ocean > 0 {
		uf := 4 * cf
		base := Fractal(l.underwater, wx*uf, wz*uf, 4, 0.5, 2)
		canyon := Ridged(l.underwater.Noise2D(wx*uf*2+31.7, wz*uf*2-11.3), p.Continent.Sharpness)
		floor := Fractal(l.detail, wx*uf*4-7.1, wz*uf*4+3.9, 3, 0.5, 2)
		bumps := Billow(l.underwater.Noise2D(wx*uf*3-57.1, wz*uf*3+23.9))
		depth := 0.4*(base+1)/2 + 0.3*canyon + 0.2*(floor+1)/2 + 0.1*bumps
		sum -= 0.35 * ac * out.Ocean * depth
	}

	// Mountains: one primary and two secondary ridge lines worn down by erosion.
	if out.Mountain > 0 {
		mf := 1 / p.Mountain.Scale
		r1 := Ridged(Fractal(l.mountain, wx*mf, wz*mf, 5, 0.5, 2), p.Mountain.Sharpness)
		r2 := Ridged(l.ridge.Noise2D(wx*mf*1.7+101.3, wz*mf*1.7-47.9), p.Mountain.Sharpness)
		r3 := Ridged(l.ridge.Noise2D(wx*mf*2.9-213.1, wz*mf*2.9+88.4), p.Mountain.Sharpness)
		e1 := Fractal(l.erosion, wx*mf*2, wz*mf*2, 3, 0.5, 2)
		e2 := Fractal(l.erosion, wx*mf*5+17.7, wz*mf*5-5.3, 2, 0.5, 2)
		peaks := 0.6*r1 + 0.25*r2 + 0.15*r3
		wear := 0.6*math.Abs(e1) + 0.4*math.Abs(e2)
		sum += am * out.Mountain * (0.75*peaks - 0.25*wear)
	}

	// Coastal flattening.
	sum -= 0.15 * ac * out.Coast

	hf := 1 / p.Hill.Scale
	if out.Plains > 0 {
		sum += 0.1 * ah * out.Plains * Fractal(l.undulation, wx*hf*0.5, wz*hf*0.5, 2, 0.5, 2)
	}
	if out.Valley > 0 {
		sum -= 0.25 * ah * out.Valley * Ridged(l.valley.Noise2D(wx*hf*0.8, wz*hf*0.8), p.Hill.Sharpness)
	}
	if out.Hill > 0 {
		sum += 0.4 * ah * out.Hill * Fractal(l.hill, wx*hf, wz*hf, 4, 0.5, 2)
	}
	if shelf := Smootherstep(0.2, 0.35, c) * inland; shelf > 0 {
		sel := Fractal(l.plains, wx*hf*0.5, wz*hf*0.5, 2, 0.5, 2)
		out.Plateau = shelf * Smootherstep(0.1, 0.4, sel)
		sum += 0.2 * ah * out.Plateau
	}

	// Fine detail, unmasked.
	df := 1 / p.Detail.Scale
	f1 := Fractal(l.detail, wx*df, wz*df, 3, 0.5, 2)
	f2 := Fractal(l.detail, wx*df*2.3+71.1, wz*df*2.3-19.7, 2, 0.5, 2)
	sum += ad * (0.6*f1 + 0.4*f2)

	out.Height = p.WaterLevel + sum
	return out
}
