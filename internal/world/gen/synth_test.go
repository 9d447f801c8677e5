package gen

import (
	"math"
	"testing"

	"github.com/OCharnyshevich/terrainstream/internal/config"
)

func newSynth(t *testing.T, s config.Settings) *Synthesizer {
	t.Helper()
	syn, err := NewSynthesizer(s)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	return syn
}

func TestSynthesizerDeterministic(t *testing.T) {
	s := config.DefaultSettings()
	a := newSynth(t, s)
	b := newSynth(t, s)
	for i := 0; i < 500; i++ {
		x := float64(i)*13.7 - 3000
		z := float64(i)*-9.1 + 1200
		if a.Height(x, z) != b.Height(x, z) {
			t.Fatalf("Height not deterministic at (%f, %f)", x, z)
		}
	}
}

func TestSynthesizerBounded(t *testing.T) {
	sweep := []func(*config.Settings){
		func(*config.Settings) {},
		func(s *config.Settings) { s.Mountain.Sharpness = 0.5; s.Continent.Scale = 200 },
		func(s *config.Settings) { s.Warp.Amplitude = 0; s.Hill.Amplitude = 80 },
		func(s *config.Settings) { s.Continent.Amplitude = 0; s.Detail.Amplitude = 0 },
		func(s *config.Settings) { s.Mountain.Amplitude = 400; s.Mountain.Scale = 50; s.WaterLevel = -30 },
	}
	for _, basis := range bases {
		for n, mutate := range sweep {
			s := config.DefaultSettings()
			s.NoiseBasis = basis
			mutate(&s)
			syn := newSynth(t, s)
			limit := s.AmplitudeEnvelope() + 1e-9
			for i := 0; i < 2000; i++ {
				x := float64(i%50)*97.3 - 2500
				z := float64(i/50)*131.9 - 2500
				h := syn.Height(x, z)
				if math.IsNaN(h) || math.IsInf(h, 0) {
					t.Fatalf("%s/%d: non-finite height at (%f, %f)", basis, n, x, z)
				}
				if math.Abs(h-s.WaterLevel) > limit {
					t.Fatalf("%s/%d: height %f exceeds envelope %f around water level %f",
						basis, n, h, limit, s.WaterLevel)
				}
			}
		}
	}
}

func TestSampleMasksBounded(t *testing.T) {
	syn := newSynth(t, config.DefaultSettings())
	for i := 0; i < 1000; i++ {
		s := syn.Sample(float64(i)*251.3, float64(i)*-173.9)
		for name, v := range map[string]float64{
			"ocean": s.Ocean, "coast": s.Coast, "mountain": s.Mountain, "hill": s.Hill,
			"valley": s.Valley, "plains": s.Plains, "plateau": s.Plateau,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s mask = %f, out of [0,1]", name, v)
			}
		}
		if s.Mountain > 0 && s.Valley > 0 && s.Valley > 1-s.Mountain+1e-12 {
			t.Fatalf("valley %f not gated by mountain %f", s.Valley, s.Mountain)
		}
	}
}

func TestSeedChangesHeights(t *testing.T) {
	s := config.DefaultSettings()
	s.Seed = "test"
	a := newSynth(t, s)
	s.Seed = "test2"
	b := newSynth(t, s)

	for i := 0; i < 64; i++ {
		x, z := float64(i)*2, float64(i)*3
		if a.Height(x, z) != b.Height(x, z) {
			return
		}
	}
	t.Fatal("changing the seed did not change any height")
}

func TestReconfigure(t *testing.T) {
	s := config.DefaultSettings()
	syn := newSynth(t, s)
	before := syn.l.continent

	rebuilt, err := syn.Reconfigure(s)
	if err != nil || rebuilt {
		t.Fatalf("identical settings: rebuilt=%v err=%v", rebuilt, err)
	}

	s.Hill.Amplitude = 33
	rebuilt, err = syn.Reconfigure(s)
	if err != nil || rebuilt {
		t.Fatalf("parameter change: rebuilt=%v err=%v", rebuilt, err)
	}
	if syn.l.continent != before {
		t.Error("parameter change should keep layer fields")
	}
	if syn.Settings().Hill.Amplitude != 33 {
		t.Error("parameter change not applied")
	}

	s.Seed = "elsewhere"
	rebuilt, err = syn.Reconfigure(s)
	if err != nil || !rebuilt {
		t.Fatalf("seed change: rebuilt=%v err=%v", rebuilt, err)
	}

	// Reconfigured output matches a fresh synthesizer.
	fresh := newSynth(t, s)
	for i := 0; i < 50; i++ {
		x, z := float64(i)*37.1, float64(i)*-11.3
		if syn.Height(x, z) != fresh.Height(x, z) {
			t.Fatalf("reconfigured height differs at (%f, %f)", x, z)
		}
	}

	bad := s
	bad.ChunkSize = 0
	if _, err := syn.Reconfigure(bad); err == nil {
		t.Error("expected error for invalid settings")
	}
	if syn.Settings() != s {
		t.Error("failed Reconfigure should keep previous settings")
	}
}

func TestNewSynthesizerRejectsInvalid(t *testing.T) {
	s := config.DefaultSettings()
	s.NoiseBasis = "value"
	if _, err := NewSynthesizer(s); err == nil {
		t.Fatal("expected error")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		s    Sample
		want Biome
	}{
		{"below water", Sample{Height: 5, Mountain: 1}, Ocean},
		{"shore", Sample{Height: 11, Coast: 0.9}, Beach},
		{"high coast", Sample{Height: 15, Coast: 0.9}, Plains},
		{"mountain", Sample{Height: 80, Mountain: 0.8, Hill: 0.2}, Mountains},
		{"hill", Sample{Height: 20, Hill: 0.7}, Hills},
		{"valley beats hill", Sample{Height: 20, Hill: 0.6, Valley: 0.7}, Valley},
		{"plateau", Sample{Height: 30, Plateau: 0.9}, Plateau},
		{"weak masks", Sample{Height: 20, Hill: 0.4}, Plains},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.s, 10); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
	if Biome(200).String() != "unknown" {
		t.Error("out of range biome should be unknown")
	}
}

func TestSurfaceMatchesHeightAndBiome(t *testing.T) {
	syn := newSynth(t, config.DefaultSettings())
	for i := range 200 {
		x := float64(i)*71.3 - 7000
		z := float64(i)*-37.9 + 2500
		h, b := syn.Surface(x, z)
		if h != syn.Height(x, z) || b != syn.BiomeAt(x, z) {
			t.Fatalf("Surface(%f, %f) = %f, %s; want %f, %s", x, z, h, b, syn.Height(x, z), syn.BiomeAt(x, z))
		}
	}
}
