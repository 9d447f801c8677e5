package gen

// Biome is a coarse terrain class derived from the synthesizer masks.
type Biome uint8

// Biome classes, in storage order for TerrainData.Biomes.
const (
	Ocean Biome = iota
	Beach
	Plains
	Hills
	Mountains
	Valley
	Plateau
)

var biomeNames = [...]string{
	Ocean:     "ocean",
	Beach:     "beach",
	Plains:    "plains",
	Hills:     "hills",
	Mountains: "mountains",
	Valley:    "valley",
	Plateau:   "plateau",
}

// String returns the lower-case biome name.
func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "unknown"
}

// beachBand is how far above the water level a coastal sample still counts as beach.
const beachBand = 2.0

// Classify maps a sample to its dominant biome.
//
//	height < water                     → Ocean
//	coast > 0.5 and height < water+2   → Beach
//	otherwise the strongest land mask above 0.5, else Plains
func Classify(s Sample, waterLevel float64) Biome {
	switch {
	case s.Height < waterLevel:
		return Ocean
	case s.Coast > 0.5 && s.Height < waterLevel+beachBand:
		return Beach
	}

	best, strength := Plains, 0.5
	for _, c := range []struct {
		b Biome
		v float64
	}{
		{Mountains, s.Mountain},
		{Plateau, s.Plateau},
		{Valley, s.Valley},
		{Hills, s.Hill},
	} {
		if c.v > strength {
			best, strength = c.b, c.v
		}
	}
	return best
}

// BiomeAt returns the biome at world position (x, z).
func (s *Synthesizer) BiomeAt(x, z float64) Biome {
	return Classify(s.Sample(x, z), s.settings.WaterLevel)
}

// Surface returns the height and biome at (x, z) from a single evaluation.
func (s *Synthesizer) Surface(x, z float64) (float64, Biome) {
	smp := s.Sample(x, z)
	return smp.Height, Classify(smp, s.settings.WaterLevel)
}
