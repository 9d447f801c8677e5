package gen

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/cespare/xxhash/v2"
	"github.com/ojrac/opensimplex-go"

	"github.com/OCharnyshevich/terrainstream/internal/config"
)

// Field is a deterministic, seeded 2D scalar noise field. Implementations
// return values in [-1, 1].
type Field interface {
	Noise2D(x, y float64) float64
}

// NewField creates a Field of the given basis.
func NewField(basis string, seed int64) (Field, error) {
	switch basis {
	case config.BasisOpenSimplex:
		return simplexField{opensimplex.New(seed)}, nil
	case config.BasisPerlin:
		return perlinField{perlin.NewPerlin(2, 2, 1, seed)}, nil
	case config.BasisSimplex:
		return NewSimplex(seed), nil
	default:
		return nil, fmt.Errorf("unknown noise basis %q", basis)
	}
}

// LayerSeed derives an independent 64-bit seed for one named layer of a world seed.
func LayerSeed(seed, layer string) int64 {
	return int64(xxhash.Sum64String(seed + "/" + layer))
}

type simplexField struct{ n opensimplex.Noise }

func (f simplexField) Noise2D(x, y float64) float64 { return clamp(f.n.Eval2(x, y), -1, 1) }

// go-perlin returns exactly zero on integer lattice points; a fixed
// irrational offset keeps integer sample spacings off the lattice.
const perlinOffset = 0.6180339887498949

type perlinField struct{ p *perlin.Perlin }

func (f perlinField) Noise2D(x, y float64) float64 {
	// Raw gradient noise peaks near ±0.7.
	return clamp(f.p.Noise2D(x+perlinOffset, y+perlinOffset)*1.4, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
