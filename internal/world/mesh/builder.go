// Package mesh turns a height function into per-chunk render buffers.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/gen"
)

// border is the number of extra samples on every side used for normals.
const border = 2

// TerrainData is the generated payload for one chunk. It is immutable once
// built and may be shared between goroutines.
type TerrainData struct {
	Coord      world.ChunkCoord `json:"coord"`
	Origin     mgl64.Vec2       `json:"origin"`
	Resolution int              `json:"resolution"`

	Vertices []float32 `json:"vertices"` // xyz triples, chunk-local x/z, world y
	Normals  []float32 `json:"normals"`  // unit xyz triples
	Indices  []uint32  `json:"indices"`
	Heights  []float32 `json:"heights"` // (Resolution+1)² samples, row-major by z
	Biomes   []uint8   `json:"biomes,omitempty"`

	Cuboids []Cuboid `json:"cuboids"`
	Spheres []Sphere `json:"spheres"`
}

// VertexCount returns the number of vertices along one chunk edge.
func (d *TerrainData) VertexCount() int { return d.Resolution + 1 }

// Height returns the stored height at grid index (i, j).
func (d *TerrainData) Height(i, j int) (float32, bool) {
	n := d.Resolution + 1
	if i < 0 || j < 0 || i >= n || j >= n || j*n+i >= len(d.Heights) {
		return 0, false
	}
	return d.Heights[j*n+i], true
}

// gridCoord returns the world coordinate of global grid column g. Every chunk
// computes a shared edge from the same integer, so seams match exactly.
func gridCoord(g int, settings config.Settings) float64 {
	return float64(g) * settings.ChunkSize / float64(settings.MeshResolution)
}

// SurfaceFunc returns the height and biome class at a world position.
type SurfaceFunc func(x, z float64) (float64, gen.Biome)

// Build samples heightFn over the chunk at coord and returns its mesh without
// biome classes. It returns nil if the settings have no valid grid.
func Build(coord world.ChunkCoord, settings config.Settings, heightFn gen.HeightFunc) *TerrainData {
	if heightFn == nil {
		return nil
	}
	return build(coord, settings, heightFn, nil)
}

// BuildSurface is Build with one biome class per vertex. Height and biome
// come from the same surface evaluation.
func BuildSurface(coord world.ChunkCoord, settings config.Settings, surface SurfaceFunc) *TerrainData {
	if surface == nil {
		return nil
	}
	heightFn := func(x, z float64) float64 {
		h, _ := surface(x, z)
		return h
	}
	return build(coord, settings, heightFn, surface)
}

func build(coord world.ChunkCoord, settings config.Settings, heightFn gen.HeightFunc, surface SurfaceFunc) *TerrainData {
	res := settings.MeshResolution
	if res < 1 || settings.ChunkSize <= 0 {
		return nil
	}

	n := res + 1
	stride := n + 2*border
	gx0 := coord.X*res - border
	gz0 := coord.Z*res - border

	// Border-inclusive samples, row-major by z.
	samples := make([]float64, stride*stride)
	var biomes []uint8
	if surface != nil {
		biomes = make([]uint8, stride*stride)
	}
	for j := range stride {
		wz := gridCoord(gz0+j, settings)
		for i := range stride {
			wx := gridCoord(gx0+i, settings)
			k := j*stride + i
			if surface == nil {
				samples[k] = heightFn(wx, wz)
				continue
			}
			h, b := surface(wx, wz)
			samples[k], biomes[k] = h, uint8(b)
		}
	}
	at := func(i, j int) float64 { return samples[(j+border)*stride+i+border] }

	step := settings.ChunkSize / float64(res)
	origin := coord.Origin(settings.ChunkSize)
	d := &TerrainData{
		Coord:      coord,
		Origin:     origin,
		Resolution: res,
		Vertices:   make([]float32, 0, n*n*3),
		Normals:    make([]float32, 0, n*n*3),
		Heights:    make([]float32, 0, n*n),
		Indices:    make([]uint32, 0, res*res*6),
	}
	if biomes != nil {
		d.Biomes = make([]uint8, 0, n*n)
	}

	for j := range n {
		for i := range n {
			h := at(i, j)
			d.Heights = append(d.Heights, float32(h))
			d.Vertices = append(d.Vertices, float32(float64(i)*step), float32(h), float32(float64(j)*step))
			if biomes != nil {
				d.Biomes = append(d.Biomes, biomes[(j+border)*stride+i+border])
			}

			// Fourth-order central differences.
			dx := (-at(i+2, j) + 8*at(i+1, j) - 8*at(i-1, j) + at(i-2, j)) / (12 * step)
			dz := (-at(i, j+2) + 8*at(i, j+1) - 8*at(i, j-1) + at(i, j-2)) / (12 * step)
			nv := mgl32.Vec3{float32(-dx), 1, float32(-dz)}.Normalize()
			d.Normals = append(d.Normals, nv[0], nv[1], nv[2])
		}
	}

	for j := range res {
		for i := range res {
			tl := uint32(j*n + i)
			tr := tl + 1
			bl := uint32((j+1)*n + i)
			br := bl + 1
			d.Indices = append(d.Indices, tl, bl, tr, tr, bl, br)
		}
	}

	d.Cuboids, d.Spheres = Scatter(coord, settings, heightFn)
	return d
}
