package mesh

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/gen"
)

const (
	scatterCandidates = 8
	scatterClearance  = 3 // minimum height above water for placements
)

// Cuboid is a box placement. Position is the world-space centre.
type Cuboid struct {
	Position mgl32.Vec3 `json:"position"`
	Size     mgl32.Vec3 `json:"size"`
}

// Sphere is a ball placement. Position is the world-space centre.
type Sphere struct {
	Position mgl32.Vec3 `json:"position"`
	Radius   float32    `json:"radius"`
}

// scatterRand returns the placement stream for one chunk. It depends only on
// the seed text and coordinate, never on noise layer state.
func scatterRand(seed string, coord world.ChunkCoord) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(int64(coord.X)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(coord.Z)))

	d := xxhash.New()
	_, _ = d.WriteString(seed)
	_, _ = d.WriteString("/scatter/")
	_, _ = d.Write(buf[:])
	hi := d.Sum64()
	_, _ = d.Write(buf[:])
	lo := d.Sum64()
	return rand.New(rand.NewPCG(hi, lo))
}

// Scatter places up to eight decorative solids on the chunk surface.
// Candidates closer than three units to the water level are dropped.
func Scatter(coord world.ChunkCoord, settings config.Settings, heightFn gen.HeightFunc) ([]Cuboid, []Sphere) {
	r := scatterRand(settings.Seed, coord)
	origin := coord.Origin(settings.ChunkSize)

	var cuboids []Cuboid
	var spheres []Sphere
	for range scatterCandidates {
		x := origin.X() + r.Float64()*settings.ChunkSize
		z := origin.Y() + r.Float64()*settings.ChunkSize
		h := heightFn(x, z)
		if h < settings.WaterLevel+scatterClearance {
			continue
		}

		if r.Float64() < 0.5 {
			size := mgl32.Vec3{
				float32(1 + r.Float64()*3),
				float32(1 + r.Float64()*3),
				float32(1 + r.Float64()*3),
			}
			cuboids = append(cuboids, Cuboid{
				Position: mgl32.Vec3{float32(x), float32(h) + size.Y()/2, float32(z)},
				Size:     size,
			})
			continue
		}

		radius := float32(0.5 + r.Float64()*1.5)
		spheres = append(spheres, Sphere{
			Position: mgl32.Vec3{float32(x), float32(h) + radius, float32(z)},
			Radius:   radius,
		})
	}
	return cuboids, spheres
}
