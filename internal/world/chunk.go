package world

import (
	"cmp"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkCoord identifies a chunk on the infinite grid.
type ChunkCoord struct {
	X, Z int
}

// String returns the "x,z" key form of the coordinate.
func (c ChunkCoord) String() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Z)
}

// Origin returns the world-space (x, z) corner of the chunk.
func (c ChunkCoord) Origin(chunkSize float64) mgl64.Vec2 {
	return mgl64.Vec2{float64(c.X) * chunkSize, float64(c.Z) * chunkSize}
}

// Chebyshev returns the ring distance between two coordinates.
func (c ChunkCoord) Chebyshev(o ChunkCoord) int {
	return max(abs(c.X-o.X), abs(c.Z-o.Z))
}

// Compare orders coordinates by Z, then X.
func (c ChunkCoord) Compare(o ChunkCoord) int {
	if r := cmp.Compare(c.Z, o.Z); r != 0 {
		return r
	}
	return cmp.Compare(c.X, o.X)
}

// ChunkAt returns the coordinate of the chunk containing world position (x, z).
func ChunkAt(x, z, chunkSize float64) ChunkCoord {
	return ChunkCoord{
		X: int(math.Floor(x / chunkSize)),
		Z: int(math.Floor(z / chunkSize)),
	}
}

// WorldChunk is the runtime record of a required chunk. It is created as soon
// as the coordinate is required and only becomes Loaded once a mesh is
// installed. Fields are written by Manager only.
type WorldChunk struct {
	Coord   ChunkCoord
	Origin  mgl64.Vec2
	Loaded  bool
	Visible bool
	Mesh    any // renderer handle, nil until installed
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
