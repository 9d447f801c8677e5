package stream

import (
	"math"

	"github.com/OCharnyshevich/terrainstream/internal/config"
	"github.com/OCharnyshevich/terrainstream/internal/world"
	"github.com/OCharnyshevich/terrainstream/internal/world/mesh"
)

// SampleHeightAt returns the stored height nearest to world position (x, z)
// inside chunk. It reports false when the chunk or its data is missing, the
// resolution is unusable, or the position maps outside the stored grid.
// Heights are not interpolated.
func SampleHeightAt(chunk *world.WorldChunk, data *mesh.TerrainData, settings config.Settings, x, z float64) (float64, bool) {
	if chunk == nil || data == nil {
		return 0, false
	}
	res := settings.MeshResolution
	if res < 1 || settings.ChunkSize <= 0 || data.Resolution != res {
		return 0, false
	}

	step := settings.ChunkSize / float64(res)
	fi := math.Round((x - chunk.Origin.X()) / step)
	fj := math.Round((z - chunk.Origin.Y()) / step)
	if math.IsNaN(fi) || math.IsNaN(fj) || fi < 0 || fj < 0 || fi > float64(res) || fj > float64(res) {
		return 0, false
	}

	h, ok := data.Height(int(fi), int(fj))
	if !ok {
		return 0, false
	}
	return float64(h), true
}
