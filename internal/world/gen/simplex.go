package gen

// Simplex is a 2D simplex noise field driven by a seeded permutation table.
// It has no dependencies and serves as the "simplex" basis.
type Simplex struct {
	perm [512]uint8
}

// grad2 holds the twelve edge gradients of a cube projected onto xy.
var grad2 = [12][2]float64{
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
	{1, 0}, {-1, 0}, {1, 0}, {-1, 0},
	{0, 1}, {0, -1}, {0, 1}, {0, -1},
}

// NewSimplex creates a simplex field with a permutation table shuffled from seed.
func NewSimplex(seed int64) *Simplex {
	sx := &Simplex{}

	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}

	// Fisher-Yates shuffle driven by a 64-bit LCG.
	s := uint64(seed)
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int((s >> 33) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}

	for i := range sx.perm {
		sx.perm[i] = p[i&255]
	}
	return sx
}

// Noise2D returns simplex noise at (x, y) in [-1, 1].
func (sx *Simplex) Noise2D(x, y float64) float64 {
	const (
		f2 = 0.36602540378443864676 // (sqrt(3) - 1) / 2
		g2 = 0.21132486540518711775 // (3 - sqrt(3)) / 6
	)

	s := (x + y) * f2
	i := fastFloor(x + s)
	j := fastFloor(y + s)

	t := float64(i+j) * g2
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}

	x1 := x0 - float64(i1) + g2
	y1 := y0 - float64(j1) + g2
	x2 := x0 - 1 + 2*g2
	y2 := y0 - 1 + 2*g2

	ii := i & 255
	jj := j & 255
	n := sx.corner(sx.perm[ii+int(sx.perm[jj])], x0, y0) +
		sx.corner(sx.perm[ii+i1+int(sx.perm[jj+j1])], x1, y1) +
		sx.corner(sx.perm[ii+1+int(sx.perm[jj+1])], x2, y2)

	return clamp(70*n, -1, 1)
}

func (sx *Simplex) corner(hash uint8, x, y float64) float64 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	g := grad2[hash%12]
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

func fastFloor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}
