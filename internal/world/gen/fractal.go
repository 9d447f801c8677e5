package gen

import "math"

// Fractal sums octaves of f at increasing frequency and decreasing amplitude.
// The sum is divided by the accumulated amplitude, so the result stays in [-1, 1].
func Fractal(f Field, x, y float64, octaves int, persistence, lacunarity float64) float64 {
	var total, maxVal float64
	amplitude, frequency := 1.0, 1.0

	for range octaves {
		total += f.Noise2D(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}

// Ridged folds n in [-1, 1] into sharp crests: (1-|n|)^sharpness in [0, 1].
func Ridged(n, sharpness float64) float64 {
	return math.Pow(1-math.Min(math.Abs(n), 1), sharpness)
}

// Billow returns |n|, giving rounded forms.
func Billow(n float64) float64 {
	return math.Abs(n)
}

// Smootherstep is the quintic step t³(6t²−15t+10) of x between e0 and e1.
func Smootherstep(e0, e1, x float64) float64 {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * t * (t*(t*6-15) + 10)
}
