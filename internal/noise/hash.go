package noise

import "math"

// Hash3 mixes three integers into a well distributed 32-bit value. The
// arithmetic wraps identically on every platform so results are seed-stable.
func Hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// Hash2 hashes a grid coordinate under a 64-bit seed.
func Hash2(x, z int, seed int64) uint32 {
	return Hash3(x, z, int(int32(seed)^int32(seed>>32)))
}

// Unit maps a hash to [0, 1].
func Unit(h uint32) float64 {
	return float64(h) / math.MaxUint32
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(v, size int) int {
	if size <= 0 {
		return 0
	}
	if v >= 0 {
		return v / size
	}
	return -((-v + size - 1) / size)
}

// FloorMod is the non-negative remainder matching FloorDiv.
func FloorMod(v, size int) int {
	return v - FloorDiv(v, size)*size
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SmoothStep is the Hermite step between edge0 and edge1, clamped to [0, 1].
func SmoothStep(edge0, edge1, v float64) float64 {
	if edge1 <= edge0 {
		if v < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((v-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
