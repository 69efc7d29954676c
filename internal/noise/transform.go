package noise

import "math"

// Mirror flips a template across one or both axes.
type Mirror uint8

const (
	MirrorNone Mirror = iota
	MirrorX
	MirrorZ
	MirrorBoth
	mirrorCount
)

// Rotation turns a template clockwise in quarter steps.
type Rotation uint8

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
	rotationCount
)

// TransformCount is the number of distinct mirror and rotation variants.
const TransformCount = int(mirrorCount) * int(rotationCount)

// Template is a square grid of samples.
type Template struct {
	size   int
	values []float64
}

// NewTemplate fills a size x size template from fn.
func NewTemplate(size int, fn func(x, z int) float64) *Template {
	t := &Template{size: size, values: make([]float64, size*size)}
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			t.values[z*size+x] = fn(x, z)
		}
	}
	return t
}

func (t *Template) Size() int { return t.size }

func (t *Template) At(x, z int) float64 { return t.values[z*t.size+x] }

// Sample bilinearly interpolates at fractional grid position (u, v), both
// clamped to [0, size-1].
func (t *Template) Sample(u, v float64) float64 {
	last := float64(t.size - 1)
	u = Clamp(u, 0, last)
	v = Clamp(v, 0, last)
	x0, z0 := int(u), int(v)
	x1, z1 := min(x0+1, t.size-1), min(z0+1, t.size-1)
	fx, fz := u-float64(x0), v-float64(z0)
	top := Lerp(t.At(x0, z0), t.At(x1, z0), fx)
	bottom := Lerp(t.At(x0, z1), t.At(x1, z1), fx)
	return Lerp(top, bottom, fz)
}

// Transform returns a copy mirrored by m and then rotated by r.
func (t *Template) Transform(m Mirror, r Rotation) *Template {
	n := t.size - 1
	out := NewTemplate(t.size, func(x, z int) float64 {
		if m == MirrorX || m == MirrorBoth {
			x = n - x
		}
		if m == MirrorZ || m == MirrorBoth {
			z = n - z
		}
		return t.At(x, z)
	})
	for i := Rotation(0); i < r; i++ {
		src := out
		out = NewTemplate(t.size, func(x, z int) float64 {
			return src.At(z, n-x)
		})
	}
	return out
}

// TransformTable holds every mirror and rotation variant of a template,
// baked once so lookups never transform coordinates.
type TransformTable struct {
	variants [mirrorCount][rotationCount]*Template
}

func Bake(t *Template) *TransformTable {
	var table TransformTable
	for m := Mirror(0); m < mirrorCount; m++ {
		for r := Rotation(0); r < rotationCount; r++ {
			table.variants[m][r] = t.Transform(m, r)
		}
	}
	return &table
}

func (tt *TransformTable) Get(m Mirror, r Rotation) *Template {
	return tt.variants[m%mirrorCount][r%rotationCount]
}

// Pick selects a variant from a hash.
func (tt *TransformTable) Pick(h uint32) *Template {
	i := h % uint32(TransformCount)
	return tt.variants[i/uint32(rotationCount)][i%uint32(rotationCount)]
}

// Stamp tiles the plane with Scale sized cells, each covered by a variant of
// the table picked from the cell hash.
type Stamp struct {
	Table *TransformTable
	Seed  int64
	Scale float64
}

func (s Stamp) Get(x, z float64) float64 {
	cx := math.Floor(x / s.Scale)
	cz := math.Floor(z / s.Scale)
	t := s.Table.Pick(Hash2(int(cx), int(cz), s.Seed))
	last := float64(t.Size() - 1)
	return t.Sample((x/s.Scale-cx)*last, (z/s.Scale-cz)*last)
}
