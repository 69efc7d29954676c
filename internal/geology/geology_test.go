package geology

import (
	"math/rand"
	"testing"

	"worldgen/internal/cell"
	"worldgen/internal/config"
)

type scriptedSource struct {
	ints   []int
	floats []float64
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.5
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func TestPickMaterialAcceptsRepeatAfterThreeDraws(t *testing.T) {
	materials := []string{"granite", "tuff"}

	src := &scriptedSource{ints: []int{0, 0, 0, 1}}
	if got := pickMaterial(src, materials, "granite"); got != "granite" {
		t.Fatalf("expected repeat after exhausting attempts, got %s", got)
	}
	if len(src.ints) != 1 {
		t.Fatalf("expected exactly three draws, %d left", len(src.ints))
	}

	src = &scriptedSource{ints: []int{0, 1}}
	if got := pickMaterial(src, materials, "granite"); got != "tuff" {
		t.Fatalf("expected redraw to avoid the repeat, got %s", got)
	}
}

func TestBuildLayersCategoriesInOrder(t *testing.T) {
	cfg := config.Default().Geology
	gen := NewGenerator(1, cfg)
	strata := gen.Build(rand.New(rand.NewSource(7)))

	order := map[string]int{}
	for i, cat := range []config.StrataCategory{cfg.Soil, cfg.Sediment, cfg.Clay, cfg.Rock} {
		for _, m := range cat.Materials {
			order[m] = i
		}
	}
	last := 0
	for i := 0; i < strata.Len(); i++ {
		l := strata.Layer(i)
		cat, ok := order[l.Material]
		if !ok {
			t.Fatalf("unexpected material %s", l.Material)
		}
		if cat < last {
			t.Fatalf("layer %d (%s) breaks soil, sediment, clay, rock ordering", i, l.Material)
		}
		last = cat
		if l.Depth <= 0 {
			t.Fatalf("layer %d has non-positive depth", i)
		}
	}
	minLayers := cfg.Soil.MinLayers + cfg.Sediment.MinLayers + cfg.Clay.MinLayers + cfg.Rock.MinLayers
	if strata.Len() < minLayers {
		t.Fatalf("expected at least %d layers, got %d", minLayers, strata.Len())
	}
}

func TestDownwardsVisitsEveryLevelExactlyOnce(t *testing.T) {
	gen := NewGenerator(3, config.Default().Geology)
	rng := rand.New(rand.NewSource(11))
	var buf DepthBuffer
	for variant := 0; variant < 20; variant++ {
		strata := gen.Build(rng)
		for _, startY := range []int{0, 1, 7, 63, 255} {
			x, z := variant*37, -variant*53
			heights := strata.LayerHeights(x, startY, z, &buf)
			sum := 0
			for _, h := range heights {
				if h < 0 {
					t.Fatalf("negative layer height %d", h)
				}
				sum += h
			}
			if sum != startY+1 {
				t.Fatalf("layer heights sum to %d, want %d", sum, startY+1)
			}

			expectY := startY
			visited := 0
			completed := strata.Downwards(x, startY, z, &buf, func(y int, material string) bool {
				if y != expectY {
					t.Fatalf("expected y=%d, visited %d", expectY, y)
				}
				if material == "" {
					t.Fatal("visited an empty material")
				}
				expectY--
				visited++
				return true
			})
			if !completed || visited != startY+1 {
				t.Fatalf("walk visited %d levels (completed=%v), want %d", visited, completed, startY+1)
			}
		}
	}
}

func TestDownwardsStopsWhenVisitorRequests(t *testing.T) {
	strata := NewGenerator(5, config.Default().Geology).Build(rand.New(rand.NewSource(5)))
	var buf DepthBuffer
	visited := 0
	completed := strata.Downwards(0, 100, 0, &buf, func(int, string) bool {
		visited++
		return visited < 4
	})
	if completed || visited != 4 {
		t.Fatalf("expected early exit after 4 levels, visited %d completed=%v", visited, completed)
	}
}

func TestMaterialAtMatchesWalk(t *testing.T) {
	strata := NewGenerator(9, config.Default().Geology).Build(rand.New(rand.NewSource(9)))
	var walkBuf, lookupBuf DepthBuffer
	strata.Downwards(12, 80, 34, &walkBuf, func(y int, material string) bool {
		if got := strata.MaterialAt(12, 80, 34, y, &lookupBuf); got != material {
			t.Fatalf("MaterialAt(y=%d) = %s, walk saw %s", y, got, material)
		}
		return true
	})
}

func TestGeologySelectIsDeterministic(t *testing.T) {
	cfg := config.Default().Geology
	cfg.Variants = 10
	a := New(77, cfg)
	b := New(77, cfg)
	if a.Variants() != 10 {
		t.Fatalf("expected 10 variants, got %d", a.Variants())
	}
	distinct := map[*Strata]bool{}
	for x := 0; x < 20000; x += 1500 {
		for z := 0; z < 20000; z += 1700 {
			sa := a.Select(cell.BiomeGrassland, float64(x), float64(z))
			sb := b.Select(cell.BiomeGrassland, float64(x), float64(z))
			if sa.Len() != sb.Len() || sa.TotalDepth() != sb.TotalDepth() {
				t.Fatalf("selection diverged at (%d,%d)", x, z)
			}
			distinct[sa] = true
		}
	}
	if len(distinct) < 2 {
		t.Fatal("expected the selector to spread across variants")
	}
}
