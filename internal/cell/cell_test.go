package cell

import (
	"math"
	"strings"
	"testing"
)

func TestResetRestoresMasks(t *testing.T) {
	var c Cell
	c.Value = 0.7
	c.Terrain = TerrainHills
	c.Reset()
	if c.Value != 0 || c.Terrain != TerrainNone {
		t.Fatalf("expected cleared fields, got %+v", c)
	}
	if c.Mask != 1 || c.BiomeMask != 1 || c.RegionMask != 1 || c.RiverMask != 1 {
		t.Fatalf("expected fully present masks, got %+v", c)
	}
	if err := c.CheckRanges(); err != nil {
		t.Fatalf("reset cell out of range: %v", err)
	}
}

func TestEmptyIsAbsent(t *testing.T) {
	empty := Empty()
	if !empty.IsAbsent() {
		t.Fatal("expected empty cell to be absent")
	}
	var c Cell
	if c.IsAbsent() {
		t.Fatal("zero cell must not be absent")
	}
	var nilCell *Cell
	if !nilCell.IsAbsent() {
		t.Fatal("nil cell must be absent")
	}
}

func TestCopyFromCopiesEveryField(t *testing.T) {
	src := Cell{Continent: 0.3, RiverMask: 0.2, Biome: BiomeDesert, Terrain: TerrainMountains, Sediment: 0.9}
	var dst Cell
	dst.CopyFrom(&src)
	if dst != src {
		t.Fatalf("copy mismatch: %+v vs %+v", dst, src)
	}
	src.Continent = 1
	if dst.Continent != 0.3 {
		t.Fatal("copy must not alias the source")
	}
}

func TestCheckRangesRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Cell)
		field  string
	}{
		{"negative erosion", func(c *Cell) { c.Erosion = -0.1 }, "erosion"},
		{"mask above one", func(c *Cell) { c.RiverMask = 1.5 }, "river_mask"},
		{"nan value", func(c *Cell) { c.Value = float32(math.NaN()) }, "value"},
		{"unknown biome", func(c *Cell) { c.Biome = biomeCount }, "biome"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Cell
			c.Reset()
			tc.mutate(&c)
			err := c.CheckRanges()
			if err == nil || !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("expected error naming %s, got %v", tc.field, err)
			}
		})
	}
}

func TestPoolReusesCellsAfterRelease(t *testing.T) {
	pool := NewPool(100)
	held := make([]*Resource, 0, 100)
	for i := 0; i < 100; i++ {
		res := pool.Acquire()
		res.Value().Value = 0.5
		held = append(held, res)
	}
	for _, res := range held {
		res.Release()
	}
	before := pool.Allocated()
	res := pool.Acquire()
	if pool.Allocated() != before {
		t.Fatal("expected acquire after release to reuse a cell")
	}
	if res.Value().Value != 0 || res.Value().Mask != 1 {
		t.Fatalf("expected a reset cell, got %+v", *res.Value())
	}
	res.Release()

	for i := 0; i < 150; i++ {
		pool.Acquire()
	}
}

func TestWithReleasesOnPanic(t *testing.T) {
	pool := NewPool(1)
	func() {
		defer func() { _ = recover() }()
		pool.With(func(c *Cell) {
			c.Value = 1
			panic("populate failed")
		})
	}()
	before := pool.Allocated()
	pool.With(func(c *Cell) {
		if c.Value != 0 {
			t.Fatalf("expected reset cell, got value %f", c.Value)
		}
	})
	if pool.Allocated() != before {
		t.Fatal("expected the panicking scope to return its cell to the pool")
	}
}

func TestClassifyCoversClimateGrid(t *testing.T) {
	cases := []struct {
		moisture, temperature float32
		want                  BiomeType
	}{
		{0.1, 0.1, BiomeTundra},
		{0.8, 0.1, BiomeTaiga},
		{0.95, 0.6, BiomeWetland},
		{0.1, 0.4, BiomeColdSteppe},
		{0.7, 0.4, BiomeTemperateForest},
		{0.1, 0.6, BiomeSteppe},
		{0.1, 0.9, BiomeDesert},
		{0.5, 0.9, BiomeSavanna},
		{0.8, 0.9, BiomeRainforest},
	}
	for _, tc := range cases {
		if got := Classify(tc.moisture, tc.temperature); got != tc.want {
			t.Fatalf("Classify(%f, %f) = %s, want %s", tc.moisture, tc.temperature, got, tc.want)
		}
	}
	if BiomeDesert.Group() != GroupArid || BiomeOcean.Group() != GroupAquatic {
		t.Fatal("unexpected biome grouping")
	}
}
