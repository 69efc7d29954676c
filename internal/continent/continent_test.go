package continent

import (
	"testing"

	"worldgen/internal/cell"
	"worldgen/internal/config"
)

func newGenerator(t *testing.T, mutate func(*config.ContinentConfig)) *Generator {
	t.Helper()
	cfg := config.Default().Continent
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := New(2024, cfg)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestThresholdTieIsLand(t *testing.T) {
	g := newGenerator(t, nil)
	if g.Threshold() != 0.525 {
		t.Fatalf("expected default threshold 0.525, got %f", g.Threshold())
	}
	if !g.IsLand(0.525) {
		t.Fatal("a raw value equal to the threshold must classify as land")
	}
	if g.IsLand(0.5249999) {
		t.Fatal("a raw value below the threshold must classify as sea")
	}
}

func TestSampleIsDeterministic(t *testing.T) {
	a := newGenerator(t, nil)
	b := newGenerator(t, nil)
	for x := -5000; x <= 5000; x += 733 {
		for z := -5000; z <= 5000; z += 911 {
			sa := a.Sample(float64(x), float64(z))
			sb := b.Sample(float64(x), float64(z))
			if sa != sb {
				t.Fatalf("samples diverged at (%d,%d): %+v vs %+v", x, z, sa, sb)
			}
			if sa.Raw < 0 || sa.Raw > 1 || sa.Value < 0 || sa.Value > 1 {
				t.Fatalf("sample out of range at (%d,%d): %+v", x, z, sa)
			}
		}
	}
}

func TestFeaturePointIsInterior(t *testing.T) {
	g := newGenerator(t, func(c *config.ContinentConfig) {
		c.Jitter = 0
		c.WarpStrength = 0
	})
	s := g.Sample(1500, 1500)
	if s.CenterX != 1500 || s.CenterZ != 1500 {
		t.Fatalf("expected centred feature point, got (%f,%f)", s.CenterX, s.CenterZ)
	}
	if s.Raw != 1 || s.Value != 1 {
		t.Fatalf("expected full interior at the feature point, got %+v", s)
	}
	boundary := g.Sample(3000, 1500)
	if boundary.Raw != 0 || g.IsLand(boundary.Raw) {
		t.Fatalf("expected sea on the cell boundary, got %+v", boundary)
	}
}

func TestApplyWritesContinentFields(t *testing.T) {
	g := newGenerator(t, func(c *config.ContinentConfig) { c.Shape = "hexagon" })
	var c cell.Cell
	c.Reset()
	g.Apply(&c, 1234, -987)
	if err := c.CheckRanges(); err != nil {
		t.Fatalf("continent fields out of range: %v", err)
	}
	s := g.Sample(1234, -987)
	if c.ContinentEdge != cell.Clamp01(s.Raw) {
		t.Fatalf("edge mismatch: %f vs %f", c.ContinentEdge, s.Raw)
	}

	empty := cell.Empty()
	g.Apply(&empty, 0, 0)
	if empty.ContinentEdge != 0 {
		t.Fatal("absent cells must be skipped")
	}
}

func TestNewRejectsDegenerateConfig(t *testing.T) {
	cases := map[string]func(*config.ContinentConfig){
		"zero scale":       func(c *config.ContinentConfig) { c.Scale = 0 },
		"inverted falloff": func(c *config.ContinentConfig) { c.BaseFalloffMin, c.BaseFalloffMax = 0.8, 0.2 },
		"unknown shape":    func(c *config.ContinentConfig) { c.Shape = "triangle" },
	}
	for name, mutate := range cases {
		cfg := config.Default().Continent
		mutate(&cfg)
		if _, err := New(1, cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
