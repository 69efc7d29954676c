package world

import (
	"bytes"
	"context"
	"image/png"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"worldgen/internal/cell"
	"worldgen/internal/concurrent"
	"worldgen/internal/config"
	"worldgen/internal/continent"
	"worldgen/internal/heightmap"
	"worldgen/internal/noise"
)

// hashPopulator writes a cheap position hash so results are easy to predict.
type hashPopulator struct {
	calls   atomic.Int64
	panicAt float64
}

func (p *hashPopulator) Apply(c *cell.Cell, x, z float64) {
	p.calls.Add(1)
	if p.panicAt != 0 && x == p.panicAt {
		panic("populator exploded")
	}
	c.Value = float32(expectedValue(x, z))
	c.Continent = 1
	c.Terrain = cell.TerrainPlains
	c.Biome = cell.BiomeGrassland
}

func (p *hashPopulator) Filters() []heightmap.Filter {
	return []heightmap.Filter{heightmap.Steepness{Height: 256}, heightmap.Erosion{}}
}

func expectedValue(x, z float64) float64 {
	return 0.3 + 0.4*noise.Unit(noise.Hash3(int(x), 0, int(z)))
}

func quietLogger() *log.Logger { return log.New(&bytes.Buffer{}, "", 0) }

func newTestGenerator(t *testing.T, pop Populator, batching bool) *RegionGenerator {
	t.Helper()
	pool := concurrent.NewThreadPool(4, 64, quietLogger())
	t.Cleanup(pool.Shutdown)
	return NewRegionGenerator(pop, pool, Options{Size: 32, Border: 4, Batching: batching, BatchCount: 3}, quietLogger())
}

func TestBatchedMatchesSequential(t *testing.T) {
	batched, err := newTestGenerator(t, &hashPopulator{}, true).Generate(-1, 2)
	if err != nil {
		t.Fatalf("batched: %v", err)
	}
	sequential, err := newTestGenerator(t, &hashPopulator{}, false).Generate(-1, 2)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	if batched.Digest() != sequential.Digest() {
		t.Fatal("batched and sequential regions differ")
	}
}

func TestBatchedMatchesSequentialWithHeightmap(t *testing.T) {
	cfg := config.Default()
	cont, err := continent.New(cfg.World.Seed, cfg.Continent)
	if err != nil {
		t.Fatalf("continent: %v", err)
	}
	pop := heightmap.New(cfg.World.Seed, cfg, cont, nil)
	a, err := newTestGenerator(t, pop, true).Generate(3, -4)
	if err != nil {
		t.Fatalf("batched: %v", err)
	}
	b, err := newTestGenerator(t, pop, false).Generate(3, -4)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	if a.Digest() != b.Digest() {
		t.Fatal("batched and sequential heightmap regions differ")
	}
	a.Iterate(func(c *cell.Cell, dx, dz int) {
		if err := c.CheckRanges(); err != nil {
			t.Fatalf("cell (%d,%d): %v", dx, dz, err)
		}
	})
}

func TestRegionCoversEveryCellIncludingBorder(t *testing.T) {
	pop := &hashPopulator{}
	r, err := newTestGenerator(t, pop, true).Generate(0, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got, want := pop.calls.Load(), int64(40*40); got != want {
		t.Fatalf("expected %d populator calls, got %d", want, got)
	}
	border := r.Cell(-4, -4)
	if border == nil || float64(border.Value) != float64(float32(expectedValue(-4, -4))) {
		t.Fatalf("border cell not populated: %+v", border)
	}
	if r.Cell(-5, 0) != nil || r.Cell(36, 0) != nil {
		t.Fatal("expected nil beyond the border")
	}
}

func TestCellAtUsesFloorAddressing(t *testing.T) {
	gen := newTestGenerator(t, &hashPopulator{}, false)
	r, err := gen.Generate(-1, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := RegionFor(-1, 5, 32); got != (RegionCoord{X: -1, Z: 0}) {
		t.Fatalf("block (-1,5) maps to region %v", got)
	}
	if r.CellAt(-1, 5) != r.Cell(31, 5) {
		t.Fatal("CellAt(-1,5) should be interior cell (31,5)")
	}
	if r.CellAt(-33, 0) != r.Cell(-1, 0) {
		t.Fatal("CellAt(-33,0) should land in the west border")
	}
	if r.CellAt(100, 0) != nil {
		t.Fatal("expected nil for a block outside the region")
	}
	if got := ChunkForBlock(-1, -17); got != (ChunkCoord{X: -1, Z: -2}) {
		t.Fatalf("unexpected chunk for block (-1,-17): %v", got)
	}
}

func TestChunkGenerateMatchesFullRegion(t *testing.T) {
	gen := newTestGenerator(t, &hashPopulator{}, true)
	full, err := gen.Generate(2, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	partial := gen.NewRegion(2, 1)
	view, err := partial.Chunk(1, 0)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	visited := 0
	view.Generate(func(c *cell.Cell, dx, dz int) {
		visited++
		want := full.Cell(ChunkSize+dx, dz)
		if *c != *want {
			t.Fatalf("chunk cell (%d,%d) = %+v, want %+v", dx, dz, *c, *want)
		}
	})
	if visited != ChunkSize*ChunkSize {
		t.Fatalf("visited %d cells", visited)
	}
	if got := view.Coord(); got != (ChunkCoord{X: 5, Z: 2}) {
		t.Fatalf("unexpected global chunk %v", got)
	}
}

func TestAdjacentChunksMatchFullRegionInAnyOrder(t *testing.T) {
	pool := concurrent.NewThreadPool(2, 16, quietLogger())
	t.Cleanup(pool.Shutdown)
	for _, border := range []int{4, 0} {
		gen := NewRegionGenerator(&hashPopulator{}, pool, Options{Size: 32, Border: border, BatchCount: 2}, quietLogger())
		full, err := gen.Generate(-1, 0)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for _, order := range [][2]int{{0, 1}, {1, 0}} {
			partial := gen.NewRegion(-1, 0)
			for _, cx := range order {
				view, err := partial.Chunk(cx, 0)
				if err != nil {
					t.Fatalf("chunk: %v", err)
				}
				view.Generate(func(*cell.Cell, int, int) {})
			}
			for cx := 0; cx < 2; cx++ {
				view, _ := partial.Chunk(cx, 0)
				view.Iterate(func(c *cell.Cell, dx, dz int) {
					want := full.Cell(cx*ChunkSize+dx, dz)
					if *c != *want {
						t.Fatalf("border %d order %v: chunk %d cell (%d,%d) = %+v, want %+v",
							border, order, cx, dx, dz, *c, *want)
					}
				})
			}
		}
	}
}

func TestChunkGenerateLeavesCompleteRegionAlone(t *testing.T) {
	pop := &hashPopulator{}
	cache := NewRegionCache(newTestGenerator(t, pop, true), 2)
	ctx := context.Background()
	r, err := cache.Region(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Complete() {
		t.Fatal("generated region should be complete")
	}
	digest := r.Digest()
	calls := pop.calls.Load()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			view, err := cache.Chunk(ctx, ChunkCoord{X: i % 2, Z: i / 2})
			if err != nil {
				t.Errorf("chunk: %v", err)
				return
			}
			view.Generate(func(*cell.Cell, int, int) {})
		}(i)
		go func() {
			defer wg.Done()
			if got := r.Digest(); got != digest {
				t.Errorf("digest changed while chunks were visited")
			}
		}()
	}
	wg.Wait()
	if got := pop.calls.Load(); got != calls {
		t.Fatalf("chunk views of a cached region ran the populator %d times", got-calls)
	}
}

func TestIterateDoesNotRecompute(t *testing.T) {
	pop := &hashPopulator{}
	gen := newTestGenerator(t, pop, false)
	r := gen.NewRegion(0, 0)
	view, err := r.Chunk(0, 0)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	view.Generate(func(*cell.Cell, int, int) {})
	before := pop.calls.Load()
	sum := 0.0
	view.Iterate(func(c *cell.Cell, dx, dz int) { sum += float64(c.Value) })
	if pop.calls.Load() != before {
		t.Fatal("Iterate called the populator")
	}
	if sum == 0 {
		t.Fatal("Iterate saw unpopulated cells")
	}
	if _, err := r.Chunk(2, 0); err == nil {
		t.Fatal("expected error for a chunk outside the region")
	}
}

func TestZoomedRegionSamplesAroundCentre(t *testing.T) {
	gen := newTestGenerator(t, &hashPopulator{}, true)
	r, err := gen.Zoomed(100, 200, 4).Get()
	if err != nil {
		t.Fatalf("zoomed: %v", err)
	}
	x, z := r.WorldPos(r.Border(), r.Border())
	if x != 100-16*4 || z != 200-16*4 {
		t.Fatalf("first interior cell sampled at (%f,%f)", x, z)
	}
	if got, want := r.Cell(16, 16).Value, float32(expectedValue(100, 200)); got != want {
		t.Fatalf("centre value %f, want %f", got, want)
	}
	if _, err := gen.GenerateZoomed(0, 0, 0); err == nil {
		t.Fatal("expected error for zero zoom")
	}
}

func TestFutureRegionConcurrentGet(t *testing.T) {
	future := newTestGenerator(t, &hashPopulator{}, true).Region(4, 4)
	if future.IsDone() {
		t.Fatal("future should be lazy")
	}
	if future.Cancel() {
		t.Fatal("cancel is unsupported")
	}

	var wg sync.WaitGroup
	results := make([]*Region, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := future.Get()
			if err != nil {
				t.Errorf("get: %v", err)
			}
			results[i] = r
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("caller %d saw a different region", i)
		}
	}
	if !future.IsDone() {
		t.Fatal("future should be done after Get")
	}
}

func TestGenerateSurfacesBatchFailure(t *testing.T) {
	gen := newTestGenerator(t, &hashPopulator{panicAt: 7}, true)
	_, err := gen.Generate(0, 0)
	if err == nil {
		t.Fatal("expected generation error")
	}
	if !strings.Contains(err.Error(), "populator exploded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegionCacheSharesAndEvicts(t *testing.T) {
	pop := &hashPopulator{}
	cache := NewRegionCache(newTestGenerator(t, pop, true), 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	regions := make([]*Region, 6)
	for i := range regions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := cache.Region(ctx, 0, 0)
			if err != nil {
				t.Errorf("region: %v", err)
			}
			regions[i] = r
		}(i)
	}
	wg.Wait()
	for _, r := range regions {
		if r != regions[0] {
			t.Fatal("concurrent callers saw different regions")
		}
	}
	if got := pop.calls.Load(); got != 40*40 {
		t.Fatalf("expected one generation, populator ran %d times", got)
	}

	if _, err := cache.Region(ctx, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Region(ctx, 2, 0); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached regions, got %d", cache.Len())
	}
	again, err := cache.Region(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if again == regions[0] {
		t.Fatal("oldest region should have been evicted")
	}
	if again.Digest() != regions[0].Digest() {
		t.Fatal("regenerated region differs")
	}

	view, err := cache.Chunk(ctx, ChunkCoord{X: -1, Z: 3})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if got := view.Coord(); got != (ChunkCoord{X: -1, Z: 3}) {
		t.Fatalf("chunk view reports %v", got)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := cache.Region(cancelled, 9, 9); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r, err := newTestGenerator(t, &hashPopulator{}, true).Generate(-3, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, r); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, header, err := ReadSnapshot(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if header.RX != -3 || header.RZ != 7 || header.Size != 32 {
		t.Fatalf("unexpected header %+v", header)
	}
	if loaded.Digest() != r.Digest() {
		t.Fatal("digest changed across snapshot")
	}
	if *loaded.CellAt(-96, 224) != *r.CellAt(-96, 224) {
		t.Fatal("cell changed across snapshot")
	}

	if _, _, err := ReadSnapshot(bytes.NewReader(buf.Bytes()[:buf.Len()/2])); err == nil {
		t.Fatal("expected error for a truncated snapshot")
	}

	path := t.TempDir() + "/nested/" + SnapshotName(-3, 7)
	if err := SaveSnapshot(path, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	fromDisk, _, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fromDisk.Digest() != r.Digest() {
		t.Fatal("digest changed across disk snapshot")
	}
}

func TestSaveRegionPreview(t *testing.T) {
	r, err := newTestGenerator(t, &hashPopulator{}, false).Generate(1, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path, err := SaveRegionPreview(r, t.TempDir())
	if err != nil {
		t.Fatalf("save preview: %v", err)
	}
	if !strings.HasSuffix(path, "region_1_1.png") {
		t.Fatalf("unexpected preview path %s", path)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("unexpected preview size %v", b)
	}
	if _, err := SaveRegionPreview(r, ""); err == nil {
		t.Fatal("expected error for empty output directory")
	}
}
