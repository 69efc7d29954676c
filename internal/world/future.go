package world

import "sync/atomic"

type result struct {
	region *Region
	err    error
}

// future computes a region at most once per successful publication. Racing
// callers may each compute; the first to publish wins and every caller
// returns the published result.
type future struct {
	compute func() (*Region, error)
	value   atomic.Pointer[result]
}

func (f *future) Get() (*Region, error) {
	if res := f.value.Load(); res != nil {
		return res.region, res.err
	}
	region, err := f.compute()
	f.value.CompareAndSwap(nil, &result{region: region, err: err})
	res := f.value.Load()
	return res.region, res.err
}

func (f *future) IsDone() bool { return f.value.Load() != nil }

// Cancel is not supported; it always returns false.
func (f *future) Cancel() bool { return false }

// FutureRegion is a lazily generated region at a region coordinate.
type FutureRegion struct {
	future
	Coord RegionCoord
}

// FutureRegionZoom is a lazily generated zoomed region.
type FutureRegionZoom struct {
	future
	CenterX float64
	CenterZ float64
	Zoom    float64
}
