package geocoding

import (
	"math"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
)

// Bounds is the geographic extent of a tie-point grid in the normalized
// longitude frame.
//
// OverlapStart and OverlapEnd delimit the longitudes, in [-180, 180], that
// may match either the grid itself or its copy shifted by 360°. The range is
// empty (OverlapStart > OverlapEnd) unless the grid spans a full circle.
type Bounds struct {
	LatMin       float64 `json:"lat_min"`
	LatMax       float64 `json:"lat_max"`
	LonMin       float64 `json:"lon_min"`
	LonMax       float64 `json:"lon_max"`
	OverlapStart float64 `json:"overlap_start"`
	OverlapEnd   float64 `json:"overlap_end"`
}

// IsValid reports whether the bounds were computed from at least one sample.
func (b Bounds) IsValid() bool {
	return !math.IsNaN(b.LatMin) && !math.IsNaN(b.LonMin)
}

// LatSpan returns the latitude extent in degrees.
func (b Bounds) LatSpan() float64 { return b.LatMax - b.LatMin }

// LonSpan returns the longitude extent in degrees.
func (b Bounds) LonSpan() float64 { return b.LonMax - b.LonMin }

// InOverlap reports whether lon lies in the dateline overlap range.
func (b Bounds) InOverlap(lon float64) bool {
	return lon >= b.OverlapStart && lon <= b.OverlapEnd
}

// computeBounds scans the latitude grid and the normalized longitude grid.
// NaN samples are skipped; grids without any valid sample yield NaN bounds.
func computeBounds(lat, normLon *interp.TiePointGrid) Bounds {
	latMin, latMax := math.Inf(1), math.Inf(-1)
	for _, v := range lat.Values() {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		latMin = math.Min(latMin, f)
		latMax = math.Max(latMax, f)
	}
	lonMin, lonMax := math.Inf(1), math.Inf(-1)
	for _, v := range normLon.Values() {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		lonMin = math.Min(lonMin, f)
		lonMax = math.Max(lonMax, f)
	}

	if math.IsInf(latMin, 1) || math.IsInf(lonMin, 1) {
		nan := math.NaN()
		return Bounds{LatMin: nan, LatMax: nan, LonMin: nan, LonMax: nan, OverlapStart: nan, OverlapEnd: nan}
	}

	overlapStart := lonMin
	if overlapStart < -180 {
		overlapStart += 360
	}
	overlapEnd := lonMax
	if overlapEnd > 180 {
		overlapEnd -= 360
	}

	return Bounds{
		LatMin:       latMin,
		LatMax:       latMax,
		LonMin:       lonMin,
		LonMax:       lonMax,
		OverlapStart: overlapStart,
		OverlapEnd:   overlapEnd,
	}
}
