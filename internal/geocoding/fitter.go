package geocoding

import (
	"fmt"
	"image"
	"math"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
	"go.ngs.io/swath-geocoding/internal/approx"
	"go.ngs.io/swath-geocoding/internal/domain"
)

// Approximation maps geographic positions to pixel positions over one tile.
//
// FX and FY take rescaled coordinates (lat/90, (lon-CenterLon)/90), where
// lon is expressed in the normalized longitude frame of the grid.
type Approximation struct {
	FX        approx.Surface
	FY        approx.Surface
	CenterLat float64
	CenterLon float64
	// MaxSquareDistance is the squared radius, in degrees, around the center
	// within which the approximation is trusted.
	MaxSquareDistance float64
}

// squareDistance returns the squared distance in degrees from the center.
func (a *Approximation) squareDistance(lat, lon float64) float64 {
	dLat := lat - a.CenterLat
	dLon := lon - a.CenterLon
	return dLat*dLat + dLon*dLon
}

// pixelPos evaluates the approximation at a normalized-frame position.
func (a *Approximation) pixelPos(lat, lon float64) domain.PixelPos {
	x, y := rescale(lat, lon, a.CenterLon)
	return domain.PixelPos{X: a.FX.Eval(x, y), Y: a.FY.Eval(x, y)}
}

func rescale(lat, lon, centerLon float64) (float64, float64) {
	return lat / 90, (lon - centerLon) / 90
}

// warpPoint is a tie point with its position in both coordinate systems.
type warpPoint struct {
	lat, lon float64
	x, y     float64
}

// warpStrides returns the tie-point strides and sample counts along each
// axis such that at most maxPoints samples are taken from a w x h window.
// The stride grows on the axis with more samples.
func warpStrides(w, h, maxPoints int) (stepI, stepJ, numU, numV int) {
	stepI, stepJ = 1, 1
	numU, numV = w, h
	for numU*numV > maxPoints && (numU > 2 || numV > 2) {
		if numU >= numV && numU > 2 {
			stepI++
			numU = samplesAlong(w, stepI)
		} else {
			stepJ++
			numV = samplesAlong(h, stepJ)
		}
	}
	return stepI, stepJ, numU, numV
}

// samplesAlong returns the samples taken from n tie points with the given
// stride when the last tie point is always included.
func samplesAlong(n, step int) int {
	if n <= 1 {
		return n
	}
	return (n-2)/step + 2
}

// createWarpPoints selects the tie points of rect used for fitting. The
// last row and column of rect are always included. Points with a NaN
// coordinate are left out.
func createWarpPoints(lat, normLon *interp.TiePointGrid, rect image.Rectangle, maxPoints int) []warpPoint {
	stepI, stepJ, numU, numV := warpStrides(rect.Dx(), rect.Dy(), maxPoints)
	i2 := rect.Max.X - 1
	j2 := rect.Max.Y - 1

	points := make([]warpPoint, 0, numU*numV)
	for v := 0; v < numV; v++ {
		j := min(rect.Min.Y+v*stepJ, j2)
		for u := 0; u < numU; u++ {
			i := min(rect.Min.X+u*stepI, i2)
			la := float64(lat.At(i, j))
			lo := float64(normLon.At(i, j))
			if math.IsNaN(la) || math.IsNaN(lo) {
				continue
			}
			x, y := lat.PixelPos(i, j)
			points = append(points, warpPoint{lat: la, lon: lo, x: x, y: y})
		}
	}
	return points
}

// fitApproximation fits the pixel-x and pixel-y surfaces of one tile.
func fitApproximation(lat, normLon *interp.TiePointGrid, rect image.Rectangle, cfg Config) (Approximation, error) {
	points := createWarpPoints(lat, normLon, rect, cfg.MaxPointsPerTile)
	if len(points) == 0 {
		return Approximation{}, fmt.Errorf("tile %v has no valid tie points", rect)
	}

	var centerLat, centerLon float64
	for _, p := range points {
		centerLat += p.lat
		centerLon += p.lon
	}
	centerLat /= float64(len(points))
	centerLon /= float64(len(points))

	var maxSquareDistance float64
	for _, p := range points {
		dLat := p.lat - centerLat
		dLon := p.lon - centerLon
		maxSquareDistance = math.Max(maxSquareDistance, dLat*dLat+dLon*dLon)
	}

	xs := make([]approx.Point, len(points))
	ys := make([]approx.Point, len(points))
	for k, p := range points {
		u, v := rescale(p.lat, p.lon, centerLon)
		xs[k] = approx.Point{X: u, Y: v, Z: p.x}
		ys[k] = approx.Point{X: u, Y: v, Z: p.y}
	}

	fx, err := approx.Best(xs, cfg.MaxAbsError)
	if err != nil {
		return Approximation{}, fmt.Errorf("tile %v pixel x: %w", rect, err)
	}
	fy, err := approx.Best(ys, cfg.MaxAbsError)
	if err != nil {
		return Approximation{}, fmt.Errorf("tile %v pixel y: %w", rect, err)
	}

	return Approximation{
		FX:                fx,
		FY:                fy,
		CenterLat:         centerLat,
		CenterLon:         centerLon,
		MaxSquareDistance: 1.1 * maxSquareDistance,
	}, nil
}
