package geocoding

import (
	"fmt"
	"image"
	"math"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
)

// tileCount decides how many tiles the grid is split into and how they are
// arranged. The estimate of one tile per DegreesPerTile of the larger span is
// lowered until every tile holds at least MinPointsPerTile tie points.
func tileCount(geom interp.Geometry, bounds Bounds, cfg Config) (tilesX, tilesY int) {
	numTiles := int(math.Round(math.Max(bounds.LonSpan(), bounds.LatSpan()) / cfg.DegreesPerTile))
	numTiles = max(numTiles, 1)
	numPoints := geom.Width * geom.Height

	for numTiles > 1 {
		tx, ty := fitDimension(numTiles,
			float64(geom.Width)*geom.SubSamplingX,
			float64(geom.Height)*geom.SubSamplingY,
			geom.Width-1, geom.Height-1)
		if numPoints/(tx*ty) >= cfg.MinPointsPerTile {
			return tx, ty
		}
		numTiles--
	}
	return 1, 1
}

// fitDimension factors n into a tilesX x tilesY arrangement whose aspect
// ratio follows a width x height area. Each factor is limited to maxX and
// maxY respectively.
func fitDimension(n int, width, height float64, maxX, maxY int) (int, int) {
	tx := int(math.Round(math.Sqrt(float64(n) * width / height)))
	tx = min(max(tx, 1), max(maxX, 1))
	ty := int(math.Round(float64(n) / float64(tx)))
	ty = min(max(ty, 1), max(maxY, 1))
	return tx, ty
}

// subdivide splits a width x height index space into tilesX x tilesY
// rectangles, each grown by extraBorder on every side and clipped to the
// index space. Adjacent rectangles therefore share tie points.
func subdivide(width, height, tilesX, tilesY, extraBorder int) []image.Rectangle {
	rects := make([]image.Rectangle, 0, tilesX*tilesY)
	w := float64(width) / float64(tilesX)
	h := float64(height) / float64(tilesY)
	for ty := 0; ty < tilesY; ty++ {
		y1, y2 := tileSpan(ty, h, height, extraBorder)
		for tx := 0; tx < tilesX; tx++ {
			x1, x2 := tileSpan(tx, w, width, extraBorder)
			rects = append(rects, image.Rect(x1, y1, x2+1, y2+1))
		}
	}
	return rects
}

// tileSpan returns the inclusive index range of tile k of size step.
func tileSpan(k int, step float64, n, extraBorder int) (int, int) {
	lo := int(math.Floor(float64(k) * step))
	hi := int(math.Floor(float64(k+1)*step)) - 1
	hi = max(hi, lo)
	lo = max(lo-extraBorder, 0)
	hi = min(hi+extraBorder, n-1)
	return lo, hi
}

// buildApproximations fits one approximation per tile. A failure of any
// tile fails the whole table.
func buildApproximations(lat, normLon *interp.TiePointGrid, bounds Bounds, cfg Config) ([]Approximation, error) {
	if !bounds.IsValid() {
		return nil, fmt.Errorf("grid has no valid tie points: %w", ErrTiling)
	}

	geom := lat.Geometry()
	tilesX, tilesY := tileCount(geom, bounds, cfg)
	rects := subdivide(geom.Width, geom.Height, tilesX, tilesY, 1)

	approximations := make([]Approximation, 0, len(rects))
	for _, rect := range rects {
		a, err := fitApproximation(lat, normLon, rect, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTiling, err)
		}
		approximations = append(approximations, a)
	}
	return approximations, nil
}
