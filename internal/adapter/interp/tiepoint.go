// Package interp provides tie-point grids and their bilinear sampling.
package interp

import (
	"fmt"
	"image"
	"math"
)

// Discontinuity describes how values of a grid wrap around.
type Discontinuity int

const (
	// DiscontNone marks grids without wrapping values (e.g., latitudes).
	DiscontNone Discontinuity = iota
	// DiscontAt180 marks longitude grids in the (-180, 180] range.
	DiscontAt180
	// DiscontAt360 marks longitude grids in the [0, 360) range.
	DiscontAt360
)

// String returns the name of the discontinuity.
func (d Discontinuity) String() string {
	switch d {
	case DiscontAt180:
		return "at180"
	case DiscontAt360:
		return "at360"
	default:
		return "none"
	}
}

// Geometry locates the tie points of a grid in raster pixel coordinates.
// Tie point (i, j) sits at pixel (OffsetX + i*SubSamplingX, OffsetY + j*SubSamplingY).
type Geometry struct {
	Width        int // Number of tie points per row.
	Height       int // Number of tie-point rows.
	OffsetX      float64
	OffsetY      float64
	SubSamplingX float64 // Pixels between adjacent tie points along a row.
	SubSamplingY float64 // Pixels between adjacent tie-point rows.

	// Scene raster size in pixels. Zero values are derived from the tie-point extent.
	RasterWidth  int
	RasterHeight int
}

// Validate checks if the geometry is usable for bilinear sampling.
func (g Geometry) Validate() error {
	if g.Width < 2 {
		return fmt.Errorf("grid must have at least 2 tie points per row, got %d", g.Width)
	}
	if g.Height < 2 {
		return fmt.Errorf("grid must have at least 2 tie-point rows, got %d", g.Height)
	}
	if !(g.SubSamplingX > 0) || !(g.SubSamplingY > 0) {
		return fmt.Errorf("sub-sampling must be positive, got (%g, %g)", g.SubSamplingX, g.SubSamplingY)
	}
	if math.IsNaN(g.OffsetX) || math.IsNaN(g.OffsetY) {
		return fmt.Errorf("offset must be a number")
	}
	if g.RasterWidth < 0 || g.RasterHeight < 0 {
		return fmt.Errorf("raster size must not be negative, got %dx%d", g.RasterWidth, g.RasterHeight)
	}
	return nil
}

// withRasterSize fills in a derived raster size where none was given.
func (g Geometry) withRasterSize() Geometry {
	if g.RasterWidth == 0 {
		g.RasterWidth = int(math.Ceil(g.OffsetX + float64(g.Width-1)*g.SubSamplingX))
	}
	if g.RasterHeight == 0 {
		g.RasterHeight = int(math.Ceil(g.OffsetY + float64(g.Height-1)*g.SubSamplingY))
	}
	return g
}

// TiePointGrid is a read-only grid of values known at regularly spaced
// raster positions. Values between tie points are interpolated bilinearly.
type TiePointGrid struct {
	name    string
	geom    Geometry
	data    []float32
	discont Discontinuity
}

// NewTiePointGrid creates a grid over row-major tie-point data.
// The grid takes ownership of data; callers must not modify it afterwards.
func NewTiePointGrid(name string, geom Geometry, data []float32, discont Discontinuity) (*TiePointGrid, error) {
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tie-point grid %q: %w", name, err)
	}
	if len(data) != geom.Width*geom.Height {
		return nil, fmt.Errorf("invalid tie-point grid %q: %d values, expected %d (%dx%d)",
			name, len(data), geom.Width*geom.Height, geom.Width, geom.Height)
	}

	return &TiePointGrid{
		name:    name,
		geom:    geom.withRasterSize(),
		data:    data,
		discont: discont,
	}, nil
}

// Name returns the grid name (e.g., "latitude").
func (g *TiePointGrid) Name() string { return g.name }

// Geometry returns the grid geometry, including the derived raster size.
func (g *TiePointGrid) Geometry() Geometry { return g.geom }

// Discontinuity returns how the grid values wrap.
func (g *TiePointGrid) Discontinuity() Discontinuity { return g.discont }

// Values returns the raw row-major tie-point values. The slice is shared
// with the grid and must be treated as read-only.
func (g *TiePointGrid) Values() []float32 { return g.data }

// At returns the tie-point value at grid index (i, j).
func (g *TiePointGrid) At(i, j int) float32 {
	return g.data[j*g.geom.Width+i]
}

// PixelPos returns the raster position of tie point (i, j).
func (g *TiePointGrid) PixelPos(i, j int) (x, y float64) {
	return g.geom.OffsetX + float64(i)*g.geom.SubSamplingX,
		g.geom.OffsetY + float64(j)*g.geom.SubSamplingY
}

// PixelAt samples the grid at raster position (x, y).
//
// Positions beyond the outermost tie points are extrapolated from the
// nearest cell. Longitude grids are unwrapped before interpolation and the
// result is wrapped back into the grid's range.
func (g *TiePointGrid) PixelAt(x, y float64) float64 {
	fi := (x - g.geom.OffsetX) / g.geom.SubSamplingX
	fj := (y - g.geom.OffsetY) / g.geom.SubSamplingY
	i := floorAndCrop(fi, 0, g.geom.Width-2)
	j := floorAndCrop(fj, 0, g.geom.Height-2)

	w := g.geom.Width
	k := j*w + i
	cell := Cell{
		V00: float64(g.data[k]),
		V10: float64(g.data[k+1]),
		V01: float64(g.data[k+w]),
		V11: float64(g.data[k+w+1]),
	}
	t := fi - float64(i)
	u := fj - float64(j)

	switch g.discont {
	case DiscontAt180:
		return normalizeLon180(cell.unwrap(360).Interpolate(t, u))
	case DiscontAt360:
		return normalizeLon360(cell.unwrap(360).Interpolate(t, u))
	default:
		return cell.Interpolate(t, u)
	}
}

// WithValues returns a grid with the same name and geometry over new data.
func (g *TiePointGrid) WithValues(data []float32, discont Discontinuity) (*TiePointGrid, error) {
	return NewTiePointGrid(g.name, g.geom, data, discont)
}

// Subset creates the grid of a raster crop.
//
// region is the crop in pixel coordinates of this grid's raster, and
// stepX/stepY the integer sub-sampling applied to the cropped raster.
// Tie points needed to cover the crop are copied; pixel centers sit at 0.5.
func (g *TiePointGrid) Subset(region image.Rectangle, stepX, stepY int) (*TiePointGrid, error) {
	if stepX < 1 || stepY < 1 {
		return nil, fmt.Errorf("subset step must be at least 1, got (%d, %d)", stepX, stepY)
	}
	region = region.Intersect(image.Rect(0, 0, g.geom.RasterWidth, g.geom.RasterHeight))
	if region.Empty() {
		return nil, fmt.Errorf("subset region does not overlap the %dx%d raster", g.geom.RasterWidth, g.geom.RasterHeight)
	}

	offX, dataX, ssX := subsetAxis(g.geom.OffsetX, g.geom.SubSamplingX, region.Min.X, stepX)
	offY, dataY, ssY := subsetAxis(g.geom.OffsetY, g.geom.SubSamplingY, region.Min.Y, stepY)

	width := int(math.Ceil(float64(region.Dx())/g.geom.SubSamplingX)) + 2
	if dataX+width > g.geom.Width {
		width = g.geom.Width - dataX
	}
	height := int(math.Ceil(float64(region.Dy())/g.geom.SubSamplingY)) + 2
	if dataY+height > g.geom.Height {
		height = g.geom.Height - dataY
	}
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("subset region %v covers fewer than 2x2 tie points", region)
	}

	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		src := (dataY+y)*g.geom.Width + dataX
		copy(data[y*width:(y+1)*width], g.data[src:src+width])
	}

	geom := Geometry{
		Width:        width,
		Height:       height,
		OffsetX:      offX,
		OffsetY:      offY,
		SubSamplingX: ssX,
		SubSamplingY: ssY,
		RasterWidth:  (region.Dx() + stepX - 1) / stepX,
		RasterHeight: (region.Dy() + stepY - 1) / stepY,
	}
	return NewTiePointGrid(g.name, geom, data, g.discont)
}

// subsetAxis maps one axis of the geometry into a crop starting at pixel
// start with the given step. It returns the new offset, the index of the
// first tie point to keep and the new sub-sampling.
func subsetAxis(offset, subSampling float64, start, step int) (float64, int, float64) {
	const pixelCenter = 0.5
	ss := subSampling / float64(step)
	shifted := (offset-pixelCenter-float64(start))/float64(step) + pixelCenter

	// Skip the tie points lying more than one interval before the crop.
	newOffset := math.Mod(shifted, ss)
	first := 0
	if d := newOffset - shifted; d > 0 {
		first = int(math.Round(d / ss))
	} else {
		newOffset = shifted
	}
	return newOffset, first, ss
}
