package usecase

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"go.ngs.io/swath-geocoding/internal/adapter/store"
	"go.ngs.io/swath-geocoding/internal/domain"
	"go.ngs.io/swath-geocoding/internal/geocoding"
	"go.ngs.io/swath-geocoding/internal/metrics"
)

// ErrInvalidRequest marks errors caused by malformed requests.
var ErrInvalidRequest = errors.New("invalid request")

// PixelRequest asks for the geo positions of raster pixels
type PixelRequest struct {
	ProductID string
	Pixels    []domain.PixelPos
}

// GeoRequest asks for the pixel positions of geo positions
type GeoRequest struct {
	ProductID string
	Positions []domain.GeoPos
}

// SubsetRequest describes a raster crop of a product
type SubsetRequest struct {
	ProductID string
	Region    image.Rectangle // In pixels of the product raster
	StepX     int
	StepY     int
}

// GeoResult is the geo position of one pixel. Lat and Lon are null when the
// pixel could not be geocoded.
type GeoResult struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Valid bool     `json:"valid"`
}

// PixelResult is the pixel position of one geo position. X and Y are null
// when the position could not be located.
type PixelResult struct {
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Valid bool     `json:"valid"`
}

// ForwardResponse contains the results of a pixel to geo conversion
type ForwardResponse struct {
	ProductID    string      `json:"product_id"`
	Datum        string      `json:"datum"`
	Results      []GeoResult `json:"results"`
	InvalidCount int         `json:"invalid_count"`
}

// InverseResponse contains the results of a geo to pixel conversion
type InverseResponse struct {
	ProductID        string        `json:"product_id"`
	Datum            string        `json:"datum"`
	InverseAvailable bool          `json:"inverse_available"`
	Results          []PixelResult `json:"results"`
	InvalidCount     int           `json:"invalid_count"`
}

// GridInfo describes a tie-point grid
type GridInfo struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	OffsetX      float64 `json:"offset_x"`
	OffsetY      float64 `json:"offset_y"`
	SubSamplingX float64 `json:"sub_sampling_x"`
	SubSamplingY float64 `json:"sub_sampling_y"`
}

// ProductInfo describes the geocoding of a product
type ProductInfo struct {
	ProductID    string            `json:"product_id"`
	Datum        string            `json:"datum"`
	RasterWidth  int               `json:"raster_width"`
	RasterHeight int               `json:"raster_height"`
	TiePoints    GridInfo          `json:"tie_points"`
	Bounds       *geocoding.Bounds `json:"bounds,omitempty"`
	Normalized   bool              `json:"normalized"`
	Tiles        int               `json:"tiles"`
	CanGetGeoPos bool              `json:"can_get_geo_pos"`
	CanGetPixel  bool              `json:"can_get_pixel_pos"`
}

// GeoCodingUseCase converts positions using the geocodings of swath products
type GeoCodingUseCase struct {
	products  store.ProductSource
	maxPoints int
}

// NewGeoCodingUseCase creates a new geocoding use case. maxPoints bounds the
// number of positions per request.
func NewGeoCodingUseCase(products store.ProductSource, maxPoints int) *GeoCodingUseCase {
	return &GeoCodingUseCase{
		products:  products,
		maxPoints: maxPoints,
	}
}

// Validate checks if the request is valid
func (r *PixelRequest) Validate() error {
	if r.ProductID == "" {
		return fmt.Errorf("product_id must be provided")
	}
	if len(r.Pixels) == 0 {
		return fmt.Errorf("at least one pixel must be provided")
	}
	for i, p := range r.Pixels {
		if !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("pixel %d: coordinates must be finite numbers", i)
		}
	}
	return nil
}

// Validate checks if the request is valid
func (r *GeoRequest) Validate() error {
	if r.ProductID == "" {
		return fmt.Errorf("product_id must be provided")
	}
	if len(r.Positions) == 0 {
		return fmt.Errorf("at least one position must be provided")
	}
	for i, g := range r.Positions {
		if !finite(g.Lat) || !finite(g.Lon) {
			return fmt.Errorf("position %d: coordinates must be finite numbers", i)
		}
	}
	return nil
}

// Validate checks if the request is valid
func (r *SubsetRequest) Validate() error {
	if r.ProductID == "" {
		return fmt.Errorf("product_id must be provided")
	}
	if r.Region.Empty() {
		return fmt.Errorf("subset region must not be empty")
	}
	if r.StepX <= 0 || r.StepY <= 0 {
		return fmt.Errorf("subset steps must be positive")
	}
	return nil
}

// ListProducts returns the IDs of the available products
func (uc *GeoCodingUseCase) ListProducts() ([]string, error) {
	return uc.products.ListProducts()
}

// Forward converts pixel positions to geo positions
func (uc *GeoCodingUseCase) Forward(req PixelRequest) (*ForwardResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := uc.checkSize(len(req.Pixels)); err != nil {
		return nil, err
	}
	gc, err := uc.products.GeoCoding(req.ProductID)
	if err != nil {
		return nil, err
	}

	resp := &ForwardResponse{
		ProductID: req.ProductID,
		Datum:     gc.Datum().Name,
		Results:   make([]GeoResult, len(req.Pixels)),
	}
	for i, p := range req.Pixels {
		g := gc.GeoPos(p)
		valid := g.IsValid()
		metrics.ObserveLookup("forward", valid)

		r := GeoResult{X: p.X, Y: p.Y, Valid: valid}
		if valid {
			r.Lat, r.Lon = ptr(g.Lat), ptr(g.Lon)
		} else {
			resp.InvalidCount++
		}
		resp.Results[i] = r
	}
	return resp, nil
}

// Inverse converts geo positions to pixel positions. Positions outside the
// scene or outside the latitude/longitude ranges, and all positions of a
// product without inverse mapping, are reported as invalid.
func (uc *GeoCodingUseCase) Inverse(req GeoRequest) (*InverseResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := uc.checkSize(len(req.Positions)); err != nil {
		return nil, err
	}
	gc, err := uc.products.GeoCoding(req.ProductID)
	if err != nil {
		return nil, err
	}

	resp := &InverseResponse{
		ProductID:        req.ProductID,
		Datum:            gc.Datum().Name,
		InverseAvailable: gc.CanGetPixelPos(),
		Results:          make([]PixelResult, len(req.Positions)),
	}
	for i, g := range req.Positions {
		p := gc.PixelPos(g)
		valid := p.IsValid()
		metrics.ObserveLookup("inverse", valid)

		r := PixelResult{Lat: g.Lat, Lon: g.Lon, Valid: valid}
		if valid {
			r.X, r.Y = ptr(p.X), ptr(p.Y)
		} else {
			resp.InvalidCount++
		}
		resp.Results[i] = r
	}
	return resp, nil
}

// Info describes the geocoding of a product
func (uc *GeoCodingUseCase) Info(productID string) (*ProductInfo, error) {
	gc, err := uc.products.GeoCoding(productID)
	if err != nil {
		return nil, err
	}
	return describe(productID, gc), nil
}

// SubsetInfo builds the geocoding of a raster crop and describes it
func (uc *GeoCodingUseCase) SubsetInfo(req SubsetRequest) (*ProductInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	gc, err := uc.products.GeoCoding(req.ProductID)
	if err != nil {
		return nil, err
	}
	sub, err := gc.Subset(req.Region, req.StepX, req.StepY)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return describe(req.ProductID, sub), nil
}

// Footprint returns the outline of a product as a GeoJSON polygon feature.
// The ring follows the border of the tie-point grid. Longitudes are kept
// continuous along the ring, so a footprint crossing the antimeridian has
// longitudes beyond ±180.
func (uc *GeoCodingUseCase) Footprint(productID string) (*geojson.Feature, error) {
	gc, err := uc.products.GeoCoding(productID)
	if err != nil {
		return nil, err
	}

	ring := borderRing(gc)
	if len(ring) < 4 {
		return nil, fmt.Errorf("product %s has too few valid border tie points for a footprint", productID)
	}
	poly := orb.Polygon{ring}

	f := geojson.NewFeature(poly)
	f.BBox = geojson.NewBBox(poly.Bound())
	f.Properties["product_id"] = productID
	f.Properties["normalized"] = gc.Normalized()
	f.Properties["datum"] = gc.Datum().Name
	return f, nil
}

func (uc *GeoCodingUseCase) checkSize(n int) error {
	if uc.maxPoints > 0 && n > uc.maxPoints {
		return fmt.Errorf("%w: too many points: %d (max %d)", ErrInvalidRequest, n, uc.maxPoints)
	}
	return nil
}

func describe(productID string, gc *geocoding.TiePointGeoCoding) *ProductInfo {
	geom := gc.LatGrid().Geometry()
	w, h := gc.RasterSize()
	info := &ProductInfo{
		ProductID:    productID,
		Datum:        gc.Datum().Name,
		RasterWidth:  w,
		RasterHeight: h,
		TiePoints: GridInfo{
			Width:        geom.Width,
			Height:       geom.Height,
			OffsetX:      geom.OffsetX,
			OffsetY:      geom.OffsetY,
			SubSamplingX: geom.SubSamplingX,
			SubSamplingY: geom.SubSamplingY,
		},
		Normalized:   gc.Normalized(),
		Tiles:        len(gc.Approximations()),
		CanGetGeoPos: gc.CanGetGeoPos(),
		CanGetPixel:  gc.CanGetPixelPos(),
	}
	if b := gc.Bounds(); b.IsValid() {
		info.Bounds = &b
	}
	return info
}

// borderRing walks the tie-point grid border clockwise from the upper-left
// tie point and returns a closed ring. NaN tie points are skipped.
func borderRing(gc *geocoding.TiePointGeoCoding) orb.Ring {
	lat, lon := gc.LatGrid(), gc.LonGrid()
	geom := lat.Geometry()
	w, h := geom.Width, geom.Height

	idx := make([][2]int, 0, 2*(w+h))
	for i := 0; i < w; i++ {
		idx = append(idx, [2]int{i, 0})
	}
	for j := 1; j < h; j++ {
		idx = append(idx, [2]int{w - 1, j})
	}
	for i := w - 2; i >= 0; i-- {
		idx = append(idx, [2]int{i, h - 1})
	}
	for j := h - 2; j > 0; j-- {
		idx = append(idx, [2]int{0, j})
	}

	ring := make(orb.Ring, 0, len(idx)+1)
	for _, ij := range idx {
		la := float64(lat.At(ij[0], ij[1]))
		lo := float64(lon.At(ij[0], ij[1]))
		if math.IsNaN(la) || math.IsNaN(lo) {
			continue
		}
		if n := len(ring); n > 0 {
			prev := ring[n-1][0]
			for lo-prev > 180 {
				lo -= 360
			}
			for lo-prev < -180 {
				lo += 360
			}
		}
		ring = append(ring, orb.Point{lo, la})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ptr(v float64) *float64 {
	return &v
}
