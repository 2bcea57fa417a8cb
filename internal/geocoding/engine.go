// Package geocoding maps between raster pixels and geographic positions of
// swath imagery located by tie-point grids.
//
// Pixel to geo lookups sample the latitude and longitude grids bilinearly.
// Geo to pixel lookups use tiles of polynomial surfaces fitted once when the
// geocoding is built. Grids crossing the antimeridian are unwrapped before
// fitting, and queries in the dateline overlap of full-circle swaths are
// retried against the longitude shifted by 360°.
package geocoding

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
	"go.ngs.io/swath-geocoding/internal/domain"
)

var (
	// ErrGridMismatch is returned when latitude and longitude grids differ in geometry.
	ErrGridMismatch = errors.New("latitude and longitude grids do not match")
	// ErrTiling is returned when the inverse approximation table cannot be built.
	ErrTiling = errors.New("cannot build approximation table")
)

// Config holds the tiling parameters of a geocoding.
type Config struct {
	// DegreesPerTile sets the initial tile count: one tile per this many
	// degrees of the larger geographic span.
	DegreesPerTile float64
	// MinPointsPerTile is the smallest average number of tie points per tile.
	MinPointsPerTile int
	// MaxPointsPerTile caps the tie points used to fit one tile.
	MaxPointsPerTile int
	// MaxAbsError is the pixel error below which a polynomial family is accepted.
	MaxAbsError float64

	// Logger receives tiling failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the standard tiling parameters.
func DefaultConfig() Config {
	return Config{
		DegreesPerTile:   10,
		MinPointsPerTile: 10,
		MaxPointsPerTile: 1000,
		MaxAbsError:      0.5,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if !(c.DegreesPerTile > 0) {
		return fmt.Errorf("degrees per tile must be positive, got %g", c.DegreesPerTile)
	}
	if c.MinPointsPerTile < 1 {
		return fmt.Errorf("min points per tile must be at least 1, got %d", c.MinPointsPerTile)
	}
	if c.MaxPointsPerTile < 4 {
		return fmt.Errorf("max points per tile must be at least 4, got %d", c.MaxPointsPerTile)
	}
	if !(c.MaxAbsError > 0) {
		return fmt.Errorf("max absolute error must be positive, got %g", c.MaxAbsError)
	}
	return nil
}

// Key identifies a geocoding by the grids it was built from.
// It is comparable and may be used as a map key.
type Key struct {
	lat, lon *interp.TiePointGrid
}

// TiePointGeoCoding is a geocoding backed by latitude and longitude
// tie-point grids. It is immutable once built and safe for concurrent use.
type TiePointGeoCoding struct {
	lat   *interp.TiePointGrid
	lon   *interp.TiePointGrid
	datum domain.Datum
	cfg   Config

	normLon        *interp.TiePointGrid
	normalized     bool
	bounds         Bounds
	approximations []Approximation
}

var _ domain.GeoCoding = (*TiePointGeoCoding)(nil)

// New builds a geocoding with the default configuration.
func New(lat, lon *interp.TiePointGrid, datum domain.Datum) (*TiePointGeoCoding, error) {
	return NewWithConfig(lat, lon, datum, DefaultConfig())
}

// NewWithConfig builds a geocoding over the given grids.
//
// Mismatching grids are rejected. A failure to fit the inverse approximation
// is not an error: it is logged and the geocoding only supports pixel to geo
// lookups.
func NewWithConfig(lat, lon *interp.TiePointGrid, datum domain.Datum, cfg Config) (*TiePointGeoCoding, error) {
	if lat == nil || lon == nil {
		return nil, fmt.Errorf("latitude and longitude grids are required")
	}
	if lg, og := lat.Geometry(), lon.Geometry(); lg != og {
		return nil, fmt.Errorf("%w: latitude %+v, longitude %+v", ErrGridMismatch, lg, og)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geocoding config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	normLon, normalized, err := normalizeLongitudes(lon)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize longitudes: %w", err)
	}
	bounds := computeBounds(lat, normLon)

	approximations, err := buildApproximations(lat, normLon, bounds, cfg)
	if err != nil {
		cfg.Logger.Warn("inverse geocoding disabled",
			"grid", lat.Name(),
			"error", err)
		approximations = nil
	}

	return &TiePointGeoCoding{
		lat:            lat,
		lon:            lon,
		datum:          datum,
		cfg:            cfg,
		normLon:        normLon,
		normalized:     normalized,
		bounds:         bounds,
		approximations: approximations,
	}, nil
}

// CanGetGeoPos reports whether pixel to geo lookups are supported. Always true.
func (gc *TiePointGeoCoding) CanGetGeoPos() bool { return true }

// CanGetPixelPos reports whether geo to pixel lookups are supported.
func (gc *TiePointGeoCoding) CanGetPixelPos() bool { return len(gc.approximations) > 0 }

// Datum returns the datum the grids refer to.
func (gc *TiePointGeoCoding) Datum() domain.Datum { return gc.datum }

// GeoPos returns the geographic position of a pixel position, or an invalid
// position when p lies outside the raster.
func (gc *TiePointGeoCoding) GeoPos(p domain.PixelPos) domain.GeoPos {
	geom := gc.lat.Geometry()
	if !p.IsValid() ||
		p.X < 0 || p.X > float64(geom.RasterWidth) ||
		p.Y < 0 || p.Y > float64(geom.RasterHeight) {
		return domain.InvalidGeoPos()
	}
	return domain.GeoPos{
		Lat: gc.lat.PixelAt(p.X, p.Y),
		Lon: gc.lon.PixelAt(p.X, p.Y),
	}
}

// PixelPos returns the pixel position of a geographic position, or an
// invalid position when no tile covers it.
func (gc *TiePointGeoCoding) PixelPos(g domain.GeoPos) domain.PixelPos {
	if !gc.CanGetPixelPos() || !g.IsValid() {
		return domain.InvalidPixelPos()
	}
	lat, lon := g.Lat, g.Lon
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.InvalidPixelPos()
	}

	b := gc.bounds
	if lon < b.LonMin {
		lon += 360
	}
	if lon < b.LonMin || lon > b.LonMax {
		return domain.InvalidPixelPos()
	}

	a, dist := gc.findApproximation(lat, lon)
	if b.InOverlap(lon) {
		shifted := lon + 360
		if alt, altDist := gc.findApproximation(lat, shifted); alt != nil && (a == nil || altDist < dist) {
			a, lon = alt, shifted
		}
	}
	if a == nil {
		return domain.InvalidPixelPos()
	}
	return a.pixelPos(lat, lon)
}

// findApproximation returns the tile closest to (lat, lon) among those
// whose valid radius covers it, with its squared distance.
func (gc *TiePointGeoCoding) findApproximation(lat, lon float64) (*Approximation, float64) {
	var best *Approximation
	bestDist := math.Inf(1)
	for k := range gc.approximations {
		a := &gc.approximations[k]
		d := a.squareDistance(lat, lon)
		if d <= a.MaxSquareDistance && d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, bestDist
}

// Equal reports whether other is a tie-point geocoding over the same grids.
func (gc *TiePointGeoCoding) Equal(other domain.GeoCoding) bool {
	o, ok := other.(*TiePointGeoCoding)
	return ok && o != nil && o.Key() == gc.Key()
}

// Key returns the identity of the grids the geocoding was built from.
func (gc *TiePointGeoCoding) Key() Key {
	return Key{lat: gc.lat, lon: gc.lon}
}

// Subset builds the geocoding of a raster crop. region is given in pixels
// of this geocoding's raster; stepX and stepY sub-sample the crop.
func (gc *TiePointGeoCoding) Subset(region image.Rectangle, stepX, stepY int) (*TiePointGeoCoding, error) {
	lat, err := gc.lat.Subset(region, stepX, stepY)
	if err != nil {
		return nil, fmt.Errorf("failed to subset latitudes: %w", err)
	}
	lon, err := gc.lon.Subset(region, stepX, stepY)
	if err != nil {
		return nil, fmt.Errorf("failed to subset longitudes: %w", err)
	}
	return NewWithConfig(lat, lon, gc.datum, gc.cfg)
}

// Bounds returns the geographic extent in the normalized longitude frame.
func (gc *TiePointGeoCoding) Bounds() Bounds { return gc.bounds }

// Normalized reports whether the longitude grid crossed the antimeridian.
func (gc *TiePointGeoCoding) Normalized() bool { return gc.normalized }

// Approximations returns a copy of the approximation table.
func (gc *TiePointGeoCoding) Approximations() []Approximation {
	return append([]Approximation(nil), gc.approximations...)
}

// LatGrid returns the latitude grid.
func (gc *TiePointGeoCoding) LatGrid() *interp.TiePointGrid { return gc.lat }

// LonGrid returns the original longitude grid.
func (gc *TiePointGeoCoding) LonGrid() *interp.TiePointGrid { return gc.lon }

// RasterSize returns the raster size in pixels.
func (gc *TiePointGeoCoding) RasterSize() (width, height int) {
	geom := gc.lat.Geometry()
	return geom.RasterWidth, geom.RasterHeight
}
