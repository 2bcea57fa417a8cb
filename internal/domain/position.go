package domain

import "math"

// GeoPos is a geodetic position in decimal degrees.
// A position with NaN in both fields is the invalid sentinel.
type GeoPos struct {
	Lat float64
	Lon float64
}

// PixelPos is a position in raster pixel coordinates.
// Pixel (0, 0) is the upper-left corner of the upper-left pixel, so the
// center of that pixel is (0.5, 0.5).
type PixelPos struct {
	X float64
	Y float64
}

// InvalidGeoPos returns the invalid geo position sentinel.
func InvalidGeoPos() GeoPos {
	return GeoPos{Lat: math.NaN(), Lon: math.NaN()}
}

// InvalidPixelPos returns the invalid pixel position sentinel.
func InvalidPixelPos() PixelPos {
	return PixelPos{X: math.NaN(), Y: math.NaN()}
}

// IsValid reports whether neither coordinate is NaN.
func (g GeoPos) IsValid() bool {
	return !math.IsNaN(g.Lat) && !math.IsNaN(g.Lon)
}

// IsValid reports whether neither coordinate is NaN.
func (p PixelPos) IsValid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y)
}

// Datum identifies the reference ellipsoid of a geocoding.
type Datum struct {
	Name              string
	SemiMajorM        float64 // Semi-major axis in meters.
	InverseFlattening float64
}

// WGS84 is the World Geodetic System 1984 datum.
var WGS84 = Datum{
	Name:              "WGS84",
	SemiMajorM:        6378137.0,
	InverseFlattening: 298.257223563,
}

// GeoCoding converts between pixel and geodetic positions for one raster.
//
// Implementations report which directions they support. Lookups outside the
// supported domain return the invalid sentinel instead of an error, since
// out-of-scene queries are routine for callers panning over imagery.
type GeoCoding interface {
	// CanGetGeoPos reports whether pixel to geo conversion is available.
	CanGetGeoPos() bool

	// CanGetPixelPos reports whether geo to pixel conversion is available.
	CanGetPixelPos() bool

	// GeoPos returns the geodetic position of a pixel position.
	GeoPos(p PixelPos) GeoPos

	// PixelPos returns the pixel position of a geodetic position.
	PixelPos(g GeoPos) PixelPos

	// Datum returns the reference datum of the geodetic positions.
	Datum() Datum
}
