package interp

import "math"

// Cell holds the values at the four corners of a grid cell:
// V00 at (i, j), V10 at (i+1, j), V01 at (i, j+1) and V11 at (i+1, j+1).
type Cell struct {
	V00, V10, V01, V11 float64
}

// Interpolate evaluates the bilinear surface of the cell.
// Formula:
//
//	f(t,u) = (1-t)(1-u)V00 + t(1-u)V10 + (1-t)u V01 + tu V11
//
// where t and u are the fractional offsets along the i and j axes.
// Offsets outside [0, 1] extrapolate the surface linearly.
func (c Cell) Interpolate(t, u float64) float64 {
	return (1-t)*(1-u)*c.V00 +
		t*(1-u)*c.V10 +
		(1-t)*u*c.V01 +
		t*u*c.V11
}

// unwrap shifts the corner values by whole periods so that none of them is
// more than half a period away from V00.
func (c Cell) unwrap(period float64) Cell {
	half := period / 2
	shift := func(v float64) float64 {
		switch d := v - c.V00; {
		case d > half:
			return v - period
		case d < -half:
			return v + period
		}
		return v
	}
	return Cell{
		V00: c.V00,
		V10: shift(c.V10),
		V01: shift(c.V01),
		V11: shift(c.V11),
	}
}

// normalizeLon180 maps arbitrary degree longitudes into the (-180, 180] range.
func normalizeLon180(lon float64) float64 {
	lon = math.Mod(lon+180.0, 360.0)
	if lon <= 0 {
		lon += 360.0
	}
	return lon - 180.0
}

// normalizeLon360 maps arbitrary degree longitudes into the [0, 360) range.
func normalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon
}

// floorAndCrop returns floor(v) limited to [lo, hi].
func floorAndCrop(v float64, lo, hi int) int {
	if math.IsNaN(v) {
		return lo
	}
	i := math.Floor(v)
	if i < float64(lo) {
		return lo
	}
	if i > float64(hi) {
		return hi
	}
	return int(i)
}
