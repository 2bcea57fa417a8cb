package geocoding

import (
	"math"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
)

// normalizeLongitudes removes antimeridian jumps from a longitude grid.
//
// The grid is walked row by row. Each sample is compared with the previous
// sample of its row, or with the sample above for the first column, and is
// shifted by 360° when the two differ by more than 180°. When any sample was
// shifted west, the whole grid is moved up by 360° so that no value falls
// below -180°. Values of the result may exceed 180°.
//
// When no crossing is found, the input grid is returned as is together with
// false. NaN samples are copied through and never serve as a comparison base.
func normalizeLongitudes(lon *interp.TiePointGrid) (*interp.TiePointGrid, bool, error) {
	geom := lon.Geometry()
	w, h := geom.Width, geom.Height
	values := make([]float32, len(lon.Values()))
	copy(values, lon.Values())

	var westNormalized, eastNormalized bool
	for j := 0; j < h; j++ {
		base := math.NaN()
		if j > 0 {
			base = float64(values[(j-1)*w])
		}
		for i := 0; i < w; i++ {
			k := j*w + i
			v := float64(values[k])
			if math.IsNaN(v) {
				continue
			}
			if !math.IsNaN(base) {
				switch delta := v - base; {
				case delta > 180:
					v -= 360
					westNormalized = true
				case delta < -180:
					v += 360
					eastNormalized = true
				}
				values[k] = float32(v)
			}
			base = v
		}
	}

	if !westNormalized && !eastNormalized {
		return lon, false, nil
	}

	if westNormalized {
		for k, v := range values {
			if !math.IsNaN(float64(v)) {
				values[k] = v + 360
			}
		}
	}

	normalized, err := lon.WithValues(values, interp.DiscontNone)
	if err != nil {
		return nil, false, err
	}
	return normalized, true, nil
}
