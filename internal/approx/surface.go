package approx

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrTooFewPoints is returned when a family needs more samples than given.
	ErrTooFewPoints = errors.New("too few points for polynomial family")
	// ErrSingular is returned when the samples do not determine the coefficients.
	ErrSingular = errors.New("singular least-squares system")
	// ErrNoFit is returned when no family could be fitted at all.
	ErrNoFit = errors.New("no polynomial family could be fitted")
)

// maxCondition bounds the condition number of the equilibrated design matrix.
// Beyond it the samples are treated as degenerate (e.g., collinear).
const maxCondition = 1e12

// Point is a sample z = f(x, y).
type Point struct {
	X, Y, Z float64
}

// Surface is a fitted polynomial surface.
type Surface struct {
	Family       Family
	Coefficients []float64
	RMSE         float64 // Root-mean-square residual over the fitted samples.
	MaxError     float64 // Largest absolute residual over the fitted samples.
}

// Eval evaluates the surface at (x, y).
func (s Surface) Eval(x, y float64) float64 {
	d := s.Family.Degree()
	var xp, yp [5]float64
	xp[0], yp[0] = 1, 1
	for k := 1; k <= d; k++ {
		xp[k] = xp[k-1] * x
		yp[k] = yp[k-1] * y
	}
	var z float64
	for k, t := range familyTerms[s.Family] {
		z += s.Coefficients[k] * xp[t.i] * yp[t.j]
	}
	return z
}

// Fit fits a surface of the given family to points by linear least squares.
//
// Columns of the design matrix are scaled to unit maximum before the QR
// factorization, so the condition check reflects the geometry of the
// samples rather than the magnitude of high-order terms.
func Fit(family Family, points []Point) (Surface, error) {
	n := family.NumTerms()
	if len(points) < family.MinPoints() || len(points) < n {
		return Surface{}, fmt.Errorf("%s needs %d points, got %d: %w",
			family, family.MinPoints(), len(points), ErrTooFewPoints)
	}

	a := mat.NewDense(len(points), n, nil)
	b := mat.NewVecDense(len(points), nil)
	row := make([]float64, n)
	scale := make([]float64, n)
	for r, p := range points {
		family.basis(row, p.X, p.Y)
		a.SetRow(r, row)
		b.SetVec(r, p.Z)
		for c, v := range row {
			scale[c] = math.Max(scale[c], math.Abs(v))
		}
	}
	for c, s := range scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return Surface{}, fmt.Errorf("%s: term %d is degenerate: %w", family, c, ErrSingular)
		}
	}
	for r := 0; r < len(points); r++ {
		for c := 0; c < n; c++ {
			a.Set(r, c, a.At(r, c)/scale[c])
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	if cond := qr.Cond(); math.IsNaN(cond) || cond > maxCondition {
		return Surface{}, fmt.Errorf("%s: condition number %g: %w", family, cond, ErrSingular)
	}

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return Surface{}, fmt.Errorf("%s: %v: %w", family, err, ErrSingular)
	}

	coeffs := make([]float64, n)
	for c := range coeffs {
		coeffs[c] = x.AtVec(c) / scale[c]
	}

	s := Surface{Family: family, Coefficients: coeffs}
	s.RMSE, s.MaxError = s.residuals(points)
	return s, nil
}

// residuals returns the root-mean-square and maximum absolute residual.
func (s Surface) residuals(points []Point) (rmse, maxErr float64) {
	var sum float64
	for _, p := range points {
		e := math.Abs(s.Eval(p.X, p.Y) - p.Z)
		sum += e * e
		if e > maxErr {
			maxErr = e
		}
	}
	return math.Sqrt(sum / float64(len(points))), maxErr
}

// Best fits the families in order of complexity and returns the first one
// whose maximum absolute error is below maxError. When none reaches it,
// the attempted fit with the lowest RMSE is returned. Families lacking
// enough points or failing to fit are skipped.
func Best(points []Point, maxError float64) (Surface, error) {
	var best Surface
	found := false
	for _, f := range Families {
		if len(points) < f.MinPoints() {
			continue
		}
		s, err := Fit(f, points)
		if err != nil {
			continue
		}
		if s.MaxError < maxError {
			return s, nil
		}
		if !found || s.RMSE < best.RMSE {
			best = s
			found = true
		}
	}
	if !found {
		return Surface{}, fmt.Errorf("%d points: %w", len(points), ErrNoFit)
	}
	return best, nil
}
