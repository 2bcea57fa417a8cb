package approx

import (
	"errors"
	"math"
	"testing"
)

func gridPoints(n int, f func(x, y float64) float64) []Point {
	points := make([]Point, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			x := -0.2 + 0.4*float64(i)/float64(n-1)
			y := -0.1 + 0.2*float64(j)/float64(n-1)
			points = append(points, Point{X: x, Y: y, Z: f(x, y)})
		}
	}
	return points
}

func TestFamilyTermCounts(t *testing.T) {
	tests := []struct {
		family    Family
		terms     int
		minPoints int
		degree    int
	}{
		{Linear, 3, 3, 1},
		{BiLinear, 4, 8, 1},
		{Quadratic, 6, 6, 2},
		{BiQuadratic, 9, 18, 2},
		{Cubic, 10, 10, 3},
		{BiCubic, 16, 32, 3},
		{Quartic, 15, 15, 4},
		{BiQuartic, 25, 50, 4},
	}

	for _, tt := range tests {
		t.Run(tt.family.String(), func(t *testing.T) {
			if got := tt.family.NumTerms(); got != tt.terms {
				t.Errorf("NumTerms() = %d, want %d", got, tt.terms)
			}
			if got := tt.family.MinPoints(); got != tt.minPoints {
				t.Errorf("MinPoints() = %d, want %d", got, tt.minPoints)
			}
			if got := tt.family.Degree(); got != tt.degree {
				t.Errorf("Degree() = %d, want %d", got, tt.degree)
			}
		})
	}
}

func TestFit_ExactPolynomials(t *testing.T) {
	tests := []struct {
		family Family
		f      func(x, y float64) float64
	}{
		{Linear, func(x, y float64) float64 { return 3 + 200*x - 50*y }},
		{BiLinear, func(x, y float64) float64 { return 1 + 2*x + 3*y + 400*x*y }},
		{Quadratic, func(x, y float64) float64 { return 10 + x + y + 300*x*x - 80*x*y + 20*y*y }},
		{Cubic, func(x, y float64) float64 { return 5 + 100*x + 1000*x*x*x - 500*x*y*y }},
	}

	for _, tt := range tests {
		t.Run(tt.family.String(), func(t *testing.T) {
			points := gridPoints(12, tt.f)
			s, err := Fit(tt.family, points)
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if s.MaxError > 1e-6 {
				t.Errorf("MaxError = %g, want ~0", s.MaxError)
			}
			x, y := 0.05, -0.03
			if got, want := s.Eval(x, y), tt.f(x, y); math.Abs(got-want) > 1e-6 {
				t.Errorf("Eval(%v, %v) = %v, want %v", x, y, got, want)
			}
		})
	}
}

func TestFit_TooFewPoints(t *testing.T) {
	points := gridPoints(2, func(x, y float64) float64 { return x })
	_, err := Fit(BiLinear, points)
	if !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("Fit(BiLinear, 4 points) error = %v, want ErrTooFewPoints", err)
	}
}

func TestFit_CollinearPointsAreSingular(t *testing.T) {
	points := make([]Point, 10)
	for i := range points {
		v := float64(i) * 0.01
		points[i] = Point{X: v, Y: 2 * v, Z: v}
	}
	_, err := Fit(Linear, points)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("Fit on collinear points error = %v, want ErrSingular", err)
	}
}

func TestBest_StopsAtFirstFamilyWithinTolerance(t *testing.T) {
	points := gridPoints(10, func(x, y float64) float64 { return 50 + 400*x + 100*y })
	s, err := Best(points, 0.5)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if s.Family != Linear {
		t.Errorf("Best family = %v, want linear", s.Family)
	}
}

func TestBest_EscalatesDegree(t *testing.T) {
	// Strong curvature: a linear fit misses by many units.
	points := gridPoints(10, func(x, y float64) float64 { return 2000*x*x + 100*y })
	s, err := Best(points, 0.5)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if s.Family != Quadratic {
		t.Errorf("Best family = %v, want quadratic", s.Family)
	}
	if s.MaxError >= 0.5 {
		t.Errorf("MaxError = %v, want < 0.5", s.MaxError)
	}
}

func TestBest_FallsBackToLowestRMSE(t *testing.T) {
	// Noise that no polynomial reproduces within 0.5.
	points := gridPoints(8, func(x, y float64) float64 {
		return 100 * math.Sin(97*x) * math.Cos(131*y)
	})
	s, err := Best(points, 0.5)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	for _, f := range Families {
		if len(points) < f.MinPoints() {
			continue
		}
		other, err := Fit(f, points)
		if err != nil {
			continue
		}
		if other.RMSE < s.RMSE-1e-9 {
			t.Errorf("family %v has RMSE %v below selected %v (%v)", f, other.RMSE, s.Family, s.RMSE)
		}
	}
}

func TestBest_NoFamilyFits(t *testing.T) {
	points := []Point{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 2}}
	if _, err := Best(points, 0.5); !errors.Is(err, ErrNoFit) {
		t.Fatalf("Best with 2 points error = %v, want ErrNoFit", err)
	}
}
