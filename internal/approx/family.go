// Package approx fits bivariate polynomial surfaces z = f(x, y) to scattered points.
package approx

// Family is a bivariate polynomial family.
//
// Complete families hold every term x^i*y^j with i+j <= degree. "Bi" families
// hold every term with i <= degree and j <= degree.
type Family int

// Families in increasing order of complexity.
const (
	Linear Family = iota
	BiLinear
	Quadratic
	BiQuadratic
	Cubic
	BiCubic
	Quartic
	BiQuartic
)

// Families lists all families in the order they are tried by Best.
var Families = []Family{Linear, BiLinear, Quadratic, BiQuadratic, Cubic, BiCubic, Quartic, BiQuartic}

// term is the exponent pair of x^i * y^j.
type term struct {
	i, j int
}

var familyTerms = func() [][]term {
	all := make([][]term, len(Families))
	for _, f := range Families {
		d := f.Degree()
		var terms []term
		// Order terms by total degree so lower-order terms come first.
		for s := 0; s <= 2*d; s++ {
			for i := s; i >= 0; i-- {
				j := s - i
				if i > d || j > d {
					continue
				}
				if !f.IsBi() && s > d {
					continue
				}
				terms = append(terms, term{i: i, j: j})
			}
		}
		all[f] = terms
	}
	return all
}()

// String returns the family name.
func (f Family) String() string {
	switch f {
	case Linear:
		return "linear"
	case BiLinear:
		return "bilinear"
	case Quadratic:
		return "quadratic"
	case BiQuadratic:
		return "biquadratic"
	case Cubic:
		return "cubic"
	case BiCubic:
		return "bicubic"
	case Quartic:
		return "quartic"
	case BiQuartic:
		return "biquartic"
	default:
		return "unknown"
	}
}

// Degree returns the maximum exponent of a single variable.
func (f Family) Degree() int {
	return int(f)/2 + 1
}

// IsBi reports whether the family is a tensor-product ("bi") family.
func (f Family) IsBi() bool {
	return int(f)%2 == 1
}

// NumTerms returns the number of coefficients of the family.
func (f Family) NumTerms() int {
	return len(familyTerms[f])
}

// MinPoints returns the minimum number of samples required to fit the family.
func (f Family) MinPoints() int {
	if f.IsBi() {
		return 2 * f.NumTerms()
	}
	d := f.Degree()
	return (d + 2) * (d + 1) / 2
}

// basis writes the values of every term at (x, y) into dst.
func (f Family) basis(dst []float64, x, y float64) {
	d := f.Degree()
	var xp, yp [5]float64
	xp[0], yp[0] = 1, 1
	for k := 1; k <= d; k++ {
		xp[k] = xp[k-1] * x
		yp[k] = yp[k-1] * y
	}
	for k, t := range familyTerms[f] {
		dst[k] = xp[t.i] * yp[t.j]
	}
}
