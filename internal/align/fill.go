package align

import (
	"gonum.org/v1/gonum/interp"
)

// holdForward carries the last defined value into every following undefined
// cell. Cells before the first defined value stay undefined. It returns the
// number of cells filled.
func holdForward(values []float64, valid []bool) int {
	filled := 0
	have := false
	var last float64
	for i := range values {
		if valid[i] {
			last = values[i]
			have = true
			continue
		}
		if have {
			values[i] = last
			valid[i] = true
			filled++
		}
	}
	return filled
}

// interpolateLinear fills undefined cells lying strictly between two defined
// cells with v0 + (v1-v0)*(x-x0)/(x1-x0), where xs is the row time. Nothing
// is extrapolated. It returns the number of cells filled.
func interpolateLinear(values []float64, valid []bool, xs []float64) (int, error) {
	first, last := -1, -1
	var px, py []float64
	for i, ok := range valid {
		if !ok {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		px = append(px, xs[i])
		py = append(py, values[i])
	}
	if len(px) < 2 || last-first+1 == len(px) {
		return 0, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(px, py); err != nil {
		return 0, err
	}
	filled := 0
	for i := first + 1; i < last; i++ {
		if valid[i] {
			continue
		}
		values[i] = pl.Predict(xs[i])
		valid[i] = true
		filled++
	}
	return filled, nil
}
