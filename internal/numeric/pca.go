package numeric

import (
	"fmt"
	"math"
)

// ReductionError indicates the dimensionality reduction step failed.
// Callers surface it directly rather than degrading.
type ReductionError struct {
	Op  string
	Err error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("reduction failed during %s: %v", e.Op, e.Err)
}

func (e *ReductionError) Unwrap() error { return e.Err }

// ReduceTo2D projects high-dimensional vectors onto their two principal
// components. The neighbors parameter tunes locality in neighbor-based
// reducers and is accepted for interface compatibility; PCA ignores it.
//
// Fewer than two points cannot define a projection, so they are mapped by
// taking the first two input dimensions directly.
func ReduceTo2D(vecs [][]float32, neighbors int) ([][2]float64, error) {
	_ = neighbors
	n := len(vecs)
	if n == 0 {
		return nil, &ReductionError{Op: "input validation", Err: fmt.Errorf("no vectors given")}
	}
	dims := len(vecs[0])
	for i, v := range vecs {
		if len(v) != dims {
			return nil, &ReductionError{Op: "input validation", Err: fmt.Errorf("vector %d has %d dims, want %d", i, len(v), dims)}
		}
	}
	if n < 2 {
		out := make([][2]float64, n)
		for i, v := range vecs {
			if dims > 0 {
				out[i][0] = float64(v[0])
			}
			if dims > 1 {
				out[i][1] = float64(v[1])
			}
		}
		return out, nil
	}

	// Center the data.
	mean := make([]float64, dims)
	for _, v := range vecs {
		for j, x := range v {
			mean[j] += float64(x)
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}
	centered := make([][]float64, n)
	for i, v := range vecs {
		row := make([]float64, dims)
		for j, x := range v {
			row[j] = float64(x) - mean[j]
		}
		centered[i] = row
	}

	pc1, err := powerIterate(centered, nil)
	if err != nil {
		return nil, &ReductionError{Op: "first component", Err: err}
	}
	pc2, err := powerIterate(centered, pc1)
	if err != nil {
		return nil, &ReductionError{Op: "second component", Err: err}
	}

	out := make([][2]float64, n)
	for i, row := range centered {
		out[i][0] = dotF64(row, pc1)
		out[i][1] = dotF64(row, pc2)
	}
	return out, nil
}

// powerIterate finds the dominant eigenvector of the covariance of the
// centered rows via power iteration, optionally deflating against a
// previously found component.
func powerIterate(rows [][]float64, deflate []float64) ([]float64, error) {
	dims := len(rows[0])
	v := make([]float64, dims)
	// Deterministic start: a fixed pseudo-random direction.
	for j := range v {
		v[j] = 1.0 / float64(j+1)
	}
	if deflate != nil {
		orthogonalize(v, deflate)
	}
	if normF64(v) == 0 {
		v[0] = 1
	}
	scaleToUnit(v)

	const iters = 100
	next := make([]float64, dims)
	proj := make([]float64, len(rows))
	for it := 0; it < iters; it++ {
		// next = Cov * v, computed as X^T (X v) without materializing Cov.
		for i, row := range rows {
			proj[i] = dotF64(row, v)
		}
		for j := range next {
			next[j] = 0
		}
		for i, row := range rows {
			p := proj[i]
			for j, x := range row {
				next[j] += x * p
			}
		}
		if deflate != nil {
			orthogonalize(next, deflate)
		}
		norm := normF64(next)
		if norm == 0 {
			// Degenerate direction (e.g. identical points); any unit vector
			// orthogonal to the deflation axis works.
			break
		}
		for j := range next {
			next[j] /= norm
		}
		copy(v, next)
	}
	if normF64(v) == 0 {
		return nil, fmt.Errorf("power iteration collapsed to zero vector")
	}
	scaleToUnit(v)
	return v, nil
}

func dotF64(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func normF64(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func orthogonalize(v, against []float64) {
	d := dotF64(v, against)
	for j := range v {
		v[j] -= d * against[j]
	}
}

func scaleToUnit(v []float64) {
	n := normF64(v)
	if n == 0 {
		return
	}
	for j := range v {
		v[j] /= n
	}
}
