// Package numeric provides the numeric capabilities behind topic analysis:
// float32 vector math, a PCA-based 2D projection, and a seeded k-means
// partitioner. All routines are deterministic for a given input.
package numeric

import "math"

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged (its norm is undefined).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Cosine computes the cosine similarity between two vectors of equal length.
// Returns 0 when either vector has zero norm.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Mean computes the component-wise mean of the given vectors.
// Returns nil when vecs is empty.
func Mean(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dims := len(vecs[0])
	acc := make([]float64, dims)
	for _, v := range vecs {
		for i := 0; i < dims && i < len(v); i++ {
			acc[i] += float64(v[i])
		}
	}
	out := make([]float32, dims)
	n := float64(len(vecs))
	for i, x := range acc {
		out[i] = float32(x / n)
	}
	return out
}
