package numeric

import (
	"fmt"
	"math"
	"math/rand"
)

// ClusteringError indicates the partitioning step failed. Callers surface it
// directly rather than degrading.
type ClusteringError struct {
	Op  string
	Err error
}

func (e *ClusteringError) Error() string {
	return fmt.Sprintf("clustering failed during %s: %v", e.Op, e.Err)
}

func (e *ClusteringError) Unwrap() error { return e.Err }

// kmeansSeed pins the initializer so repeat runs over the same vectors
// produce identical assignments.
const kmeansSeed = 42

// KMeans partitions vecs into k groups and returns a label in [0, k) for
// each input vector, index-aligned with vecs. k is clamped to len(vecs)
// before partitioning; k < 1 is an error.
func KMeans(vecs [][]float32, k int) ([]int, error) {
	n := len(vecs)
	if n == 0 {
		return nil, &ClusteringError{Op: "input validation", Err: fmt.Errorf("no vectors given")}
	}
	if k < 1 {
		return nil, &ClusteringError{Op: "input validation", Err: fmt.Errorf("k must be >= 1, got %d", k)}
	}
	if k > n {
		k = n
	}
	dims := len(vecs[0])
	for i, v := range vecs {
		if len(v) != dims {
			return nil, &ClusteringError{Op: "input validation", Err: fmt.Errorf("vector %d has %d dims, want %d", i, len(v), dims)}
		}
	}
	if k == 1 {
		return make([]int, n), nil
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids := initPlusPlus(vecs, k, rng)

	labels := make([]int, n)
	const maxIters = 100
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for i, v := range vecs {
			best, bestDist := 0, math.Inf(1)
			for c, cen := range centroids {
				d := sqDist(v, cen)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, v := range vecs {
			c := labels[i]
			counts[c]++
			for j, x := range v {
				sums[c][j] += float64(x)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an empty cluster from the point farthest from its
				// assigned centroid.
				idx := farthestPoint(vecs, centroids, labels)
				labels[idx] = c
				copy(centroids[c], vecs[idx])
				changed = true
				continue
			}
			for j := 0; j < dims; j++ {
				centroids[c][j] = float32(sums[c][j] / float64(counts[c]))
			}
		}
		if !changed {
			break
		}
	}
	return labels, nil
}

// initPlusPlus picks initial centroids with k-means++ weighting.
func initPlusPlus(vecs [][]float32, k int, rng *rand.Rand) [][]float32 {
	n := len(vecs)
	dims := len(vecs[0])
	centroids := make([][]float32, 0, k)

	first := make([]float32, dims)
	copy(first, vecs[rng.Intn(n)])
	centroids = append(centroids, first)

	dist := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, v := range vecs {
			d := math.Inf(1)
			for _, cen := range centroids {
				if sd := sqDist(v, cen); sd < d {
					d = sd
				}
			}
			dist[i] = d
			total += d
		}
		var idx int
		if total == 0 {
			idx = rng.Intn(n)
		} else {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target {
					idx = i
					break
				}
			}
		}
		next := make([]float32, dims)
		copy(next, vecs[idx])
		centroids = append(centroids, next)
	}
	return centroids
}

func farthestPoint(vecs, centroids [][]float32, labels []int) int {
	best, bestDist := 0, -1.0
	for i, v := range vecs {
		d := sqDist(v, centroids[labels[i]])
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func sqDist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}
