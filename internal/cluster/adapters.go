package cluster

import "github.com/abpatramsft/hackernews-compare-tool/internal/numeric"

// PCAReducer implements Reducer with the built-in PCA projection.
type PCAReducer struct{}

func (PCAReducer) Reduce(vecs [][]float32, neighbors int) ([][2]float64, error) {
	return numeric.ReduceTo2D(vecs, neighbors)
}

// KMeansClusterer implements Clusterer with the built-in seeded k-means.
type KMeansClusterer struct{}

func (KMeansClusterer) Cluster(points [][2]float64, k int) ([]int, error) {
	vecs := make([][]float32, len(points))
	for i, p := range points {
		vecs[i] = []float32{float32(p[0]), float32(p[1])}
	}
	return numeric.KMeans(vecs, k)
}
