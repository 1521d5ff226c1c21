// Package cluster turns session embeddings into a 2D cluster layout and an
// inter-cluster similarity graph.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/abpatramsft/hackernews-compare-tool/internal/cache"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
)

// ErrNotFound signals that no cluster results exist for the session yet.
var ErrNotFound = errors.New("no cluster results for session")

// ErrInsufficientData signals fewer than two stories, which is an expected
// edge case rather than a failure; callers report it as a soft "not enough
// data" outcome.
var ErrInsufficientData = errors.New("not enough stories for clustering")

// Reducer projects high-dimensional vectors into 2D.
type Reducer interface {
	Reduce(vecs [][]float32, neighbors int) ([][2]float64, error)
}

// Clusterer assigns each 2D point a label in [0, k).
type Clusterer interface {
	Cluster(points [][2]float64, k int) ([]int, error)
}

// palette is cycled over the distinct cluster labels in ascending order.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B739", "#52B788",
	"#E63946", "#A8DADC", "#457B9D", "#F1FAEE", "#E76F51",
}

// Info summarizes one cluster for display.
type Info struct {
	Size     int     `json:"size"`
	AvgScore float64 `json:"avg_score"`
	Label    string  `json:"label"`
}

// Data is the visualization payload: parallel arrays aligned with the
// session's story order.
type Data struct {
	X           []float64    `json:"x"`
	Y           []float64    `json:"y"`
	Labels      []int        `json:"cluster_labels"`
	StoryTexts  []string     `json:"story_texts"`
	StoryIDs    []string     `json:"story_ids"`
	StoryURLs   []string     `json:"story_urls"`
	Colors      []string     `json:"colors"`
	ClusterInfo map[int]Info `json:"cluster_info"`
}

// Result is everything Analyze computes for a session: the display payload
// plus the raw inputs needed later by the similarity graph.
type Result struct {
	Data       Data
	Labels     []int
	Embeddings [][]float32
	Stories    []hn.Story
}

// Builder orchestrates reduction, cluster-count selection, partitioning,
// and color assignment. Results are cached per session.
type Builder struct {
	reducer   Reducer
	clusterer Clusterer
	results   *cache.Cache[*Result]
}

// NewBuilder creates a Builder caching up to capacity session results.
func NewBuilder(r Reducer, c Clusterer, capacity int) *Builder {
	return &Builder{
		reducer:   r,
		clusterer: c,
		results:   cache.New[*Result](capacity),
	}
}

// ChooseK picks a cluster count from the sample count alone.
func ChooseK(n int) int {
	switch {
	case n < 5:
		return 1
	case n < 10:
		return 2
	case n < 20:
		return 3
	case n < 50:
		return 4
	case n < 100:
		return 5
	default:
		k := int(math.Round(math.Sqrt(float64(n) / 2)))
		if k < 5 {
			k = 5
		}
		if k > 10 {
			k = 10
		}
		return k
	}
}

// Analyze reduces the embeddings to 2D, partitions them into k clusters
// (auto-chosen when k <= 0), and assembles the visualization payload. The
// result is cached under sessionID, replacing any previous analysis.
func (b *Builder) Analyze(sessionID string, embeddings [][]float32, stories []hn.Story, k int) (*Result, error) {
	n := len(embeddings)
	if n != len(stories) {
		return nil, fmt.Errorf("embeddings (%d) and stories (%d) out of step", n, len(stories))
	}
	if n < 2 {
		return nil, ErrInsufficientData
	}

	neighbors := 15
	if n-1 < neighbors {
		neighbors = n - 1
	}
	points, err := b.reducer.Reduce(embeddings, neighbors)
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		k = ChooseK(n)
	}
	// At least 2 clusters, never more than points.
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	labels, err := b.clusterer.Cluster(points, k)
	if err != nil {
		return nil, err
	}

	distinct := map[int]bool{}
	for _, l := range labels {
		distinct[l] = true
	}
	order := make([]int, 0, len(distinct))
	for l := range distinct {
		order = append(order, l)
	}
	sort.Ints(order)
	colorMap := colorize(order)

	info := make(map[int]Info, len(distinct))
	for _, label := range order {
		var size int
		var total float64
		for i, l := range labels {
			if l == label {
				size++
				total += float64(stories[i].Score)
			}
		}
		avg := 0.0
		if size > 0 {
			avg = total / float64(size)
		}
		info[label] = Info{Size: size, AvgScore: avg, Label: fmt.Sprintf("Cluster %d", label)}
	}

	data := Data{
		X:           make([]float64, n),
		Y:           make([]float64, n),
		Labels:      labels,
		StoryTexts:  make([]string, n),
		StoryIDs:    make([]string, n),
		StoryURLs:   make([]string, n),
		Colors:      make([]string, n),
		ClusterInfo: info,
	}
	for i := range stories {
		data.X[i] = points[i][0]
		data.Y[i] = points[i][1]
		data.StoryTexts[i] = stories[i].Title
		data.StoryIDs[i] = stories[i].ID
		url := stories[i].URL
		if url == "" {
			url = stories[i].HNURL
		}
		data.StoryURLs[i] = url
		data.Colors[i] = colorMap[labels[i]]
	}

	result := &Result{
		Data:       data,
		Labels:     labels,
		Embeddings: embeddings,
		Stories:    stories,
	}
	b.results.Set(sessionID, result)
	return result, nil
}

// Get returns the cached analysis for a session, or ErrNotFound.
func (b *Builder) Get(sessionID string) (*Result, error) {
	if r, ok := b.results.Get(sessionID); ok {
		return r, nil
	}
	return nil, ErrNotFound
}

// colorize assigns each label a palette color by its position in the given
// slice, cycling past the palette's end. Labels need not be contiguous;
// callers pass them in ascending order.
func colorize(labels []int) map[int]string {
	m := make(map[int]string, len(labels))
	for i, label := range labels {
		m[label] = palette[i%len(palette)]
	}
	return m
}
