package cluster

import (
	"errors"
	"fmt"
	"testing"

	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
)

// gridReducer projects points deterministically without real math.
type gridReducer struct{ err error }

func (r gridReducer) Reduce(vecs [][]float32, neighbors int) ([][2]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([][2]float64, len(vecs))
	for i := range vecs {
		out[i] = [2]float64{float64(i), float64(i % 3)}
	}
	return out, nil
}

// modClusterer labels points round-robin across k groups.
type modClusterer struct {
	err  error
	seen int
}

func (c *modClusterer) Cluster(points [][2]float64, k int) ([]int, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.seen = k
	labels := make([]int, len(points))
	for i := range points {
		labels[i] = i % k
	}
	return labels, nil
}

func makeStories(n int) ([]hn.Story, [][]float32) {
	stories := make([]hn.Story, n)
	embeddings := make([][]float32, n)
	for i := 0; i < n; i++ {
		stories[i] = hn.Story{
			ID:    fmt.Sprintf("s%d", i),
			Title: fmt.Sprintf("Story %d", i),
			HNURL: fmt.Sprintf("https://news.ycombinator.com/item?id=%d", i),
			Score: (i + 1) * 10,
		}
		vec := make([]float32, 8)
		vec[i%8] = 1
		embeddings[i] = vec
	}
	return stories, embeddings
}

func TestChooseK(t *testing.T) {
	cases := []struct{ n, want int }{
		{1, 1}, {4, 1},
		{5, 2}, {7, 2}, {9, 2},
		{10, 3}, {15, 3}, {19, 3},
		{20, 4}, {35, 4}, {49, 4},
		{50, 5}, {80, 5}, {99, 5},
		{100, 7}, {200, 10}, {1000, 10},
	}
	for _, c := range cases {
		if got := ChooseK(c.n); got != c.want {
			t.Errorf("ChooseK(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestColorizeCycles(t *testing.T) {
	labels := make([]int, 17)
	for i := range labels {
		labels[i] = i
	}
	m := colorize(labels)
	if len(m) != 17 {
		t.Fatalf("expected 17 entries, got %d", len(m))
	}
	if m[0] != "#FF6B6B" || m[1] != "#4ECDC4" {
		t.Fatalf("palette order broken: %v %v", m[0], m[1])
	}
	if m[15] != m[0] || m[16] != m[1] {
		t.Fatalf("expected cycling past 15 colors: %v %v", m[15], m[16])
	}
}

func TestColorizeNonContiguousLabels(t *testing.T) {
	m := colorize([]int{0, 2, 5})
	if len(m) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m))
	}
	if m[0] != "#FF6B6B" || m[2] != "#4ECDC4" || m[5] != "#45B7D1" {
		t.Fatalf("gapped labels not assigned in order: %v", m)
	}
}

func TestAnalyze(t *testing.T) {
	stories, embeddings := makeStories(6)
	mc := &modClusterer{}
	b := NewBuilder(gridReducer{}, mc, 8)

	result, err := b.Analyze("sess", embeddings, stories, 0)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	d := result.Data
	if len(d.X) != 6 || len(d.Y) != 6 || len(d.Labels) != 6 || len(d.Colors) != 6 {
		t.Fatalf("parallel arrays misaligned: %+v", d)
	}
	// 6 stories auto-select 2 clusters.
	if mc.seen != 2 {
		t.Fatalf("expected k=2, clusterer saw %d", mc.seen)
	}
	if len(d.ClusterInfo) != 2 {
		t.Fatalf("expected 2 cluster infos, got %d", len(d.ClusterInfo))
	}
	info := d.ClusterInfo[0]
	if info.Size != 3 {
		t.Fatalf("cluster 0 size: %d", info.Size)
	}
	// Stories 0,2,4 have scores 10,30,50.
	if info.AvgScore != 30 {
		t.Fatalf("cluster 0 avg score: %f", info.AvgScore)
	}
	if d.StoryURLs[0] != stories[0].HNURL {
		t.Fatalf("story without URL should fall back to HN URL, got %q", d.StoryURLs[0])
	}

	// Result is retrievable afterwards.
	cached, err := b.Get("sess")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cached != result {
		t.Fatal("expected cached pointer identity")
	}
}

func TestAnalyzeExplicitK(t *testing.T) {
	stories, embeddings := makeStories(10)
	mc := &modClusterer{}
	b := NewBuilder(gridReducer{}, mc, 8)
	if _, err := b.Analyze("sess", embeddings, stories, 4); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if mc.seen != 4 {
		t.Fatalf("expected explicit k=4, got %d", mc.seen)
	}

	// k above N clamps to N; k below 2 raises to 2.
	small, smallEmb := makeStories(3)
	if _, err := b.Analyze("sess2", smallEmb, small, 99); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if mc.seen != 3 {
		t.Fatalf("expected clamp to N=3, got %d", mc.seen)
	}
	if _, err := b.Analyze("sess3", smallEmb, small, 1); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if mc.seen != 2 {
		t.Fatalf("expected floor of 2, got %d", mc.seen)
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	stories, embeddings := makeStories(1)
	b := NewBuilder(gridReducer{}, &modClusterer{}, 8)
	_, err := b.Analyze("sess", embeddings, stories, 0)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyzeSurfacesNumericErrors(t *testing.T) {
	stories, embeddings := makeStories(5)
	reduceErr := errors.New("projection blew up")
	b := NewBuilder(gridReducer{err: reduceErr}, &modClusterer{}, 8)
	if _, err := b.Analyze("sess", embeddings, stories, 0); !errors.Is(err, reduceErr) {
		t.Fatalf("reducer error must surface, got %v", err)
	}

	clusterErr := errors.New("partitioning blew up")
	b = NewBuilder(gridReducer{}, &modClusterer{err: clusterErr}, 8)
	if _, err := b.Analyze("sess", embeddings, stories, 0); !errors.Is(err, clusterErr) {
		t.Fatalf("clusterer error must surface, got %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	b := NewBuilder(gridReducer{}, &modClusterer{}, 8)
	if _, err := b.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Identical embeddings can leave k-means with coincident centroids and
// gaps in the label values; every story and graph node must still get a
// palette color.
func TestAnalyzeDuplicateEmbeddingsColors(t *testing.T) {
	stories := make([]hn.Story, 4)
	embeddings := make([][]float32, 4)
	for i := range stories {
		stories[i] = hn.Story{ID: fmt.Sprintf("s%d", i), Title: "Same story", Score: 10}
		embeddings[i] = []float32{1, 0, 0, 0}
	}

	b := NewBuilder(PCAReducer{}, KMeansClusterer{}, 8)
	result, err := b.Analyze("sess", embeddings, stories, 3)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for i, c := range result.Data.Colors {
		if c == "" {
			t.Fatalf("story %d (label %d) got empty color", i, result.Labels[i])
		}
	}
	for label, info := range result.Data.ClusterInfo {
		if info.Size == 0 {
			t.Fatalf("cluster %d has no members", label)
		}
	}

	graph, err := b.BuildGraph("sess")
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	for _, node := range graph.Nodes {
		if node.Color == "" {
			t.Fatalf("graph node for cluster %d has empty color", node.ClusterID)
		}
	}
}

func TestAnalyzeRealAdapters(t *testing.T) {
	stories, embeddings := makeStories(8)
	b := NewBuilder(PCAReducer{}, KMeansClusterer{}, 8)
	result, err := b.Analyze("sess", embeddings, stories, 0)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(result.Labels) != 8 {
		t.Fatalf("expected 8 labels, got %d", len(result.Labels))
	}
	for _, l := range result.Labels {
		if l < 0 || l >= 2 {
			t.Fatalf("label out of range: %d", l)
		}
	}
}
