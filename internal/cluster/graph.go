package cluster

import (
	"errors"
	"sort"

	"github.com/abpatramsft/hackernews-compare-tool/internal/numeric"
)

// ErrMissingData signals that cached cluster results exist but lack the
// embeddings needed to build the graph.
var ErrMissingData = errors.New("cluster results missing embeddings")

// GraphNode is one cluster in the similarity graph.
type GraphNode struct {
	ClusterID int      `json:"cluster_id"`
	Size      int      `json:"size"`
	Color     string   `json:"color"`
	AvgScore  float64  `json:"avg_score"`
	StoryIDs  []string `json:"story_ids"`
}

// GraphEdge is an undirected similarity edge between two clusters. Each
// unordered pair appears once, with Source < Target.
type GraphEdge struct {
	Source     int     `json:"source"`
	Target     int     `json:"target"`
	Similarity float64 `json:"similarity"`
}

// Graph is the inter-cluster similarity view of a session's analysis.
type Graph struct {
	Nodes        []GraphNode `json:"nodes"`
	Edges        []GraphEdge `json:"edges"`
	ClusterCount int         `json:"cluster_count"`
}

// BuildGraph derives the cluster similarity graph for a previously analyzed
// session. Cluster centroids are means of the members' normalized
// embeddings; pairwise cosine similarity is remapped from [-1,1] to [0,1]
// via (sim+1)/2 and clamped. The remap is a compatibility contract with
// existing consumers and is kept even though it places unrelated clusters
// at 0.5.
func (b *Builder) BuildGraph(sessionID string) (*Graph, error) {
	result, err := b.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings) != len(result.Labels) {
		return nil, ErrMissingData
	}

	members := map[int][]int{}
	for i, label := range result.Labels {
		members[label] = append(members[label], i)
	}
	labels := make([]int, 0, len(members))
	for label := range members {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	colorMap := colorize(labels)

	centroids := make(map[int][]float32, len(labels))
	nodes := make([]GraphNode, 0, len(labels))
	for _, label := range labels {
		idx := members[label]
		if len(idx) == 0 {
			return nil, ErrMissingData
		}
		vecs := make([][]float32, len(idx))
		ids := make([]string, len(idx))
		var total float64
		for j, i := range idx {
			vecs[j] = numeric.Normalize(result.Embeddings[i])
			ids[j] = result.Stories[i].ID
			total += float64(result.Stories[i].Score)
		}
		centroids[label] = numeric.Mean(vecs)
		nodes = append(nodes, GraphNode{
			ClusterID: label,
			Size:      len(idx),
			Color:     colorMap[label],
			AvgScore:  total / float64(len(idx)),
			StoryIDs:  ids,
		})
	}

	edges := make([]GraphEdge, 0, len(labels)*(len(labels)-1)/2)
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			sim := numeric.Cosine(centroids[labels[i]], centroids[labels[j]])
			remapped := (sim + 1) / 2
			if remapped < 0 {
				remapped = 0
			}
			if remapped > 1 {
				remapped = 1
			}
			edges = append(edges, GraphEdge{
				Source:     labels[i],
				Target:     labels[j],
				Similarity: remapped,
			})
		}
	}

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		ClusterCount: len(labels),
	}, nil
}
