// Package concept builds a per-cluster concept tree: one leaf node per
// story, extracted concepts above them, and successive aggregation layers
// up to a single synthesized root.
package concept

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abpatramsft/hackernews-compare-tool/internal/cache"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
	"github.com/abpatramsft/hackernews-compare-tool/internal/oracle"
)

// Node is one node of the concept tree. Layer 0 nodes carry the article
// back-reference; higher layers carry only a label.
type Node struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Layer        int      `json:"layer"`
	Children     []string `json:"children"`
	Parent       string   `json:"parent,omitempty"`
	ArticleID    string   `json:"article_id,omitempty"`
	ArticleTitle string   `json:"article_title,omitempty"`
	ArticleURL   string   `json:"article_url,omitempty"`
	ArticleHNURL string   `json:"article_hn_url,omitempty"`
}

// Tree is the complete built graph for one cluster.
type Tree struct {
	Nodes      []Node `json:"nodes"`
	RootID     string `json:"root_id"`
	LayerCount int    `json:"layer_count"`
}

// maxAggregationRounds caps Step 2 against a misbehaving oracle. The loop
// halves the concept count each round, so legitimate inputs finish in
// log2(n) rounds, far below this bound.
const maxAggregationRounds = 32

// Builder constructs and caches concept trees. A tree is built once per
// (session, cluster) pair; repeat calls return the cached tree without
// touching the oracle.
type Builder struct {
	oracle      oracle.Oracle
	trees       *cache.Cache[*Tree]
	concurrency int
}

// NewBuilder creates a Builder. concurrency bounds the number of in-flight
// extraction calls during Step 1.
func NewBuilder(o oracle.Oracle, capacity, concurrency int) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		oracle:      o,
		trees:       cache.New[*Tree](capacity),
		concurrency: concurrency,
	}
}

// maxStories bounds how many cluster members feed a tree; only the
// highest-scored make the cut.
const maxStories = 50

// Build returns the concept tree for the given cluster, computing it on the
// first call. The stories are the cluster's members, trimmed to the top 50
// by score; an empty cluster yields an empty tree without invoking the
// oracle.
func (b *Builder) Build(ctx context.Context, sessionID string, clusterID int, stories []hn.Story) (*Tree, error) {
	stories = topByScore(stories, maxStories)
	key := fmt.Sprintf("%s:%d", sessionID, clusterID)
	return b.trees.GetOrCompute(key, func() (*Tree, error) {
		return b.build(ctx, stories)
	})
}

// topByScore returns up to max stories sorted by score descending, leaving
// the input slice untouched.
func topByScore(stories []hn.Story, max int) []hn.Story {
	out := make([]hn.Story, len(stories))
	copy(out, stories)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func (b *Builder) build(ctx context.Context, stories []hn.Story) (*Tree, error) {
	if len(stories) == 0 {
		return &Tree{Nodes: []Node{}, RootID: "", LayerCount: 0}, nil
	}

	nodes := map[string]*Node{}

	// Step 0: one leaf node per story.
	for _, story := range stories {
		id := articleNodeID(story.ID)
		nodes[id] = &Node{
			ID:           id,
			Label:        truncate(story.Title, 60),
			Layer:        0,
			Children:     []string{},
			ArticleID:    story.ID,
			ArticleTitle: story.Title,
			ArticleURL:   story.URL,
			ArticleHNURL: story.HNURL,
		}
	}

	// Step 1: extract concepts per story, concurrently. Identical
	// normalized labels share one node; the label check and node creation
	// happen under one lock so the first writer wins.
	var mu sync.Mutex
	labelToID := map[string]string{}
	var layer1IDs []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, story := range stories {
		story := story
		g.Go(func() error {
			concepts, err := b.oracle.Extract(gctx, story.Content(), story.Title)
			if err != nil || len(concepts) == 0 {
				// Extraction never aborts the build; the title stands in.
				concepts = []string{truncate(strings.ToLower(story.Title), 50)}
			}

			mu.Lock()
			defer mu.Unlock()
			articleID := articleNodeID(story.ID)
			for _, concept := range concepts {
				label := normalizeLabel(concept)
				if label == "" {
					continue
				}
				if conceptID, ok := labelToID[label]; ok {
					existing := nodes[conceptID]
					if !contains(existing.Children, articleID) {
						existing.Children = append(existing.Children, articleID)
					}
					nodes[articleID].Parent = conceptID
					continue
				}
				conceptID := conceptNodeID(1, label, 50)
				nodes[conceptID] = &Node{
					ID:       conceptID,
					Label:    label,
					Layer:    1,
					Children: []string{articleID},
				}
				nodes[articleID].Parent = conceptID
				labelToID[label] = conceptID
				layer1IDs = append(layer1IDs, conceptID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(layer1IDs) == 0 {
		return &Tree{Nodes: []Node{}, RootID: "", LayerCount: 0}, nil
	}
	sort.Strings(layer1IDs)

	// Step 2: aggregate upward until one concept remains. Each round calls
	// the oracle for broader themes, then for the child-to-theme mapping;
	// both calls degrade to deterministic fallbacks on failure.
	currentLayer := 1
	currentIDs := layer1IDs
	for rounds := 0; len(currentIDs) > 1 && rounds < maxAggregationRounds; rounds++ {
		currentLayer++
		labels := labelsOf(nodes, currentIDs)
		target := len(labels) / 2
		if target < 1 {
			target = 1
		}

		broader, err := b.oracle.Aggregate(ctx, labels)
		if err != nil || len(broader) == 0 {
			broader = labels[:target]
		}
		if len(broader) >= len(labels) {
			if len(labels) <= 2 {
				currentLayer--
				break
			}
			broader = broader[:target]
		}

		mapping, err := b.oracle.MapToBroader(ctx, labels, broader)
		if err != nil {
			mapping = nil
		}
		assignment := assignToBroader(labels, broader, mapping)

		// Broader labels that collide after normalization (or ID
		// truncation) share one node within the round.
		newIDs := make([]string, 0, len(broader))
		seen := map[string]bool{}
		for bi, broaderLabel := range broader {
			label := normalizeLabel(broaderLabel)
			conceptID := conceptNodeID(currentLayer, label, 30)
			childIDs := make([]string, 0, len(assignment[bi]))
			for _, ci := range assignment[bi] {
				childIDs = append(childIDs, currentIDs[ci])
			}
			if seen[conceptID] {
				nodes[conceptID].Children = append(nodes[conceptID].Children, childIDs...)
			} else {
				seen[conceptID] = true
				nodes[conceptID] = &Node{
					ID:       conceptID,
					Label:    label,
					Layer:    currentLayer,
					Children: childIDs,
				}
				newIDs = append(newIDs, conceptID)
			}
			for _, childID := range childIDs {
				nodes[childID].Parent = conceptID
			}
		}
		currentIDs = newIDs
	}

	// Step 3: synthesize the root over whatever concepts remain.
	finalLabels := labelsOf(nodes, currentIDs)
	rootLabel, err := b.oracle.SynthesizeRoot(ctx, finalLabels)
	if err != nil || strings.TrimSpace(rootLabel) == "" {
		joined := finalLabels
		if len(joined) > 3 {
			joined = joined[:3]
		}
		rootLabel = strings.Join(joined, " / ")
	}
	rootLayer := currentLayer + 1
	root := &Node{
		ID:       "root",
		Label:    normalizeLabel(rootLabel),
		Layer:    rootLayer,
		Children: currentIDs,
	}
	nodes["root"] = root
	for _, childID := range currentIDs {
		nodes[childID].Parent = "root"
	}

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].ID < out[j].ID
	})

	return &Tree{
		Nodes:      out,
		RootID:     "root",
		LayerCount: rootLayer + 1,
	}, nil
}

// assignToBroader maps each label index to a broader label index: first by
// the oracle's mapping with substring matching in either direction, then
// round-robin for anything unmatched so every concept gets a parent.
func assignToBroader(labels, broader []string, mapping map[string]string) [][]int {
	assignment := make([][]int, len(broader))
	for i, label := range labels {
		mapped := mapping[strings.ToLower(label)]
		matched := -1
		if mapped != "" {
			for bi, bc := range broader {
				bcLower := strings.ToLower(bc)
				if strings.Contains(mapped, bcLower) || strings.Contains(bcLower, mapped) {
					matched = bi
					break
				}
			}
		}
		if matched < 0 {
			matched = i % len(broader)
		}
		assignment[matched] = append(assignment[matched], i)
	}
	return assignment
}

func labelsOf(nodes map[string]*Node, ids []string) []string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = nodes[id].Label
	}
	return labels
}

func articleNodeID(storyID string) string {
	return "L0_article_" + storyID
}

func conceptNodeID(layer int, label string, maxLen int) string {
	sanitized := strings.NewReplacer(" ", "_", "/", "_").Replace(label)
	return fmt.Sprintf("L%d_%s", layer, truncate(sanitized, maxLen))
}

// normalizeLabel lowercases and collapses internal whitespace.
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
