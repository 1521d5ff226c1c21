// Package summary generates cluster titles and summaries via the LLM.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abpatramsft/hackernews-compare-tool/internal/cache"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
	"github.com/abpatramsft/hackernews-compare-tool/internal/llm"
	"github.com/abpatramsft/hackernews-compare-tool/internal/oracle"
)

// Summary is the display payload for one cluster.
type Summary struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	StoryCount int    `json:"story_count"`
}

// maxStoriesInPrompt bounds the prompt size.
const maxStoriesInPrompt = 20

const summarySystem = `You are an expert at analyzing and summarizing Hacker News discussions.
Given a cluster of stories about a topic, provide:
1. A concise title (5-8 words) that captures the main theme
2. A 2-3 sentence summary of the key points being discussed

Be objective and focus on the common themes across the stories.`

// Generator produces and caches cluster summaries.
type Generator struct {
	provider  llm.Provider
	summaries *cache.Cache[Summary]
}

// NewGenerator creates a Generator caching up to capacity summaries.
func NewGenerator(provider llm.Provider, capacity int) *Generator {
	return &Generator{
		provider:  provider,
		summaries: cache.New[Summary](capacity),
	}
}

// Generate returns a title and summary for the cluster's stories. Results
// are cached by session, cluster, and member IDs (order-independent).
// LLM failures degrade to a placeholder summary and are not cached.
func (g *Generator) Generate(ctx context.Context, sessionID string, clusterID int, stories []hn.Story) (Summary, error) {
	if len(stories) == 0 {
		return Summary{
			Title:      fmt.Sprintf("Empty Cluster %d", clusterID),
			Summary:    "This cluster contains no stories.",
			StoryCount: 0,
		}, nil
	}

	key := cacheKey(sessionID, clusterID, stories)
	if s, ok := g.summaries.Get(key); ok {
		return s, nil
	}

	prompt := fmt.Sprintf(`Analyze these %d stories from a cluster and provide a title and summary:

Stories:
%s

Respond in JSON format:
{
    "title": "...",
    "summary": "..."
}`, len(stories), formatStories(stories))

	resp, err := g.provider.Complete(ctx, prompt, llm.CompletionOpts{
		System:      summarySystem,
		Temperature: 0.7,
		MaxTokens:   300,
		Format:      "json",
	})
	if err != nil {
		// Degraded result, deliberately not cached so a later call can
		// retry.
		return Summary{
			Title:      fmt.Sprintf("Cluster %d", clusterID),
			Summary:    fmt.Sprintf("Error generating summary: %v", err),
			StoryCount: len(stories),
		}, nil
	}

	s := parseSummary(resp, clusterID)
	s.StoryCount = len(stories)
	g.summaries.Set(key, s)
	return s, nil
}

func parseSummary(resp string, clusterID int) Summary {
	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp)), &parsed); err == nil {
		if parsed.Title == "" {
			parsed.Title = fmt.Sprintf("Cluster %d", clusterID)
		}
		if parsed.Summary == "" {
			parsed.Summary = "Summary not available."
		}
		return Summary{Title: parsed.Title, Summary: parsed.Summary}
	}
	// Model output may wrap the JSON in prose or fences.
	if list := oracle.ParseMapping(resp); list["title"] != "" || list["summary"] != "" {
		title := list["title"]
		if title == "" {
			title = fmt.Sprintf("Cluster %d", clusterID)
		}
		sum := list["summary"]
		if sum == "" {
			sum = "Summary not available."
		}
		return Summary{Title: title, Summary: sum}
	}
	return Summary{
		Title:   fmt.Sprintf("Cluster %d Analysis", clusterID),
		Summary: resp,
	}
}

func formatStories(stories []hn.Story) string {
	if len(stories) > maxStoriesInPrompt {
		stories = stories[:maxStoriesInPrompt]
	}
	lines := make([]string, len(stories))
	for i, s := range stories {
		lines[i] = fmt.Sprintf("%d. %s (Score: %d)", i+1, s.Title, s.Score)
	}
	return strings.Join(lines, "\n")
}

func cacheKey(sessionID string, clusterID int, stories []hn.Story) string {
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s:%d:%s", sessionID, clusterID, strings.Join(ids, ","))
}
