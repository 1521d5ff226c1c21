// Package mcp provides a Model Context Protocol server for the compare tool.
//
// It exposes the analysis pipeline (HN search, clustering, cluster graphs,
// concept graphs, summaries) as MCP tools over stdio transport, for use from
// Claude Desktop, Cursor, and similar clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abpatramsft/hackernews-compare-tool/internal/cache"
	"github.com/abpatramsft/hackernews-compare-tool/internal/cluster"
	"github.com/abpatramsft/hackernews-compare-tool/internal/concept"
	"github.com/abpatramsft/hackernews-compare-tool/internal/embed"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
	"github.com/abpatramsft/hackernews-compare-tool/internal/store"
	"github.com/abpatramsft/hackernews-compare-tool/internal/summary"
)

// Searcher is the slice of the HN client the MCP tools need.
type Searcher interface {
	Search(ctx context.Context, query string, limit, days int) ([]hn.Story, error)
}

// ServerConfig holds the wired pipeline components for the MCP server.
type ServerConfig struct {
	HN         Searcher
	Store      store.Store
	Embedder   embed.Embedder
	Clusters   *cluster.Builder
	Concepts   *concept.Builder
	Summaries  *summary.Generator
	MaxStories int    // search result cap (0 = 100)
	Version    string // version string for MCP server info
}

// dbMu serializes tool calls that touch the session store. The mcp-go
// library dispatches handlers concurrently via goroutines, and SQLite
// supports only one writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all analysis tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.MaxStories <= 0 {
		cfg.MaxStories = 100
	}

	s := server.NewMCPServer(
		"HN Compare",
		ver,
		server.WithToolCapabilities(false),
	)

	p := &pipeline{cfg: cfg, embeddings: cache.New[[][]float32](64)}

	registerSearchTool(s, p)
	registerSessionsTool(s, p)
	registerClusterTool(s, p)
	registerClusterGraphTool(s, p)
	registerConceptGraphTool(s, p)
	registerSummarizeTool(s, p)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout until the client hangs up.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// pipeline bundles the components and the per-session embedding cache
// shared by the tool handlers.
type pipeline struct {
	cfg        ServerConfig
	embeddings *cache.Cache[[][]float32]
}

func (p *pipeline) sessionStories(ctx context.Context, sessionID string) ([]hn.Story, error) {
	sess, err := p.cfg.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("search ID %q not found", sessionID)
	}
	stories, err := p.cfg.Store.GetStories(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading stories: %w", err)
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("search ID %q has no stories", sessionID)
	}
	return stories, nil
}

// ensureClustered runs embed + cluster for the session if no cached result
// exists yet, so each MCP tool works standalone.
func (p *pipeline) ensureClustered(ctx context.Context, sessionID string, k int) (*cluster.Result, error) {
	if result, err := p.cfg.Clusters.Get(sessionID); err == nil && k <= 0 {
		return result, nil
	}

	stories, err := p.sessionStories(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	vecs, found := p.embeddings.Get(sessionID)
	if !found {
		texts := make([]string, len(stories))
		for i, st := range stories {
			texts[i] = st.Content()
		}
		vecs, err = p.cfg.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("generating embeddings: %w", err)
		}
		p.embeddings.Set(sessionID, vecs)
	}
	return p.cfg.Clusters.Analyze(sessionID, vecs, stories, k)
}

// --- Tools ---

func registerSearchTool(s *server.MCPServer, p *pipeline) {
	tool := mcp.NewTool("hn_search",
		mcp.WithDescription("Search Hacker News stories from the last 6 months and store them as a new comparison session. Returns the search ID and aggregate stats."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string (e.g. 'golang', 'rust async')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of stories to fetch (default: 100)"),
		),
		mcp.WithNumber("days",
			mcp.Description("Only include stories from the last N days (default: client recency window)"),
		),
		mcp.WithString("section",
			mcp.Description("Caller-chosen label kept in the search ID prefix (default: 'top')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		limit := p.cfg.MaxStories
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 && int(v) < limit {
			limit = int(v)
		}
		days := 0
		if v, err := req.RequireFloat("days"); err == nil && int(v) > 0 {
			days = int(v)
		}
		section := "top"
		if v, err := req.RequireString("section"); err == nil && strings.TrimSpace(v) != "" {
			section = strings.TrimSpace(v)
		}

		stories, err := p.cfg.HN.Search(ctx, query, limit, days)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		sessionID := section + "_" + uuid.NewString()
		sess := store.Session{ID: sessionID, Query: query, CreatedAt: time.Now().UTC()}
		if err := p.cfg.Store.SaveSession(ctx, sess, stories); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving session: %v", err)), nil
		}

		out := map[string]any{
			"search_id": sessionID,
			"stats":     hn.ComputeStats(query, stories),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSessionsTool(s *server.MCPServer, p *pipeline) {
	tool := mcp.NewTool("hn_sessions",
		mcp.WithDescription("List recent comparison sessions with their queries and creation times."),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		sessions, err := p.cfg.Store.ListSessions(ctx, 50)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing sessions: %v", err)), nil
		}
		data, _ := json.MarshalIndent(sessions, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerClusterTool(s *server.MCPServer, p *pipeline) {
	tool := mcp.NewTool("hn_cluster",
		mcp.WithDescription("Embed and cluster the stories of a session. Returns 2D scatter coordinates, cluster labels, colors, and per-cluster stats."),
		mcp.WithString("search_id",
			mcp.Required(),
			mcp.Description("Search ID returned by hn_search"),
		),
		mcp.WithNumber("n_clusters",
			mcp.Description("Number of clusters (default: chosen automatically from the story count)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		sessionID, err := req.RequireString("search_id")
		if err != nil {
			return mcp.NewToolResultError("search_id is required"), nil
		}
		k := 0
		if v, err := req.RequireFloat("n_clusters"); err == nil {
			k = int(v)
		}

		result, err := p.ensureClustered(ctx, sessionID, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clustering: %v", err)), nil
		}
		data, _ := json.MarshalIndent(result.Data, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerClusterGraphTool(s *server.MCPServer, p *pipeline) {
	tool := mcp.NewTool("hn_cluster_graph",
		mcp.WithDescription("Build the inter-cluster similarity graph for a session: one node per cluster, edges weighted by centroid similarity in [0,1]."),
		mcp.WithString("search_id",
			mcp.Required(),
			mcp.Description("Search ID returned by hn_search"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		sessionID, err := req.RequireString("search_id")
		if err != nil {
			return mcp.NewToolResultError("search_id is required"), nil
		}
		if _, err := p.ensureClustered(ctx, sessionID, 0); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clustering: %v", err)), nil
		}
		graph, err := p.cfg.Clusters.BuildGraph(sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("building graph: %v", err)), nil
		}
		data, _ := json.MarshalIndent(graph, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerConceptGraphTool(s *server.MCPServer, p *pipeline) {
	tool := mcp.NewTool("hn_concept_graph",
		mcp.WithDescription("Build a layered concept hierarchy for one cluster: article leaves, extracted concepts, aggregated themes, and a synthesized root."),
		mcp.WithString("search_id",
			mcp.Required(),
			mcp.Description("Search ID returned by hn_search"),
		),
		mcp.WithNumber("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster label from hn_cluster output"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		sessionID, err := req.RequireString("search_id")
		if err != nil {
			return mcp.NewToolResultError("search_id is required"), nil
		}
		clusterVal, err := req.RequireFloat("cluster_id")
		if err != nil {
			return mcp.NewToolResultError("cluster_id is required"), nil
		}
		clusterID := int(clusterVal)

		result, err := p.ensureClustered(ctx, sessionID, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clustering: %v", err)), nil
		}
		members := clusterMembers(result, clusterID)
		if len(members) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("cluster %d has no stories", clusterID)), nil
		}

		tree, err := p.cfg.Concepts.Build(ctx, sessionID, clusterID, members)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("building concept graph: %v", err)), nil
		}
		data, _ := json.MarshalIndent(tree, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSummarizeTool(s *server.MCPServer, p *pipeline) {
	tool := mcp.NewTool("hn_summarize",
		mcp.WithDescription("Generate an LLM title and summary for one cluster of a session."),
		mcp.WithString("search_id",
			mcp.Required(),
			mcp.Description("Search ID returned by hn_search"),
		),
		mcp.WithNumber("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster label from hn_cluster output"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		sessionID, err := req.RequireString("search_id")
		if err != nil {
			return mcp.NewToolResultError("search_id is required"), nil
		}
		clusterVal, err := req.RequireFloat("cluster_id")
		if err != nil {
			return mcp.NewToolResultError("cluster_id is required"), nil
		}
		clusterID := int(clusterVal)

		result, err := p.ensureClustered(ctx, sessionID, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clustering: %v", err)), nil
		}
		members := clusterMembers(result, clusterID)
		if len(members) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("cluster %d has no stories", clusterID)), nil
		}

		sum, err := p.cfg.Summaries.Generate(ctx, sessionID, clusterID, members)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("generating summary: %v", err)), nil
		}
		data, _ := json.MarshalIndent(sum, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// clusterMembers returns the cluster's stories in session order.
func clusterMembers(result *cluster.Result, clusterID int) []hn.Story {
	var members []hn.Story
	for i, label := range result.Labels {
		if label == clusterID {
			members = append(members, result.Stories[i])
		}
	}
	return members
}
