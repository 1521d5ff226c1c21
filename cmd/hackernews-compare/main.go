package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/abpatramsft/hackernews-compare-tool/internal/api"
	"github.com/abpatramsft/hackernews-compare-tool/internal/cluster"
	"github.com/abpatramsft/hackernews-compare-tool/internal/concept"
	"github.com/abpatramsft/hackernews-compare-tool/internal/config"
	"github.com/abpatramsft/hackernews-compare-tool/internal/embed"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
	"github.com/abpatramsft/hackernews-compare-tool/internal/llm"
	"github.com/abpatramsft/hackernews-compare-tool/internal/mcp"
	"github.com/abpatramsft/hackernews-compare-tool/internal/oracle"
	"github.com/abpatramsft/hackernews-compare-tool/internal/store"
	"github.com/abpatramsft/hackernews-compare-tool/internal/summary"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("hackernews-compare %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	deps, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	deps.Log = log

	srv := api.NewServer(cfg, deps)
	return srv.ListenAndServe()
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	s := mcp.NewServer(mcp.ServerConfig{
		HN:         deps.HN,
		Store:      deps.Store,
		Embedder:   deps.Embedder,
		Clusters:   deps.Clusters,
		Concepts:   deps.Concepts,
		Summaries:  deps.Summaries,
		MaxStories: cfg.HN.MaxStories,
		Version:    version,
	})
	return mcp.ServeStdio(s)
}

// buildPipeline wires the shared components used by both the HTTP API and
// the MCP server. The returned cleanup closes the session store.
func buildPipeline(cfg config.Config) (api.Deps, func(), error) {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("opening store: %w", err)
	}

	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		st.Close()
		return api.Deps{}, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	embedder, err := embed.NewClient(embed.Config{
		Endpoint:    cfg.Embed.Endpoint,
		Model:       cfg.Embed.Model,
		APIKey:      cfg.Embed.APIKey,
		Batch:       cfg.Embed.Batch,
		TimeoutSecs: int(cfg.Timeout / time.Second),
	})
	if err != nil {
		st.Close()
		return api.Deps{}, nil, fmt.Errorf("creating embedder: %w", err)
	}

	o := oracle.NewLLMOracle(provider)

	deps := api.Deps{
		HN:        hn.NewClient(cfg.HN.BaseURL, hn.WithWindowMonths(cfg.HN.WindowMonths)),
		Store:     st,
		Embedder:  embedder,
		Clusters:  cluster.NewBuilder(cluster.PCAReducer{}, cluster.KMeansClusterer{}, cfg.Cache.Clusters),
		Concepts:  concept.NewBuilder(o, cfg.Cache.Concepts, cfg.LLM.Concurrency),
		Summaries: summary.NewGenerator(provider, cfg.Cache.Summaries),
	}
	return deps, func() { st.Close() }, nil
}

func printUsage() {
	fmt.Println(`hackernews-compare — search, cluster, and compare Hacker News stories

Usage:
  hackernews-compare serve [--config path] [--addr :8080]   Run the HTTP API server
  hackernews-compare mcp [--config path]                    Run the MCP server on stdio
  hackernews-compare version                                Print version

Environment:
  HNCT_LLM_API_KEY / OPENROUTER_API_KEY / OPENAI_API_KEY    LLM provider key
  HNCT_EMBED_ENDPOINT                                       Embedding API endpoint
  HNCT_ADDR                                                 Listen address`)
}
