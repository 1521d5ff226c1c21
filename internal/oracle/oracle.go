// Package oracle wraps an LLM provider behind the semantic operations that
// concept graphs and summaries are built from: extracting concepts from an
// article, merging concepts into broader themes, assigning concepts to
// themes, and naming a whole cluster.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/abpatramsft/hackernews-compare-tool/internal/llm"
)

// Oracle answers semantic questions about article text and concept labels.
// All returned labels are lowercased and trimmed.
type Oracle interface {
	// Extract returns 2-4 short technical concepts for one article.
	Extract(ctx context.Context, text, title string) ([]string, error)
	// Aggregate merges concept labels into roughly half as many broader themes.
	Aggregate(ctx context.Context, labels []string) ([]string, error)
	// MapToBroader assigns each label to one of the broader labels.
	MapToBroader(ctx context.Context, labels, broader []string) (map[string]string, error)
	// SynthesizeRoot names the single overarching theme of the labels.
	SynthesizeRoot(ctx context.Context, labels []string) (string, error)
}

// Error wraps a failed oracle call. Callers treat these as soft failures
// and degrade to deterministic fallbacks.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LLMOracle implements Oracle on an llm.Provider.
type LLMOracle struct {
	provider llm.Provider
}

// NewLLMOracle wraps provider as an Oracle.
func NewLLMOracle(provider llm.Provider) *LLMOracle {
	return &LLMOracle{provider: provider}
}

const extractSystem = `You are an expert at analyzing Hacker News technical discussions.
Extract 2-4 core technical themes from the article, focusing on:
- Technologies, frameworks, or tools mentioned
- Engineering problems or challenges addressed
- Innovative approaches or solutions
- Industry trends or developments

Each concept should be a short phrase (2-5 words) that captures a key technical theme.`

const aggregateSystem = `You are an expert at categorizing and synthesizing Hacker News technical discussions.
Group related concepts into broader technical themes.`

const mapSystem = `You are an expert at categorizing technical concepts.
Map each specific concept to the most appropriate broader category.`

const rootSystem = `You are an expert at synthesizing Hacker News technical discussions.
Create a single overarching theme that captures the essence of multiple technical concepts.`

// maxExtractChars bounds the article text sent for extraction.
const maxExtractChars = 1500

func (o *LLMOracle) Extract(ctx context.Context, text, title string) ([]string, error) {
	text = truncate(text, maxExtractChars)
	prompt := fmt.Sprintf(`Analyze this Hacker News article and extract 2-4 technical concepts:

Title: %s

Content:
%s

Return ONLY a JSON array of concept strings. Example format:
["concept one", "concept two", "concept three"]

If you cannot identify meaningful concepts, return an empty array [].`, title, text)

	resp, err := o.provider.Complete(ctx, prompt, llm.CompletionOpts{
		System:      extractSystem,
		Temperature: 0.5,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, &Error{Op: "extract", Err: err}
	}
	concepts := ParseList(resp)
	if len(concepts) > 4 {
		concepts = concepts[:4]
	}
	return concepts, nil
}

func (o *LLMOracle) Aggregate(ctx context.Context, labels []string) ([]string, error) {
	if len(labels) <= 1 {
		return labels, nil
	}
	target := len(labels) / 2
	if target < 1 {
		target = 1
	}
	prompt := fmt.Sprintf(`You are given %d technical concepts from Hacker News articles.
Merge and group these into %d broader technical themes.

Concepts to aggregate:
%s

Each new theme should be a short phrase (2-6 words) that represents a category of concepts.
Focus on technical domains, problem areas, or technology categories.

Return ONLY a JSON array of the %d broader theme strings. Example format:
["broader theme one", "broader theme two"]`, len(labels), target, numberedList(labels), target)

	resp, err := o.provider.Complete(ctx, prompt, llm.CompletionOpts{
		System:      aggregateSystem,
		Temperature: 0.5,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, &Error{Op: "aggregate", Err: err}
	}
	return ParseList(resp), nil
}

func (o *LLMOracle) MapToBroader(ctx context.Context, labels, broader []string) (map[string]string, error) {
	prompt := fmt.Sprintf(`Map each concept to the most appropriate broader category.

Concepts:
%s

Broader categories:
%s

Return ONLY a JSON object mapping each concept to a broader category. Format:
{"concept1": "broader_category1", "concept2": "broader_category2", ...}

Each concept should map to exactly one broader category.`, numberedList(labels), numberedList(broader))

	resp, err := o.provider.Complete(ctx, prompt, llm.CompletionOpts{
		System:      mapSystem,
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, &Error{Op: "map_to_broader", Err: err}
	}
	return ParseMapping(resp), nil
}

func (o *LLMOracle) SynthesizeRoot(ctx context.Context, labels []string) (string, error) {
	if len(labels) == 1 {
		return labels[0], nil
	}
	prompt := fmt.Sprintf(`Synthesize these %d technical themes into ONE single concept that captures the overarching theme:

Themes:
%s

Return ONLY a single phrase (3-8 words) representing the cluster's overarching technical theme.
Do not include quotes or any other text.`, len(labels), numberedList(labels))

	resp, err := o.provider.Complete(ctx, prompt, llm.CompletionOpts{
		System:      rootSystem,
		Temperature: 0.6,
		MaxTokens:   100,
	})
	if err != nil {
		return "", &Error{Op: "synthesize_root", Err: err}
	}
	return strings.ToLower(strings.Trim(resp, `"'`)), nil
}

// truncate cuts s to at most n runes, never splitting a multi-byte
// character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	return strings.TrimRight(b.String(), "\n")
}
