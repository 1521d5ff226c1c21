package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/abpatramsft/hackernews-compare-tool/internal/llm"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses  []string
	calls      int
	lastPrompt string
	err        error
}

func (p *scriptedProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	p.lastPrompt = prompt
	if p.err != nil {
		return "", p.err
	}
	if p.calls >= len(p.responses) {
		return "", errors.New("no scripted response left")
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func TestExtractCapsAtFour(t *testing.T) {
	p := &scriptedProvider{responses: []string{`["a","b","c","d","e","f"]`}}
	o := NewLLMOracle(p)
	got, err := o.Extract(context.Background(), "body", "title")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected at most 4 concepts, got %v", got)
	}
}

func TestExtractTruncatesOnRuneBoundary(t *testing.T) {
	p := &scriptedProvider{responses: []string{`["a"]`}}
	o := NewLLMOracle(p)
	text := strings.Repeat("é", maxExtractChars+100)
	if _, err := o.Extract(context.Background(), text, "title"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !utf8.ValidString(p.lastPrompt) {
		t.Fatal("prompt contains a split multi-byte character")
	}
	if !strings.Contains(p.lastPrompt, strings.Repeat("é", maxExtractChars)) {
		t.Fatal("truncated text missing from prompt")
	}
	if strings.Contains(p.lastPrompt, strings.Repeat("é", maxExtractChars+1)) {
		t.Fatalf("text not truncated to %d characters", maxExtractChars)
	}
}

func TestExtractWrapsProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("down")}
	o := NewLLMOracle(p)
	_, err := o.Extract(context.Background(), "body", "title")
	var oe *Error
	if !errors.As(err, &oe) {
		t.Fatalf("expected oracle.Error, got %v", err)
	}
	if oe.Op != "extract" {
		t.Fatalf("bad op: %q", oe.Op)
	}
}

func TestAggregateShortCircuits(t *testing.T) {
	p := &scriptedProvider{}
	o := NewLLMOracle(p)
	got, err := o.Aggregate(context.Background(), []string{"only"})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got) != 1 || got[0] != "only" {
		t.Fatalf("single label should pass through, got %v", got)
	}
	if p.calls != 0 {
		t.Fatal("single label must not call the provider")
	}
}

func TestSynthesizeRootSingle(t *testing.T) {
	p := &scriptedProvider{}
	o := NewLLMOracle(p)
	got, err := o.SynthesizeRoot(context.Background(), []string{"the theme"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got != "the theme" || p.calls != 0 {
		t.Fatalf("single label should pass through without a call, got %q", got)
	}
}

func TestSynthesizeRootStripsQuotes(t *testing.T) {
	p := &scriptedProvider{responses: []string{`"Modern AI Infrastructure"`}}
	o := NewLLMOracle(p)
	got, err := o.SynthesizeRoot(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got != "modern ai infrastructure" {
		t.Fatalf("got %q", got)
	}
}

func TestMapToBroader(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"rust": "systems", "react": "frontend"}`}}
	o := NewLLMOracle(p)
	got, err := o.MapToBroader(context.Background(), []string{"rust", "react"}, []string{"systems", "frontend"})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got["rust"] != "systems" || got["react"] != "frontend" {
		t.Fatalf("got %v", got)
	}
}
