package oracle

import (
	"reflect"
	"testing"
)

func TestParseListJSON(t *testing.T) {
	got := ParseList(`["Rust Memory Safety", "WebAssembly", " systems programming "]`)
	want := []string{"rust memory safety", "webassembly", "systems programming"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseListFencedJSON(t *testing.T) {
	text := "Here are the concepts:\n```json\n[\"llm inference\", \"gpu scheduling\"]\n```\nHope that helps!"
	got := ParseList(text)
	want := []string{"llm inference", "gpu scheduling"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseListNumberedFallback(t *testing.T) {
	text := "1. distributed databases\n2. consensus protocols\n- raft implementation"
	got := ParseList(text)
	want := []string{"distributed databases", "consensus protocols", "raft implementation"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseListEmpty(t *testing.T) {
	if got := ParseList("[]"); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := ParseList("   "); len(got) != 0 {
		t.Fatalf("expected empty for blank input, got %v", got)
	}
}

func TestParseListDropsBlankItems(t *testing.T) {
	got := ParseList(`["real", "", "  "]`)
	if !reflect.DeepEqual(got, []string{"real"}) {
		t.Fatalf("got %v", got)
	}
}

func TestParseMappingJSON(t *testing.T) {
	got := ParseMapping(`{"Rust": "Systems Languages", "Go ": " systems languages"}`)
	want := map[string]string{"rust": "systems languages", "go": "systems languages"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseMappingFenced(t *testing.T) {
	text := "```\n{\"kubernetes\": \"cloud infrastructure\"}\n```"
	got := ParseMapping(text)
	if got["kubernetes"] != "cloud infrastructure" {
		t.Fatalf("got %v", got)
	}
}

func TestParseMappingLineFallback(t *testing.T) {
	text := "rust: systems languages\nreact -> frontend frameworks"
	got := ParseMapping(text)
	if got["rust"] != "systems languages" {
		t.Fatalf("colon mapping missing: %v", got)
	}
	if got["react"] != "frontend frameworks" {
		t.Fatalf("arrow mapping missing: %v", got)
	}
}

func TestParseMappingGarbage(t *testing.T) {
	if got := ParseMapping("no structure here"); len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
}
