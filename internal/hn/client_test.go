package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearch(t *testing.T) {
	var gotQuery, gotTags, gotPerPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotTags = r.URL.Query().Get("tags")
		gotPerPage = r.URL.Query().Get("hitsPerPage")
		json.NewEncoder(w).Encode(map[string]any{
			"hits": []map[string]any{
				{
					"objectID":     "101",
					"title":        "Show HN: A thing",
					"url":          "https://example.com/thing",
					"points":       42,
					"author":       "pg",
					"created_at_i": 1700000000,
					"num_comments": 7,
				},
				{
					"objectID":   "102",
					"title":      "Ask HN: Why?",
					"story_text": "Long form question body.",
					"points":     3,
					"author":     "dang",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	stories, err := c.Search(context.Background(), "golang", 25, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery != "golang" || gotTags != "story" || gotPerPage != "25" {
		t.Fatalf("unexpected params: query=%q tags=%q perPage=%q", gotQuery, gotTags, gotPerPage)
	}
	if len(stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(stories))
	}
	s := stories[0]
	if s.ID != "101" || s.Score != 42 || s.Author != "pg" {
		t.Fatalf("bad story mapping: %+v", s)
	}
	if s.HNURL != "https://news.ycombinator.com/item?id=101" {
		t.Fatalf("bad HN URL: %s", s.HNURL)
	}
	if want := time.Unix(1700000000, 0).UTC(); !s.CreatedAt.Equal(want) {
		t.Fatalf("bad created_at: %v", s.CreatedAt)
	}
	if stories[1].Content() != "Ask HN: Why?\n\nLong form question body." {
		t.Fatalf("bad content: %q", stories[1].Content())
	}
	if stories[0].Content() != "Show HN: A thing" {
		t.Fatalf("title-only content expected: %q", stories[0].Content())
	}
}

func TestSearchDaysOverride(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("numericFilters")
		json.NewEncoder(w).Encode(map[string]any{"hits": []map[string]any{}})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Search(context.Background(), "q", 10, 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	var cutoff int64
	if _, err := fmt.Sscanf(gotFilter, "created_at_i>%d", &cutoff); err != nil {
		t.Fatalf("bad filter %q: %v", gotFilter, err)
	}
	want := time.Now().AddDate(0, 0, -5).Unix()
	if cutoff < want-60 || cutoff > want+60 {
		t.Fatalf("cutoff %d not near %d", cutoff, want)
	}
}

func TestSearchSkipsUntitled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"hits": []map[string]any{
				{"objectID": "1", "title": ""},
				{"objectID": "2", "title": "Real"},
			},
		})
	}))
	defer srv.Close()

	stories, err := NewClient(srv.URL).Search(context.Background(), "q", 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(stories) != 1 || stories[0].ID != "2" {
		t.Fatalf("expected only titled story, got %+v", stories)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Search(context.Background(), "q", 10, 0); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	stories := []Story{
		{Score: 10, CommentsCount: 5, CreatedAt: now.Add(-48 * time.Hour)},
		{Score: 30, CommentsCount: 15, CreatedAt: now},
	}
	st := ComputeStats("rust", stories)
	if st.StoryCount != 2 || st.TotalScore != 40 || st.TotalComments != 20 {
		t.Fatalf("bad aggregates: %+v", st)
	}
	if st.AvgScore != 20 {
		t.Fatalf("expected avg 20, got %f", st.AvgScore)
	}
	if !st.OldestStory.Equal(now.Add(-48*time.Hour)) || !st.NewestStory.Equal(now) {
		t.Fatalf("bad time range: %+v", st)
	}

	empty := ComputeStats("rust", nil)
	if empty.StoryCount != 0 || empty.AvgScore != 0 {
		t.Fatalf("empty stats should be zero: %+v", empty)
	}
}
