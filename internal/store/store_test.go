package store

import (
	"context"
	"testing"
	"time"

	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleStories() []hn.Story {
	now := time.Now().UTC().Truncate(time.Second)
	return []hn.Story{
		{ID: "1", Title: "First", URL: "https://a.example", HNURL: "https://news.ycombinator.com/item?id=1", Score: 10, Author: "alice", CreatedAt: now.Add(-time.Hour), CommentsCount: 3},
		{ID: "2", Title: "Second", Text: "body text", HNURL: "https://news.ycombinator.com/item?id=2", Score: 20, Author: "bob", CreatedAt: now, CommentsCount: 5},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := Session{ID: "sess-1", Query: "golang", CreatedAt: time.Now().UTC().Truncate(time.Second)}

	if err := s.SaveSession(ctx, sess, sampleStories()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.Query != "golang" {
		t.Fatalf("unexpected session: %+v", got)
	}

	stories, err := s.GetStories(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get stories: %v", err)
	}
	if len(stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(stories))
	}
	if stories[0].ID != "1" || stories[1].ID != "2" {
		t.Fatalf("order not preserved: %+v", stories)
	}
	if stories[1].Text != "body text" || stories[1].Score != 20 {
		t.Fatalf("fields not round-tripped: %+v", stories[1])
	}
}

func TestGetUnknownSession(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown session, got %+v", got)
	}
	stories, err := s.GetStories(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get stories: %v", err)
	}
	if len(stories) != 0 {
		t.Fatalf("expected no stories, got %d", len(stories))
	}
}

func TestSaveReplacesStories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := Session{ID: "sess-1", Query: "golang", CreatedAt: time.Now().UTC()}

	if err := s.SaveSession(ctx, sess, sampleStories()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSession(ctx, sess, sampleStories()[:1]); err != nil {
		t.Fatalf("resave: %v", err)
	}
	stories, err := s.GetStories(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get stories: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("expected replacement to leave 1 story, got %d", len(stories))
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"a", "b", "c"} {
		sess := Session{ID: id, Query: "q-" + id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.SaveSession(ctx, sess, nil); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	sessions, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "c" || sessions[1].ID != "b" {
		t.Fatalf("expected newest first, got %+v", sessions)
	}
}
