package cache

import (
	"errors"
	"testing"
)

func TestSetGet(t *testing.T) {
	c := New[int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d ok=%v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestEviction(t *testing.T) {
	c := New[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("recent entry evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}
}

func TestGetPromotes(t *testing.T) {
	c := New[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently read entry should survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should have been evicted")
	}
}

func TestSetOverwrites(t *testing.T) {
	c := New[string](2)
	c.Set("k", "old")
	c.Set("k", "new")
	if v, _ := c.Get("k"); v != "new" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if c.Len() != 1 {
		t.Fatalf("expected len 1, got %d", c.Len())
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New[int](4)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	}
	if calls != 1 {
		t.Fatalf("expected single compute call, got %d", calls)
	}
}

func TestGetOrComputeError(t *testing.T) {
	c := New[int](4)
	wantErr := errors.New("boom")
	_, err := c.GetOrCompute("k", func() (int, error) { return 0, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("failed compute must not cache")
	}
}

func TestRemove(t *testing.T) {
	c := New[int](2)
	c.Set("a", 1)
	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("removed entry still present")
	}
	c.Remove("a")
}
