package cache

import (
	"testing"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
)

func TestGetAfterSetReturnsDocument(t *testing.T) {
	c := New(Options{MaxEntries: 4, TTL: time.Minute})

	doc := &domain.Document{ID: "doc-1", Status: domain.StatusAvailable}
	c.Set("doc-1", doc)

	got, ok := c.Get("doc-1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.ID != "doc-1" {
		t.Fatalf("got id %q", got.ID)
	}
}

func TestGetMissesUnknownID(t *testing.T) {
	c := New(Options{MaxEntries: 4, TTL: time.Minute})

	if _, ok := c.Get("absent"); ok {
		t.Fatalf("expected cache miss")
	}
}

func TestRemoveInvalidatesEntry(t *testing.T) {
	c := New(Options{MaxEntries: 4, TTL: time.Minute})

	c.Set("doc-1", &domain.Document{ID: "doc-1"})
	c.Remove("doc-1")

	if _, ok := c.Get("doc-1"); ok {
		t.Fatalf("expected entry to be invalidated")
	}
}

func TestOldestEntryEvictedAtCapacity(t *testing.T) {
	c := New(Options{MaxEntries: 2, TTL: time.Minute})

	c.Set("doc-1", &domain.Document{ID: "doc-1"})
	c.Set("doc-2", &domain.Document{ID: "doc-2"})
	c.Set("doc-3", &domain.Document{ID: "doc-3"})

	if _, ok := c.Get("doc-1"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("doc-3"); !ok {
		t.Fatalf("expected newest entry to survive")
	}
}
