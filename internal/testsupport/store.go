package testsupport

import (
	"context"
	"testing"
	"time"

	"skimmer/internal/config"
	"skimmer/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// ItemOption customizes a seeded item before insertion.
type ItemOption func(*store.Item)

// WithScore sets the engagement score.
func WithScore(score int64) ItemOption {
	return func(item *store.Item) {
		item.Score = score
	}
}

// WithCreatedAt sets the creation time.
func WithCreatedAt(createdAt time.Time) ItemOption {
	return func(item *store.Item) {
		item.CreatedAt = createdAt
	}
}

// WithBody sets the post body and marks the item as a self post.
func WithBody(body string) ItemOption {
	return func(item *store.Item) {
		item.Body = body
		item.SelfPost = true
		item.URL = ""
	}
}

// WithURL sets the external link.
func WithURL(url string) ItemOption {
	return func(item *store.Item) {
		item.URL = url
		item.SelfPost = false
	}
}

// SeedItem inserts a pending item and returns the stored row.
func SeedItem(t testing.TB, st *store.Store, externalID, title string, opts ...ItemOption) *store.Item {
	t.Helper()

	item := &store.Item{
		ExternalID: externalID,
		Community:  "artificial",
		Title:      title,
		Permalink:  "https://reddit.com/r/artificial/comments/" + externalID,
		Score:      10,
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(item)
	}

	inserted, err := st.UpsertItem(context.Background(), item)
	if err != nil {
		t.Fatalf("store.UpsertItem: %v", err)
	}
	if !inserted {
		t.Fatalf("item %s already present", externalID)
	}
	stored, err := st.GetByExternalID(context.Background(), externalID)
	if err != nil {
		t.Fatalf("store.GetByExternalID: %v", err)
	}
	if stored == nil {
		t.Fatalf("item %s not found after insert", externalID)
	}
	return stored
}

// SeedProcessedItem inserts an item and moves it straight to processed with
// the given enrichment.
func SeedProcessedItem(t testing.TB, st *store.Store, externalID, title string, enrichment store.Enrichment, opts ...ItemOption) *store.Item {
	t.Helper()

	item := SeedItem(t, st, externalID, title, opts...)
	changed, err := st.MarkProcessed(context.Background(), item.ID, store.StatusPending, enrichment)
	if err != nil {
		t.Fatalf("store.MarkProcessed: %v", err)
	}
	if !changed {
		t.Fatalf("item %s could not be marked processed", externalID)
	}
	stored, err := st.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return stored
}

// SeedRecipient registers an active recipient.
func SeedRecipient(t testing.TB, st *store.Store, id int64, name string) {
	t.Helper()

	if err := st.UpsertRecipient(context.Background(), id, name); err != nil {
		t.Fatalf("store.UpsertRecipient: %v", err)
	}
}
