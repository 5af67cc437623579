package enrich_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"skimmer/internal/enrich"
	"skimmer/internal/store"
	"skimmer/internal/testsupport"
)

func TestRunEnrichesPendingItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	item := testsupport.SeedItem(t, st, "e1", "New model released",
		testsupport.WithURL("https://example.com/article"))

	completer := &testsupport.StubCompleter{Responses: []string{
		`{"summary": "A new model was released with better reasoning.", "category": "News", "keywords": ["Model!", "model", "Reasoning"]}`,
	}}
	fetcher := &testsupport.StubFetcher{Text: "Full article text about the release."}

	enricher := enrich.NewEnricher(st, completer, fetcher, enrich.Config{BatchSize: 5}, nil)
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 1 || summary.Examined != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if fetcher.Calls != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.Calls)
	}

	stored, err := st.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != store.StatusProcessed {
		t.Fatalf("expected processed, got %s", stored.Status)
	}
	if stored.Category != store.CategoryNews {
		t.Fatalf("expected news category, got %s", stored.Category)
	}
	// Keywords are folded, sanitized, and deduplicated.
	if len(stored.Keywords) != 2 || stored.Keywords[0] != "model" || stored.Keywords[1] != "reasoning" {
		t.Fatalf("unexpected keywords: %#v", stored.Keywords)
	}
}

func TestRunSkipsFetchForSelfPosts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedItem(t, st, "e2", "Discussion thread",
		testsupport.WithBody("What do you all think about agents?"))

	completer := &testsupport.StubCompleter{Responses: []string{
		`{"summary": "A community discussion about agent frameworks.", "category": "discussion", "keywords": ["agents"]}`,
	}}
	fetcher := &testsupport.StubFetcher{Err: errors.New("should not be called")}

	enricher := enrich.NewEnricher(st, completer, fetcher, enrich.Config{BatchSize: 5}, nil)
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if fetcher.Calls != 0 {
		t.Fatalf("expected no fetch for self post, got %d", fetcher.Calls)
	}
}

func TestRunMarksFetchFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	item := testsupport.SeedItem(t, st, "e3", "Broken link",
		testsupport.WithURL("https://example.com/missing"))

	completer := &testsupport.StubCompleter{}
	fetcher := &testsupport.StubFetcher{Err: errors.New("connection refused")}

	enricher := enrich.NewEnricher(st, completer, fetcher, enrich.Config{BatchSize: 5}, nil)
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.FetchFailed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if completer.Calls != 0 {
		t.Fatal("generation must not run after a fetch failure")
	}

	stored, err := st.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != store.StatusURLFetchFailed || stored.URLFetchAttempts != 1 {
		t.Fatalf("unexpected item state: %#v", stored)
	}
}

func TestRunMarksMalformedResponse(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	item := testsupport.SeedItem(t, st, "e4", "Bad generation",
		testsupport.WithBody("text"))

	completer := &testsupport.StubCompleter{Responses: []string{`not json at all`}}

	enricher := enrich.NewEnricher(st, completer, nil, enrich.Config{BatchSize: 5}, nil)
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.GenerationFailed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	stored, err := st.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != store.StatusProcessingFailed {
		t.Fatalf("expected processing_failed, got %s", stored.Status)
	}
	if stored.URLFetchAttempts != 0 {
		t.Fatalf("generation failure must not touch fetch attempts, got %d", stored.URLFetchAttempts)
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Now().UTC()
	testsupport.SeedItem(t, st, "e5", "Bad one", testsupport.WithBody("a"),
		testsupport.WithCreatedAt(now.Add(-2*time.Hour)))
	testsupport.SeedItem(t, st, "e6", "Good one", testsupport.WithBody("b"),
		testsupport.WithCreatedAt(now.Add(-time.Hour)))

	// Newest first: e6 succeeds, e5 fails.
	completer := &testsupport.StubCompleter{Responses: []string{
		`{"summary": "A fine summary of the good item.", "category": "other", "keywords": []}`,
		`garbage`,
	}}

	enricher := enrich.NewEnricher(st, completer, nil, enrich.Config{BatchSize: 5}, nil)
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 1 || summary.GenerationFailed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestCleanKeywords(t *testing.T) {
	got := enrich.CleanKeywords([]string{" LLM ", "llm", "fine-tuning!", "", "a b", "c,d"})
	want := []string{"llm", "fine-tuning", "a b", "cd"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
