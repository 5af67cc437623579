package digest_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"skimmer/internal/digest"
	"skimmer/internal/services"
	"skimmer/internal/store"
	"skimmer/internal/testsupport"
)

const qualifyingSummary = "A detailed summary long enough to pass the quality gate for digests."

func seedWindowItem(t *testing.T, st *store.Store, externalID, title string, category store.Category, score int64, createdAt time.Time) {
	t.Helper()
	testsupport.SeedProcessedItem(t, st, externalID, title, store.Enrichment{
		Summary:  qualifyingSummary,
		Category: category,
		Keywords: []string{"ai"},
	}, testsupport.WithScore(score), testsupport.WithCreatedAt(createdAt))
}

func TestComposeSelectsTopScoredWindowItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inWindow := now.Add(-30 * time.Hour)

	seedWindowItem(t, st, "d1", "Big release", store.CategoryNews, 500, inWindow)
	seedWindowItem(t, st, "d2", "Handy tool", store.CategoryTool, 300, inWindow)
	seedWindowItem(t, st, "d3", "New paper", store.CategoryResearch, 400, inWindow)
	seedWindowItem(t, st, "d4", "Hot debate", store.CategoryDiscussion, 200, inWindow)
	seedWindowItem(t, st, "d5", "Weekend demo", store.CategoryShowcase, 100, inWindow)
	seedWindowItem(t, st, "d6", "Low signal", store.CategoryOther, 50, inWindow)

	composer := digest.NewComposer(st, digest.Config{MaxItems: 5, MinSummaryLength: 40, Communities: []string{"artificial"}}, nil,
		digest.WithClock(func() time.Time { return now }))

	result, err := composer.Compose(context.Background())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if result.Quiet {
		t.Fatal("expected a non-quiet digest")
	}
	if len(result.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(result.Items))
	}
	for _, item := range result.Items {
		if item.ExternalID == "d6" {
			t.Fatal("sixth-ranked item must not be selected")
		}
	}
	if result.Items[0].ExternalID != "d1" {
		t.Fatalf("expected top score first, got %s", result.Items[0].ExternalID)
	}
	if result.Date != now.Add(-24*time.Hour).Format("2006-01-02") {
		t.Fatalf("unexpected digest date %s", result.Date)
	}

	// Sections follow the fixed order regardless of score.
	newsIdx := strings.Index(result.Message, "Breaking News & Updates")
	toolIdx := strings.Index(result.Message, "Tools & Applications")
	researchIdx := strings.Index(result.Message, "Research & Papers")
	if newsIdx < 0 || toolIdx < 0 || researchIdx < 0 {
		t.Fatalf("missing section headers in message:\n%s", result.Message)
	}
	if !(newsIdx < toolIdx && toolIdx < researchIdx) {
		t.Fatal("sections out of fixed order")
	}
	if !strings.Contains(result.Message, "📊 5 curated posts") {
		t.Fatal("message must state the item count")
	}
	if !strings.Contains(result.Message, "r/artificial") {
		t.Fatal("message must list configured sources")
	}
}

func TestComposeExcludesItemsOutsideWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedWindowItem(t, st, "too-new", "Fresh post", store.CategoryNews, 900, now.Add(-23*time.Hour))
	seedWindowItem(t, st, "too-old", "Stale post", store.CategoryNews, 900, now.Add(-49*time.Hour))
	seedWindowItem(t, st, "edge", "Edge post", store.CategoryNews, 100, now.Add(-25*time.Hour))

	composer := digest.NewComposer(st, digest.Config{}, nil,
		digest.WithClock(func() time.Time { return now }))

	result, err := composer.Compose(context.Background())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ExternalID != "edge" {
		t.Fatalf("expected only the in-window item, got %d items", len(result.Items))
	}
}

func TestComposeAppliesSummaryQualityGate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inWindow := now.Add(-30 * time.Hour)

	testsupport.SeedProcessedItem(t, st, "thin", "High score, thin summary", store.Enrichment{
		Summary:  "Too short.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(1000), testsupport.WithCreatedAt(inWindow))
	seedWindowItem(t, st, "solid", "Lower score, real summary", store.CategoryNews, 10, inWindow)

	composer := digest.NewComposer(st, digest.Config{MinSummaryLength: 40}, nil,
		digest.WithClock(func() time.Time { return now }))

	result, err := composer.Compose(context.Background())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ExternalID != "solid" {
		t.Fatal("quality gate must drop items with short summaries")
	}
}

func TestComposeQuietPeriod(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	composer := digest.NewComposer(st, digest.Config{}, nil,
		digest.WithClock(func() time.Time { return now }))

	result, err := composer.Compose(context.Background())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if !result.Quiet {
		t.Fatal("empty window must yield a quiet digest")
	}
	if result.Message != digest.QuietMessage {
		t.Fatalf("unexpected quiet message: %s", result.Message)
	}
	if len(result.Items) != 0 {
		t.Fatal("quiet digest carries no items")
	}
}

func TestRecordEnforcesOneDigestPerDate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedWindowItem(t, st, "r1", "Only story", store.CategoryNews, 100, now.Add(-30*time.Hour))

	composer := digest.NewComposer(st, digest.Config{}, nil,
		digest.WithClock(func() time.Time { return now }))

	composed, err := composer.Compose(context.Background())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	record, err := composer.Record(context.Background(), composed)
	if err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if record.DigestDate != composed.Date {
		t.Fatalf("record date %s != digest date %s", record.DigestDate, composed.Date)
	}

	if _, err := composer.Record(context.Background(), composed); !errors.Is(err, services.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on second record, got %v", err)
	}
}

func TestRecordDedupesQuietDigests(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	composer := digest.NewComposer(st, digest.Config{}, nil,
		digest.WithClock(func() time.Time { return now }))

	composed, err := composer.Compose(context.Background())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if !composed.Quiet {
		t.Fatal("expected quiet digest for empty store")
	}

	record, err := composer.Record(context.Background(), composed)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if record.ItemCount != 0 {
		t.Fatalf("quiet digest recorded %d items, want 0", record.ItemCount)
	}

	// The date gate holds for quiet days too: a re-run the same day must not
	// re-broadcast the quiet message.
	if _, err := composer.Record(context.Background(), composed); !errors.Is(err, services.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on quiet re-record, got %v", err)
	}
}
