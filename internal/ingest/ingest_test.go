package ingest_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"skimmer/internal/ingest"
	"skimmer/internal/store"
	"skimmer/internal/testsupport"
)

const sampleLine = `{"reddit_id": "abc123", "subreddit_name": "artificial", "title": "New model drops", "selftext": "", "url": "https://example.com/post", "permalink": "https://reddit.com/r/artificial/comments/abc123", "author": "researcher", "is_self": false, "score": 120, "num_comments": 45, "upvote_ratio": 0.97, "created_utc": 1767225600}`

func TestRunInsertsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ingester := ingest.NewIngester(st, nil)
	summary, err := ingester.Run(context.Background(), strings.NewReader(sampleLine+"\n"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Read != 1 || summary.Inserted != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	item, err := st.GetByExternalID(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if item == nil {
		t.Fatal("item not stored")
	}
	if item.Status != store.StatusPending {
		t.Fatalf("new item must be pending, got %s", item.Status)
	}
	if item.Community != "artificial" || item.Score != 120 || item.CommentCount != 45 {
		t.Fatalf("fields not carried over: %+v", item)
	}
	want := time.Unix(1767225600, 0).UTC()
	if !item.CreatedAt.Equal(want) {
		t.Fatalf("created_at %v, want %v", item.CreatedAt, want)
	}
}

func TestRunCountsDuplicatesWithoutChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ingester := ingest.NewIngester(st, nil)
	input := sampleLine + "\n" + sampleLine + "\n"
	summary, err := ingester.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Read != 2 || summary.Inserted != 1 || summary.Duplicates != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunSkipsMalformedAndInvalidLines(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	input := strings.Join([]string{
		"not json",
		`{"reddit_id": "", "subreddit_name": "artificial", "title": "No id"}`,
		`{"reddit_id": "ok1", "subreddit_name": "artificial", "title": ""}`,
		`{"reddit_id": "ok2", "subreddit_name": "", "title": "No community"}`,
		"",
		sampleLine,
	}, "\n")

	ingester := ingest.NewIngester(st, nil)
	summary, err := ingester.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Read != 5 {
		t.Fatalf("blank lines must not count as read: %+v", summary)
	}
	if summary.Invalid != 4 || summary.Inserted != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
