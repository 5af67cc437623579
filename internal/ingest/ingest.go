package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"skimmer/internal/logging"
	"skimmer/internal/services"
	"skimmer/internal/store"
)

// maxLineBytes bounds a single JSON line. Post bodies can be long but never
// this long.
const maxLineBytes = 1 << 20

// Record is one raw item as produced by the fetch collaborator.
type Record struct {
	ExternalID   string  `json:"reddit_id"`
	Community    string  `json:"subreddit_name"`
	Title        string  `json:"title"`
	Body         string  `json:"selftext"`
	URL          string  `json:"url"`
	Permalink    string  `json:"permalink"`
	Thumbnail    string  `json:"thumbnail"`
	Author       string  `json:"author"`
	Pinned       bool    `json:"stickied"`
	Sensitive    bool    `json:"over_18"`
	SelfPost     bool    `json:"is_self"`
	Score        int64   `json:"score"`
	CommentCount int64   `json:"num_comments"`
	UpvoteRatio  float64 `json:"upvote_ratio"`
	CreatedUTC   float64 `json:"created_utc"`
}

// Summary reports what one ingestion run did.
type Summary struct {
	Read       int
	Inserted   int
	Duplicates int
	Invalid    int
}

// Ingester decodes raw item lines and upserts them.
type Ingester struct {
	store  *store.Store
	logger *slog.Logger
}

// NewIngester wires an ingester.
func NewIngester(st *store.Store, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ingester{
		store:  st,
		logger: logger.With(logging.String(logging.FieldComponent, "ingest")),
	}
}

// Run reads JSON lines from r and upserts each record. Duplicate external ids
// are no-ops by contract; malformed lines are counted and logged, never fatal.
func (i *Ingester) Run(ctx context.Context, r io.Reader) (Summary, error) {
	var summary Summary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		summary.Read++

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			summary.Invalid++
			i.logger.Warn("skipping malformed line",
				logging.Int("line", summary.Read), logging.Error(err))
			continue
		}
		item, err := record.toItem()
		if err != nil {
			summary.Invalid++
			i.logger.Warn("skipping invalid record",
				logging.Int("line", summary.Read), logging.Error(err))
			continue
		}

		inserted, err := i.store.UpsertItem(ctx, item)
		if err != nil {
			return summary, services.Wrap(services.ErrStoreUnavailable, "ingest", "upsert item", item.ExternalID, err)
		}
		if inserted {
			summary.Inserted++
		} else {
			summary.Duplicates++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read input: %w", err)
	}

	i.logger.Info("ingestion run complete",
		logging.Int("read", summary.Read),
		logging.Int("inserted", summary.Inserted),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("invalid", summary.Invalid),
	)
	return summary, nil
}

func (r Record) toItem() (*store.Item, error) {
	externalID := strings.TrimSpace(r.ExternalID)
	if externalID == "" {
		return nil, fmt.Errorf("missing reddit_id")
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, fmt.Errorf("missing title for %s", externalID)
	}
	community := strings.TrimSpace(r.Community)
	if community == "" {
		return nil, fmt.Errorf("missing subreddit for %s", externalID)
	}

	item := &store.Item{
		ExternalID:   externalID,
		Community:    community,
		Title:        title,
		Body:         strings.TrimSpace(r.Body),
		URL:          strings.TrimSpace(r.URL),
		Permalink:    strings.TrimSpace(r.Permalink),
		Thumbnail:    strings.TrimSpace(r.Thumbnail),
		Author:       strings.TrimSpace(r.Author),
		Pinned:       r.Pinned,
		Sensitive:    r.Sensitive,
		SelfPost:     r.SelfPost,
		Score:        r.Score,
		CommentCount: r.CommentCount,
		UpvoteRatio:  r.UpvoteRatio,
	}
	if r.CreatedUTC > 0 {
		item.CreatedAt = time.Unix(int64(r.CreatedUTC), 0).UTC()
	}
	return item, nil
}
