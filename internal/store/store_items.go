package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const itemColumns = "id, external_id, community, title, body, url, permalink, thumbnail, author, " +
	"pinned, sensitive, self_post, score, comment_count, upvote_ratio, " +
	"summary, category, keywords_json, status, url_fetch_attempts, processed_at, " +
	"pushed, pushed_at, created_at, inserted_at, updated_at"

// UpsertItem inserts a raw item keyed by external id. Upserts against an
// already-present key are no-ops by contract; the returned bool reports
// whether a row was inserted.
func (s *Store) UpsertItem(ctx context.Context, item *Item) (bool, error) {
	if item == nil {
		return false, errors.New("item is nil")
	}
	if item.ExternalID == "" {
		return false, errors.New("item external id required")
	}
	if item.Title == "" {
		return false, errors.New("item title required")
	}

	now := time.Now().UTC()
	created := item.CreatedAt
	if created.IsZero() {
		created = now
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO items (
            external_id, community, title, body, url, permalink, thumbnail, author,
            pinned, sensitive, self_post, score, comment_count, upvote_ratio,
            status, created_at, inserted_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (external_id) DO NOTHING`,
		item.ExternalID,
		item.Community,
		item.Title,
		nullableString(item.Body),
		nullableString(item.URL),
		nullableString(item.Permalink),
		nullableString(item.Thumbnail),
		nullableString(item.Author),
		boolToInt(item.Pinned),
		boolToInt(item.Sensitive),
		boolToInt(item.SelfPost),
		item.Score,
		item.CommentCount,
		item.UpvoteRatio,
		StatusPending,
		formatTime(created),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("upsert item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetByID fetches an item by internal identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByExternalID fetches an item by the source platform's identifier.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE external_id = ?`, externalID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by external id: %w", err)
	}
	return item, nil
}

// PendingBatch returns the newest pending items, bounded by limit.
func (s *Store) PendingBatch(ctx context.Context, limit int) ([]*Item, error) {
	return s.Search(ctx, ItemQuery{
		Statuses: []Status{StatusPending},
		OrderBy:  OrderNewest,
		Limit:    limit,
	})
}

// SampleRetryable returns a uniform-random sample of failed items still below
// the fetch attempt ceiling.
func (s *Store) SampleRetryable(ctx context.Context, limit, maxFetchAttempts int) ([]*Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	statuses := retryableStatuses()
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	sqlText, args, err := builder.Select(itemColumns).From("items").
		Where(sq.Eq{"status": values}).
		Where(sq.Lt{"url_fetch_attempts": maxFetchAttempts}).
		OrderBy("RANDOM()").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build retryable query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("sample retryable: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// MarkProcessed finalizes enrichment with a conditional claim on the item's
// prior status. The write is the claim: if another invocation already moved
// the item out of fromStatus, nothing changes and false is returned.
func (s *Store) MarkProcessed(ctx context.Context, id int64, fromStatus Status, enrichment Enrichment) (bool, error) {
	keywordsJSON, err := json.Marshal(enrichment.Keywords)
	if err != nil {
		return false, fmt.Errorf("marshal keywords: %w", err)
	}
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items
         SET status = ?, summary = ?, category = ?, keywords_json = ?,
             processed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessed,
		enrichment.Summary,
		string(enrichment.Category),
		string(keywordsJSON),
		now,
		now,
		id,
		fromStatus,
	)
	if err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkFetchFailed records a link-fetch failure: the attempt counter is
// incremented atomically and the status moves to url_fetch_failed, conditional
// on the prior status.
func (s *Store) MarkFetchFailed(ctx context.Context, id int64, fromStatus Status) (bool, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items
         SET status = ?, url_fetch_attempts = url_fetch_attempts + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusURLFetchFailed,
		now,
		id,
		fromStatus,
	)
	if err != nil {
		return false, fmt.Errorf("mark fetch failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkGenerationFailed records a generation failure. The attempt counter is
// untouched: the link fetch succeeded, the generation did not.
func (s *Store) MarkGenerationFailed(ctx context.Context, id int64, fromStatus Status) (bool, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessingFailed,
		now,
		id,
		fromStatus,
	)
	if err != nil {
		return false, fmt.Errorf("mark generation failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkPushed flips the pushed flag false to true. The flag never reverts; a
// second call is a no-op and returns false.
func (s *Store) MarkPushed(ctx context.Context, id int64) (bool, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET pushed = 1, pushed_at = ?, updated_at = ? WHERE id = ? AND pushed = 0`,
		now,
		now,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark pushed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Ordering options for Search.
const (
	OrderTopScore = "score"
	OrderNewest   = "created_at"
)

// ItemQuery describes a filtered range query over items. Zero-valued fields
// are not applied.
type ItemQuery struct {
	Statuses         []Status
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
	MinScore         *int64
	TitleContains    string
	SummaryContains  string
	KeywordsAny      []string
	MinSummaryLength int
	Unpushed         bool
	OrderBy          string
	Limit            int
}

// Search runs a filtered range query over items.
func (s *Store) Search(ctx context.Context, query ItemQuery) ([]*Item, error) {
	stmt := builder.Select(itemColumns).From("items")

	if len(query.Statuses) > 0 {
		statuses := make([]string, len(query.Statuses))
		for i, status := range query.Statuses {
			statuses[i] = string(status)
		}
		stmt = stmt.Where(sq.Eq{"status": statuses})
	}
	if query.CreatedAfter != nil {
		stmt = stmt.Where(sq.GtOrEq{"created_at": formatTime(*query.CreatedAfter)})
	}
	if query.CreatedBefore != nil {
		stmt = stmt.Where(sq.Lt{"created_at": formatTime(*query.CreatedBefore)})
	}
	if query.MinScore != nil {
		stmt = stmt.Where(sq.GtOrEq{"score": *query.MinScore})
	}
	if query.TitleContains != "" {
		stmt = stmt.Where(sq.Like{"title": "%" + query.TitleContains + "%"})
	}
	if query.SummaryContains != "" {
		stmt = stmt.Where(sq.Like{"summary": "%" + query.SummaryContains + "%"})
	}
	if len(query.KeywordsAny) > 0 {
		or := make(sq.Or, 0, len(query.KeywordsAny))
		for _, keyword := range query.KeywordsAny {
			or = append(or, sq.Like{"keywords_json": `%"` + keyword + `"%`})
		}
		stmt = stmt.Where(or)
	}
	if query.MinSummaryLength > 0 {
		stmt = stmt.Where("summary IS NOT NULL AND LENGTH(summary) >= ?", query.MinSummaryLength)
	}
	if query.Unpushed {
		stmt = stmt.Where(sq.Eq{"pushed": 0})
	}

	switch query.OrderBy {
	case OrderTopScore:
		stmt = stmt.OrderBy("score DESC", "created_at DESC")
	case OrderNewest, "":
		stmt = stmt.OrderBy("created_at DESC")
	default:
		return nil, fmt.Errorf("unsupported order %q", query.OrderBy)
	}
	if query.Limit > 0 {
		stmt = stmt.Limit(uint64(query.Limit))
	}

	sqlText, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM items GROUP BY status`)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, err
		}
		counts.Total += count
		switch status {
		case StatusPending:
			counts.Pending = count
		case StatusProcessed:
			counts.Processed = count
		case StatusURLFetchFailed:
			counts.URLFetchFailed = count
		case StatusProcessingFailed:
			counts.ProcessingFailed = count
		}
	}
	return counts, rows.Err()
}

// CategoryCounts returns processed-item counts grouped by category, largest first.
func (s *Store) CategoryCounts(ctx context.Context) (map[Category]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT category, COUNT(1) FROM items WHERE status = ? AND category IS NOT NULL GROUP BY category`,
		StatusProcessed,
	)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Category]int)
	for rows.Next() {
		var category Category
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		externalID    string
		community     string
		title         string
		body          sql.NullString
		urlValue      sql.NullString
		permalink     sql.NullString
		thumbnail     sql.NullString
		author        sql.NullString
		pinned        sql.NullInt64
		sensitive     sql.NullInt64
		selfPost      sql.NullInt64
		score         int64
		commentCount  int64
		upvoteRatio   float64
		summary       sql.NullString
		category      sql.NullString
		keywordsJSON  sql.NullString
		statusStr     string
		fetchAttempts int
		processedRaw  sql.NullString
		pushed        sql.NullInt64
		pushedRaw     sql.NullString
		createdRaw    sql.NullString
		insertedRaw   sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&externalID,
		&community,
		&title,
		&body,
		&urlValue,
		&permalink,
		&thumbnail,
		&author,
		&pinned,
		&sensitive,
		&selfPost,
		&score,
		&commentCount,
		&upvoteRatio,
		&summary,
		&category,
		&keywordsJSON,
		&statusStr,
		&fetchAttempts,
		&processedRaw,
		&pushed,
		&pushedRaw,
		&createdRaw,
		&insertedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		ExternalID:       externalID,
		Community:        community,
		Title:            title,
		Body:             body.String,
		URL:              urlValue.String,
		Permalink:        permalink.String,
		Thumbnail:        thumbnail.String,
		Author:           author.String,
		Pinned:           pinned.Int64 != 0,
		Sensitive:        sensitive.Int64 != 0,
		SelfPost:         selfPost.Int64 != 0,
		Score:            score,
		CommentCount:     commentCount,
		UpvoteRatio:      upvoteRatio,
		Summary:          summary.String,
		Category:         Category(category.String),
		Status:           Status(statusStr),
		URLFetchAttempts: fetchAttempts,
		Pushed:           pushed.Int64 != 0,
	}

	if keywordsJSON.Valid && keywordsJSON.String != "" {
		// Malformed stored keyword payloads are dropped, not fatal.
		_ = json.Unmarshal([]byte(keywordsJSON.String), &item.Keywords)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if inserted, err := parseTimeString(insertedRaw.String); err == nil {
		item.InsertedAt = inserted
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			item.ProcessedAt = &processed
		}
	}
	if pushedRaw.Valid {
		if pushedAt, err := parseTimeString(pushedRaw.String); err == nil {
			item.PushedAt = &pushedAt
		}
	}
	return item, nil
}
