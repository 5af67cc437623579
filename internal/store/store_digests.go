package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DigestExistsForDate reports whether a digest record already exists for the
// given date (formatted YYYY-MM-DD).
func (s *Store) DigestExistsForDate(ctx context.Context, digestDate string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT 1 FROM digests WHERE digest_date = ?`,
		digestDate,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("digest exists: %w", err)
	}
	return true, nil
}

// CreateDigest records a composed digest for a date together with the
// external ids of its entries. A second digest on the same date fails on the
// unique date constraint.
func (s *Store) CreateDigest(ctx context.Context, digestDate string, itemExternalIDs []string) (*DigestRecord, error) {
	record := &DigestRecord{
		ID:         uuid.NewString(),
		DigestDate: digestDate,
		ItemCount:  len(itemExternalIDs),
		Status:     DigestPending,
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin digest tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO digests (id, digest_date, item_count, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.DigestDate,
		record.ItemCount,
		record.Status,
		formatTime(record.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert digest: %w", err)
	}
	for _, externalID := range itemExternalIDs {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO digest_items (digest_id, item_external_id) VALUES (?, ?)`,
			record.ID,
			externalID,
		); err != nil {
			return nil, fmt.Errorf("insert digest item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit digest: %w", err)
	}
	return record, nil
}

// UpdateDigestStatus moves a digest record to the given status.
func (s *Store) UpdateDigestStatus(ctx context.Context, digestID string, status DigestStatus) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE digests SET status = ? WHERE id = ?`,
		status,
		digestID,
	)
	if err != nil {
		return fmt.Errorf("update digest status: %w", err)
	}
	return nil
}

// RecentDigests returns the most recent digest records, newest first.
func (s *Store) RecentDigests(ctx context.Context, limit int) ([]*DigestRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, digest_date, item_count, status, created_at
         FROM digests ORDER BY digest_date DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent digests: %w", err)
	}
	defer rows.Close()

	var records []*DigestRecord
	for rows.Next() {
		var (
			record     DigestRecord
			createdRaw string
		)
		if err := rows.Scan(&record.ID, &record.DigestDate, &record.ItemCount, &record.Status, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			record.CreatedAt = created
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// DigestItemIDs returns the external ids recorded for a digest.
func (s *Store) DigestItemIDs(ctx context.Context, digestID string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT item_external_id FROM digest_items WHERE digest_id = ? ORDER BY item_external_id`,
		digestID,
	)
	if err != nil {
		return nil, fmt.Errorf("digest items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
