package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recipientColumns = "id, display_name, status, interaction_count, last_interaction_at, created_at, updated_at"

// UpsertRecipient registers a recipient or refreshes an existing one. A
// blocked or deleted recipient that shows up again is reactivated.
func (s *Store) UpsertRecipient(ctx context.Context, id int64, displayName string) error {
	now := formatTime(time.Now().UTC())
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO recipients (id, display_name, status, interaction_count, last_interaction_at, created_at, updated_at)
         VALUES (?, ?, ?, 1, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             display_name = excluded.display_name,
             status = ?,
             interaction_count = recipients.interaction_count + 1,
             last_interaction_at = excluded.last_interaction_at,
             updated_at = excluded.updated_at`,
		id,
		nullableString(displayName),
		RecipientActive,
		now,
		now,
		now,
		RecipientActive,
	)
	if err != nil {
		return fmt.Errorf("upsert recipient: %w", err)
	}
	return nil
}

// ActiveRecipients returns all recipients eligible for delivery.
func (s *Store) ActiveRecipients(ctx context.Context) ([]*Recipient, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recipientColumns+` FROM recipients WHERE status = ? ORDER BY id`,
		RecipientActive,
	)
	if err != nil {
		return nil, fmt.Errorf("active recipients: %w", err)
	}
	defer rows.Close()
	return collectRecipients(rows)
}

// ListRecipients returns all recipients regardless of status.
func (s *Store) ListRecipients(ctx context.Context) ([]*Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recipientColumns+` FROM recipients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()
	return collectRecipients(rows)
}

// SetRecipientStatus moves a recipient to the given status. Used when the
// transport reports the recipient blocked the bot or deleted their account.
func (s *Store) SetRecipientStatus(ctx context.Context, id int64, status RecipientStatus) error {
	now := formatTime(time.Now().UTC())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE recipients SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("set recipient status: %w", err)
	}
	return nil
}

// GetRecipient fetches a recipient by id, or nil when unknown.
func (s *Store) GetRecipient(ctx context.Context, id int64) (*Recipient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recipientColumns+` FROM recipients WHERE id = ?`, id)
	recipient, err := scanRecipient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	return recipient, nil
}

func collectRecipients(rows *sql.Rows) ([]*Recipient, error) {
	var recipients []*Recipient
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	return recipients, rows.Err()
}

func scanRecipient(scanner interface{ Scan(dest ...any) error }) (*Recipient, error) {
	var (
		id          int64
		displayName sql.NullString
		statusStr   string
		count       int64
		interaction sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &displayName, &statusStr, &count, &interaction, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	recipient := &Recipient{
		ID:               id,
		DisplayName:      displayName.String,
		Status:           RecipientStatus(statusStr),
		InteractionCount: count,
	}
	if interaction.Valid {
		if touched, err := parseTimeString(interaction.String); err == nil {
			recipient.LastInteractionAt = &touched
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		recipient.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		recipient.UpdatedAt = updated
	}
	return recipient, nil
}
