package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// History returns the stored conversation turns for a recipient, oldest
// first. A corrupt stored payload resets to an empty history rather than
// blocking the conversation.
func (s *Store) History(ctx context.Context, recipientID int64) ([]ConversationTurn, error) {
	var turnsJSON string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT turns_json FROM conversations WHERE recipient_id = ?`,
		recipientID,
	).Scan(&turnsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var turns []ConversationTurn
	if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
		return nil, nil
	}
	return turns, nil
}

// SaveHistory replaces a recipient's conversation with the given turns,
// keeping only the most recent maxTurns entries.
func (s *Store) SaveHistory(ctx context.Context, recipientID int64, turns []ConversationTurn, maxTurns int) error {
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	now := formatTime(time.Now().UTC())
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO conversations (recipient_id, turns_json, updated_at)
         VALUES (?, ?, ?)
         ON CONFLICT (recipient_id) DO UPDATE SET
             turns_json = excluded.turns_json,
             updated_at = excluded.updated_at`,
		recipientID,
		string(payload),
		now,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// ClearHistory drops a recipient's conversation history.
func (s *Store) ClearHistory(ctx context.Context, recipientID int64) error {
	_, err := s.execWithRetry(ctx, `DELETE FROM conversations WHERE recipient_id = ?`, recipientID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
