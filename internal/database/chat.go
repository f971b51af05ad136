package database

import (
	"context"
	"database/sql"
	"fmt"

	"tokencast/models"
)

// ChatRepository provides row-level access to the append-only chat log.
type ChatRepository struct {
	conn *sql.DB
}

func NewChatRepository(conn *sql.DB) *ChatRepository {
	return &ChatRepository{conn: conn}
}

// Insert persists a new message.
func (r *ChatRepository) Insert(ctx context.Context, m *models.ChatMessage) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO chat_messages (id, stream_id, content, author_name, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.StreamID, m.Content, m.AuthorName, nullable(m.UserID), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// Delete removes a single message and reports whether a row was removed. The
// stream scope is part of the key: a message ID belonging to another stream
// does not match.
func (r *ChatRepository) Delete(ctx context.Context, streamID, id string) (bool, error) {
	res, err := r.conn.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE id = ? AND stream_id = ?`, id, streamID)
	if err != nil {
		return false, fmt.Errorf("delete chat message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete chat message: %w", err)
	}
	return affected > 0, nil
}

// DeleteByStream bulk-deletes all messages for a stream and returns the count.
func (r *ChatRepository) DeleteByStream(ctx context.Context, streamID string) (int64, error) {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM chat_messages WHERE stream_id = ?`, streamID)
	if err != nil {
		return 0, fmt.Errorf("clear chat history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear chat history: %w", err)
	}
	return affected, nil
}

// ListByStream returns messages in creation order. A limit of 0 means no limit.
func (r *ChatRepository) ListByStream(ctx context.Context, streamID string, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, stream_id, content, author_name, user_id, created_at
		FROM chat_messages WHERE stream_id = ? ORDER BY created_at, id`
	args := []any{streamID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var userID sql.NullString
		if err := rows.Scan(&m.ID, &m.StreamID, &m.Content, &m.AuthorName, &userID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if userID.Valid {
			m.UserID = &userID.String
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
