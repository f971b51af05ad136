package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tokencast/internal/database"
	"tokencast/models"

	"github.com/google/uuid"
)

type chatStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	Delete(ctx context.Context, streamID, id string) (bool, error)
	DeleteByStream(ctx context.Context, streamID string) (int64, error)
	ListByStream(ctx context.Context, streamID string, limit int) ([]models.ChatMessage, error)
}

var _ chatStore = (*database.ChatRepository)(nil)

// defaultListLimit bounds how much history one page load pulls.
const defaultListLimit = 200

// Service is the append-only chat log per stream. Content bounds are enforced
// here, at write time. Persisted messages are also broadcast to the stream's
// websocket feed.
type Service struct {
	store chatStore
	hub   *Hub
}

// NewService creates the chat service. A nil hub disables live delivery.
func NewService(store chatStore, hub *Hub) *Service {
	return &Service{store: store, hub: hub}
}

// PostMessage validates, persists and broadcasts a message. Content must be
// non-empty after trimming and at most 500 characters.
func (s *Service) PostMessage(ctx context.Context, streamID, content, authorName string, userID *string) (*models.ChatMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: message is empty", models.ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > models.MaxChatMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", models.ErrValidation, models.MaxChatMessageLength)
	}

	author := strings.TrimSpace(authorName)
	if author == "" {
		author = "anonymous"
	}

	message := &models.ChatMessage{
		ID:         uuid.NewString(),
		StreamID:   streamID,
		Content:    trimmed,
		AuthorName: author,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}

	if s.hub != nil {
		s.hub.Broadcast(streamID, Event{Type: "message", Message: message})
	}
	return message, nil
}

// DeleteMessage removes a single message. Deleting an absent ID, or an ID
// that belongs to a different stream, surfaces ErrNotFound.
func (s *Service) DeleteMessage(ctx context.Context, streamID, id string) error {
	ok, err := s.store.Delete(ctx, streamID, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: message %s", models.ErrNotFound, id)
	}

	if s.hub != nil {
		s.hub.Broadcast(streamID, Event{Type: "delete", MessageID: id})
	}
	return nil
}

// ClearHistory bulk-deletes all messages for a stream.
func (s *Service) ClearHistory(ctx context.Context, streamID string) (int64, error) {
	deleted, err := s.store.DeleteByStream(ctx, streamID)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}

	if s.hub != nil {
		s.hub.Broadcast(streamID, Event{Type: "clear"})
	}
	return deleted, nil
}

// ListMessages returns messages in creation order. Callers rendering a page
// are expected to degrade a failure here to an empty list; the store itself
// does not swallow errors.
func (s *Service) ListMessages(ctx context.Context, streamID string) ([]models.ChatMessage, error) {
	messages, err := s.store.ListByStream(ctx, streamID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
