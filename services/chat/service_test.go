package chat_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"tokencast/internal/database"
	"tokencast/models"
	"tokencast/services/chat"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedStream(t *testing.T, db *database.DB) *models.Stream {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	user := &models.User{ID: uuid.NewString(), Username: "creator-" + uuid.NewString(), DisplayName: "Creator", CreatedAt: now, UpdatedAt: now}
	if err := db.Users.Insert(ctx, user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	stream := &models.Stream{ID: uuid.NewString(), UserID: user.ID, Title: "Test Stream", Slug: "test-stream", CreatedAt: now, UpdatedAt: now}
	if err := db.Streams.Create(ctx, stream); err != nil {
		t.Fatalf("failed to seed stream: %v", err)
	}
	return stream
}

func TestPostMessageValidation(t *testing.T) {
	db := newTestDB(t)
	svc := chat.NewService(db.Chat, nil)
	stream := seedStream(t, db)

	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \t\n  ", true},
		{"single character", "x", false},
		{"exactly max length", strings.Repeat("a", 500), false},
		{"one over max", strings.Repeat("a", 501), true},
		{"max length multibyte", strings.Repeat("é", 500), false},
		{"over max multibyte", strings.Repeat("é", 501), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PostMessage(context.Background(), stream.ID, tc.content, "viewer", nil)
			if tc.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected message to post, got %v", err)
			}
		})
	}
}

func TestPostMessageTrimsContentAndDefaultsAuthor(t *testing.T) {
	db := newTestDB(t)
	svc := chat.NewService(db.Chat, nil)
	stream := seedStream(t, db)

	message, err := svc.PostMessage(context.Background(), stream.ID, "  gm everyone  ", "   ", nil)
	if err != nil {
		t.Fatalf("post returned error: %v", err)
	}
	if message.Content != "gm everyone" {
		t.Fatalf("expected trimmed content, got %q", message.Content)
	}
	if message.AuthorName != "anonymous" {
		t.Fatalf("expected anonymous author, got %q", message.AuthorName)
	}
}

func TestDeleteMessage(t *testing.T) {
	db := newTestDB(t)
	svc := chat.NewService(db.Chat, nil)
	stream := seedStream(t, db)

	message, err := svc.PostMessage(context.Background(), stream.ID, "delete me", "viewer", nil)
	if err != nil {
		t.Fatalf("post returned error: %v", err)
	}

	if err := svc.DeleteMessage(context.Background(), stream.ID, message.ID); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}

	// Deleting the same ID again is a not-found, not a no-op.
	err = svc.DeleteMessage(context.Background(), stream.ID, message.ID)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on absent message, got %v", err)
	}
}

func TestDeleteMessageIsScopedToStream(t *testing.T) {
	db := newTestDB(t)
	svc := chat.NewService(db.Chat, nil)
	moderated := seedStream(t, db)
	other := seedStream(t, db)

	message, err := svc.PostMessage(context.Background(), other.ID, "belongs elsewhere", "viewer", nil)
	if err != nil {
		t.Fatalf("post returned error: %v", err)
	}

	// A valid message ID under the wrong stream must not match.
	err = svc.DeleteMessage(context.Background(), moderated.ID, message.ID)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a message from another stream, got %v", err)
	}

	remaining, err := svc.ListMessages(context.Background(), other.ID)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected the other stream's message to survive, got %d messages", len(remaining))
	}
}

func TestClearHistoryLeavesOtherStreamsAlone(t *testing.T) {
	db := newTestDB(t)
	svc := chat.NewService(db.Chat, nil)
	first := seedStream(t, db)
	second := seedStream(t, db)

	for i := 0; i < 3; i++ {
		if _, err := svc.PostMessage(context.Background(), first.ID, "hello", "viewer", nil); err != nil {
			t.Fatalf("post returned error: %v", err)
		}
	}
	if _, err := svc.PostMessage(context.Background(), second.ID, "unrelated", "viewer", nil); err != nil {
		t.Fatalf("post returned error: %v", err)
	}

	deleted, err := svc.ClearHistory(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("clear returned error: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}

	remaining, err := svc.ListMessages(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected the other stream to keep its message, got %d", len(remaining))
	}
}

func TestListMessagesReturnsCreationOrder(t *testing.T) {
	db := newTestDB(t)
	svc := chat.NewService(db.Chat, nil)
	stream := seedStream(t, db)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if _, err := svc.PostMessage(context.Background(), stream.ID, c, "viewer", nil); err != nil {
			t.Fatalf("post returned error: %v", err)
		}
	}

	messages, err := svc.ListMessages(context.Background(), stream.ID)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(messages))
	}
	for i, want := range contents {
		if messages[i].Content != want {
			t.Fatalf("expected message %d to be %q, got %q", i, want, messages[i].Content)
		}
	}
}
