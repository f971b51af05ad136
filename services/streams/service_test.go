package streams_test

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
	"tokencast/services/streams"
)

const testToken = "So11111111111111111111111111111111111111112"

type stubEgress struct {
	started []string
	stopped []string
	err     error
}

func (s *stubEgress) StartEgress(ctx context.Context, roomName string) (*models.EgressJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.started = append(s.started, roomName)
	return &models.EgressJob{EgressID: "egress-" + roomName, RoomName: roomName, Status: "active"}, nil
}

func (s *stubEgress) StopEgress(ctx context.Context, egressID string) error {
	s.stopped = append(s.stopped, egressID)
	return s.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *database.DB) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{ID: uuid.NewString(), Username: "creator-" + uuid.NewString(), DisplayName: "Night Trader", CreatedAt: now, UpdatedAt: now}
	if err := db.Users.Insert(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestEnsureForUserCreatesOnce(t *testing.T) {
	db := newTestDB(t)
	svc := streams.NewService(db.Streams, &stubEgress{})
	user := seedUser(t, db)

	first, err := svc.EnsureForUser(context.Background(), user.ID, user.DisplayName)
	if err != nil {
		t.Fatalf("ensure returned error: %v", err)
	}
	if first.Title != "Night Trader" || first.Slug != "night-trader" {
		t.Fatalf("expected stream titled after the user, got %q / %q", first.Title, first.Slug)
	}

	second, err := svc.EnsureForUser(context.Background(), user.ID, "Different Name")
	if err != nil {
		t.Fatalf("second ensure returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected one stream per user, got %s and %s", first.ID, second.ID)
	}
}

func TestGetUnknownStream(t *testing.T) {
	db := newTestDB(t)
	svc := streams.NewService(db.Streams, &stubEgress{})

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateTitle(t *testing.T) {
	db := newTestDB(t)
	svc := streams.NewService(db.Streams, &stubEgress{})
	user := seedUser(t, db)
	stream, err := svc.EnsureForUser(context.Background(), user.ID, user.DisplayName)
	if err != nil {
		t.Fatalf("ensure returned error: %v", err)
	}

	if err := svc.UpdateTitle(context.Background(), stream.ID, user.ID, "  Späte Nacht Show  "); err != nil {
		t.Fatalf("update title returned error: %v", err)
	}
	updated, err := svc.Get(context.Background(), stream.ID)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if updated.Title != "Späte Nacht Show" {
		t.Fatalf("expected trimmed title, got %q", updated.Title)
	}
	if updated.Slug != "spate-nacht-show" {
		t.Fatalf("expected transliterated slug, got %q", updated.Slug)
	}

	if err := svc.UpdateTitle(context.Background(), stream.ID, user.ID, "   "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	if err := svc.UpdateTitle(context.Background(), stream.ID, user.ID, strings.Repeat("t", 141)); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for overlong title, got %v", err)
	}
	if err := svc.UpdateTitle(context.Background(), stream.ID, "someone-else", "hijack"); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-owner, got %v", err)
	}
}

func TestAttachAndDetachToken(t *testing.T) {
	db := newTestDB(t)
	svc := streams.NewService(db.Streams, &stubEgress{})
	user := seedUser(t, db)
	stream, err := svc.EnsureForUser(context.Background(), user.ID, user.DisplayName)
	if err != nil {
		t.Fatalf("ensure returned error: %v", err)
	}

	if err := svc.AttachToken(context.Background(), stream.ID, user.ID, "not-a-token"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for malformed token, got %v", err)
	}

	if err := svc.AttachToken(context.Background(), stream.ID, user.ID, testToken); err != nil {
		t.Fatalf("attach returned error: %v", err)
	}
	updated, _ := svc.Get(context.Background(), stream.ID)
	if updated.TokenAddress == nil || *updated.TokenAddress != testToken {
		t.Fatalf("expected token attached, got %v", updated.TokenAddress)
	}

	if err := svc.DetachToken(context.Background(), stream.ID, user.ID); err != nil {
		t.Fatalf("detach returned error: %v", err)
	}
	updated, _ = svc.Get(context.Background(), stream.ID)
	if updated.TokenAddress != nil {
		t.Fatalf("expected token cleared, got %v", *updated.TokenAddress)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	db := newTestDB(t)
	egress := &stubEgress{}
	svc := streams.NewService(db.Streams, egress)
	user := seedUser(t, db)
	stream, err := svc.EnsureForUser(context.Background(), user.ID, user.DisplayName)
	if err != nil {
		t.Fatalf("ensure returned error: %v", err)
	}

	// Recording an offline stream is rejected.
	if _, err := svc.StartRecording(context.Background(), stream.ID, user.ID); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for offline stream, got %v", err)
	}

	if err := svc.GoLive(context.Background(), stream.ID, user.ID); err != nil {
		t.Fatalf("go live returned error: %v", err)
	}

	job, err := svc.StartRecording(context.Background(), stream.ID, user.ID)
	if err != nil {
		t.Fatalf("start recording returned error: %v", err)
	}
	if job.RoomName != stream.ID {
		t.Fatalf("expected room name to equal stream ID, got %q", job.RoomName)
	}

	// A second start while one is active conflicts.
	if _, err := svc.StartRecording(context.Background(), stream.ID, user.ID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected conflict on double start, got %v", err)
	}

	if err := svc.StopRecording(context.Background(), stream.ID, user.ID); err != nil {
		t.Fatalf("stop recording returned error: %v", err)
	}
	if len(egress.stopped) != 1 || egress.stopped[0] != job.EgressID {
		t.Fatalf("expected egress %q stopped, got %v", job.EgressID, egress.stopped)
	}

	if err := svc.StopRecording(context.Background(), stream.ID, user.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found when no recording is active, got %v", err)
	}
}

func TestGoOfflineZeroesCountAndStopsRecording(t *testing.T) {
	db := newTestDB(t)
	egress := &stubEgress{}
	svc := streams.NewService(db.Streams, egress)
	user := seedUser(t, db)
	stream, err := svc.EnsureForUser(context.Background(), user.ID, user.DisplayName)
	if err != nil {
		t.Fatalf("ensure returned error: %v", err)
	}

	if err := svc.GoLive(context.Background(), stream.ID, user.ID); err != nil {
		t.Fatalf("go live returned error: %v", err)
	}
	if _, err := svc.StartRecording(context.Background(), stream.ID, user.ID); err != nil {
		t.Fatalf("start recording returned error: %v", err)
	}
	if _, err := db.Streams.UpdateViewerCount(context.Background(), stream.ID, 42); err != nil {
		t.Fatalf("failed to set viewer count: %v", err)
	}

	if err := svc.GoOffline(context.Background(), stream.ID, user.ID); err != nil {
		t.Fatalf("go offline returned error: %v", err)
	}

	updated, _ := svc.Get(context.Background(), stream.ID)
	if updated.Live {
		t.Fatalf("expected stream offline")
	}
	if updated.ViewerCount != 0 {
		t.Fatalf("expected viewer count zeroed, got %d", updated.ViewerCount)
	}
	if updated.EgressID != nil {
		t.Fatalf("expected egress cleared, got %v", *updated.EgressID)
	}
	if len(egress.stopped) != 1 {
		t.Fatalf("expected egress stop call, got %d", len(egress.stopped))
	}
}
