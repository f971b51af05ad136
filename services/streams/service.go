package streams

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"tokencast/internal/database"
	"tokencast/models"
	"tokencast/services/chain"
	"tokencast/services/rooms"
	"tokencast/utils"

	"github.com/google/uuid"
)

type streamStore interface {
	Create(ctx context.Context, s *models.Stream) error
	Get(ctx context.Context, id string) (*models.Stream, error)
	GetByUser(ctx context.Context, userID string) (*models.Stream, error)
	SetLive(ctx context.Context, id string, live bool) (bool, error)
	UpdateTitle(ctx context.Context, id, title, slug string) error
	SetTokenAddress(ctx context.Context, id string, addr *string) error
	SetEgressID(ctx context.Context, id string, egressID *string) error
}

var _ streamStore = (*database.StreamRepository)(nil)

type egressClient interface {
	StartEgress(ctx context.Context, roomName string) (*models.EgressJob, error)
	StopEgress(ctx context.Context, egressID string) error
}

var _ egressClient = (*rooms.Client)(nil)

const maxTitleLength = 140

// Service owns the stream lifecycle: one stream per user, created on first
// use, with live/offline flips, token attachment and room-service recordings.
type Service struct {
	store  streamStore
	egress egressClient
}

// NewService creates the stream lifecycle service.
func NewService(store streamStore, egress egressClient) *Service {
	return &Service{store: store, egress: egress}
}

// EnsureForUser returns the user's stream, creating it on first use. The
// unique constraint on user_id arbitrates concurrent first requests.
func (s *Service) EnsureForUser(ctx context.Context, userID, displayName string) (*models.Stream, error) {
	existing, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	title := strings.TrimSpace(displayName)
	stream := &models.Stream{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Slug:      utils.Slugify(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, stream); err != nil {
		if database.IsUniqueViolation(err) {
			// Lost the race; the other request's row wins.
			return s.store.GetByUser(ctx, userID)
		}
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return stream, nil
}

// Get returns a stream by ID or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Stream, error) {
	stream, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: stream %s", models.ErrNotFound, id)
	}
	return stream, nil
}

func (s *Service) owned(ctx context.Context, streamID, callerUserID string) (*models.Stream, error) {
	stream, err := s.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if stream.UserID != callerUserID {
		return nil, fmt.Errorf("%w: stream %s is not owned by caller", models.ErrUnauthorized, streamID)
	}
	return stream, nil
}

// GoLive flips the caller's stream live.
func (s *Service) GoLive(ctx context.Context, streamID, callerUserID string) error {
	if _, err := s.owned(ctx, streamID, callerUserID); err != nil {
		return err
	}
	if _, err := s.store.SetLive(ctx, streamID, true); err != nil {
		return fmt.Errorf("go live: %w", err)
	}
	return nil
}

// GoOffline flips the caller's stream offline, zeroing the viewer count and
// stopping any recording in flight. A failed egress stop is logged; the
// stream still goes offline.
func (s *Service) GoOffline(ctx context.Context, streamID, callerUserID string) error {
	stream, err := s.owned(ctx, streamID, callerUserID)
	if err != nil {
		return err
	}

	if stream.EgressID != nil && *stream.EgressID != "" {
		if err := s.egress.StopEgress(ctx, *stream.EgressID); err != nil {
			slog.Warn("[streams] stop egress on offline failed", "stream_id", streamID, "egress_id", *stream.EgressID, "error", err)
		}
	}

	if _, err := s.store.SetLive(ctx, streamID, false); err != nil {
		return fmt.Errorf("go offline: %w", err)
	}
	return nil
}

// UpdateTitle sets the stream title and refreshes its page slug.
func (s *Service) UpdateTitle(ctx context.Context, streamID, callerUserID, title string) error {
	if _, err := s.owned(ctx, streamID, callerUserID); err != nil {
		return err
	}

	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("%w: title is empty", models.ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", models.ErrValidation, maxTitleLength)
	}

	if err := s.store.UpdateTitle(ctx, streamID, trimmed, utils.Slugify(trimmed)); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// AttachToken binds a token address to the stream for goal tracking.
func (s *Service) AttachToken(ctx context.Context, streamID, callerUserID, tokenAddress string) error {
	if _, err := s.owned(ctx, streamID, callerUserID); err != nil {
		return err
	}

	addr := strings.TrimSpace(tokenAddress)
	if !chain.ValidAddress(addr) {
		return fmt.Errorf("%w: invalid token address %q", models.ErrValidation, addr)
	}

	if err := s.store.SetTokenAddress(ctx, streamID, &addr); err != nil {
		return fmt.Errorf("attach token: %w", err)
	}
	return nil
}

// DetachToken clears the stream's token address. Existing goals stay in the
// store; they simply stop refreshing until a token is attached again.
func (s *Service) DetachToken(ctx context.Context, streamID, callerUserID string) error {
	if _, err := s.owned(ctx, streamID, callerUserID); err != nil {
		return err
	}
	if err := s.store.SetTokenAddress(ctx, streamID, nil); err != nil {
		return fmt.Errorf("detach token: %w", err)
	}
	return nil
}

// StartRecording starts a room-service egress job for a live stream.
func (s *Service) StartRecording(ctx context.Context, streamID, callerUserID string) (*models.EgressJob, error) {
	stream, err := s.owned(ctx, streamID, callerUserID)
	if err != nil {
		return nil, err
	}
	if !stream.Live {
		return nil, fmt.Errorf("%w: stream %s is not live", models.ErrValidation, streamID)
	}
	if stream.EgressID != nil && *stream.EgressID != "" {
		return nil, fmt.Errorf("%w: recording already active for stream %s", models.ErrConflict, streamID)
	}

	job, err := s.egress.StartEgress(ctx, stream.ID)
	if err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}

	if err := s.store.SetEgressID(ctx, streamID, &job.EgressID); err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}
	return job, nil
}

// StopRecording stops the stream's active egress job.
func (s *Service) StopRecording(ctx context.Context, streamID, callerUserID string) error {
	stream, err := s.owned(ctx, streamID, callerUserID)
	if err != nil {
		return err
	}
	if stream.EgressID == nil || *stream.EgressID == "" {
		return fmt.Errorf("%w: no active recording for stream %s", models.ErrNotFound, streamID)
	}

	if err := s.egress.StopEgress(ctx, *stream.EgressID); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	if err := s.store.SetEgressID(ctx, streamID, nil); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	return nil
}
