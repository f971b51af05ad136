package goals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tokencast/internal/database"
	"tokencast/models"

	"github.com/google/uuid"
)

type goalStore interface {
	Replace(ctx context.Context, streamID, tokenAddress string, goals []models.Goal) error
	ListByStream(ctx context.Context, streamID string) ([]models.Goal, error)
	ListByStreamToken(ctx context.Context, streamID, tokenAddress string) ([]models.Goal, error)
	MarkReached(ctx context.Context, id string, at time.Time) (bool, error)
}

var _ goalStore = (*database.GoalRepository)(nil)

type streamStore interface {
	Get(ctx context.Context, id string) (*models.Stream, error)
	ListLive(ctx context.Context) ([]models.Stream, error)
}

var _ streamStore = (*database.StreamRepository)(nil)

type priceSource interface {
	SpotPrice(ctx context.Context) (float64, error)
}

type supplySource interface {
	GetTokenSupply(ctx context.Context, mint string) (float64, error)
}

// GoalInput is one milestone in a wholesale goal save.
type GoalInput struct {
	TargetMarketCap float64 `json:"targetMarketCap"`
	Description     string  `json:"description"`
}

// Service manages market-cap milestones for streams with a token attached.
// Saves replace the full goal set for the (stream, token) pair; the reached
// flag only ever moves false to true, driven by market-cap observations.
type Service struct {
	store   goalStore
	streams streamStore
	prices  priceSource
	supply  supplySource
}

// NewService creates the goals service.
func NewService(store goalStore, streams streamStore, prices priceSource, supply supplySource) *Service {
	return &Service{
		store:   store,
		streams: streams,
		prices:  prices,
		supply:  supply,
	}
}

// Replace swaps the full goal set for the caller's stream. The save is
// delete-then-insert, not a transaction; a crash mid-save is repaired by
// saving again.
func (s *Service) Replace(ctx context.Context, streamID, callerUserID string, inputs []GoalInput) ([]models.Goal, error) {
	stream, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("replace goals: %w", err)
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}
	if stream.UserID != callerUserID {
		return nil, fmt.Errorf("%w: stream %s is not owned by caller", models.ErrUnauthorized, streamID)
	}
	if stream.TokenAddress == nil || *stream.TokenAddress == "" {
		return nil, fmt.Errorf("%w: stream %s has no token attached", models.ErrValidation, streamID)
	}

	goals := make([]models.Goal, 0, len(inputs))
	for i, input := range inputs {
		if input.TargetMarketCap <= 0 {
			return nil, fmt.Errorf("%w: goal %d has non-positive target", models.ErrValidation, i)
		}
		goals = append(goals, models.Goal{
			ID:              uuid.NewString(),
			StreamID:        streamID,
			TokenAddress:    *stream.TokenAddress,
			TargetMarketCap: input.TargetMarketCap,
			Description:     input.Description,
			OrderIndex:      i,
		})
	}

	if err := s.store.Replace(ctx, streamID, *stream.TokenAddress, goals); err != nil {
		return nil, fmt.Errorf("replace goals: %w", err)
	}
	return goals, nil
}

// List returns a stream's goals ordered by index.
func (s *Service) List(ctx context.Context, streamID string) ([]models.Goal, error) {
	return s.store.ListByStream(ctx, streamID)
}

// Refresh observes the stream token's market cap and marks crossed goals
// reached. Returns the number of goals newly marked. Per-goal failures are
// logged and skipped.
func (s *Service) Refresh(ctx context.Context, streamID string) (int, error) {
	stream, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return 0, fmt.Errorf("refresh goals: %w", err)
	}
	if stream == nil {
		return 0, fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}
	if stream.TokenAddress == nil || *stream.TokenAddress == "" {
		return 0, nil
	}

	marketCap, err := s.observeMarketCap(ctx, *stream.TokenAddress)
	if err != nil {
		return 0, fmt.Errorf("refresh goals: %w", err)
	}

	goals, err := s.store.ListByStreamToken(ctx, streamID, *stream.TokenAddress)
	if err != nil {
		return 0, fmt.Errorf("refresh goals: %w", err)
	}

	now := time.Now().UTC()
	marked := 0
	for _, goal := range goals {
		if goal.Reached || marketCap < goal.TargetMarketCap {
			continue
		}
		ok, err := s.store.MarkReached(ctx, goal.ID, now)
		if err != nil {
			slog.Warn("[goals] mark reached failed", "goal_id", goal.ID, "error", err)
			continue
		}
		if ok {
			slog.Info("[goals] goal reached", "stream_id", streamID, "goal_id", goal.ID,
				"target", goal.TargetMarketCap, "market_cap", marketCap)
			marked++
		}
	}
	return marked, nil
}

// RefreshLive runs Refresh for every live stream with a token attached,
// continuing past per-stream failures.
func (s *Service) RefreshLive(ctx context.Context) {
	live, err := s.streams.ListLive(ctx)
	if err != nil {
		slog.Warn("[goals] list live streams failed", "error", err)
		return
	}

	for _, stream := range live {
		if stream.TokenAddress == nil || *stream.TokenAddress == "" {
			continue
		}
		if _, err := s.Refresh(ctx, stream.ID); err != nil {
			slog.Warn("[goals] refresh failed", "stream_id", stream.ID, "error", err)
		}
	}
}

func (s *Service) observeMarketCap(ctx context.Context, tokenAddress string) (float64, error) {
	price, err := s.prices.SpotPrice(ctx)
	if err != nil {
		return 0, err
	}
	supply, err := s.supply.GetTokenSupply(ctx, tokenAddress)
	if err != nil {
		return 0, err
	}
	return price * supply, nil
}
