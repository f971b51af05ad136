package whitelist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tokencast/internal/database"
	"tokencast/models"
	"tokencast/services/chain"

	"github.com/google/uuid"
)

type applicationStore interface {
	Insert(ctx context.Context, a *models.WhitelistApplication) error
	Get(ctx context.Context, id string) (*models.WhitelistApplication, error)
	GetByWallet(ctx context.Context, wallet string) (*models.WhitelistApplication, error)
	GetByUser(ctx context.Context, userID string) (*models.WhitelistApplication, error)
	UpdateStatus(ctx context.Context, id string, status models.WhitelistStatus) (bool, error)
	List(ctx context.Context, status *models.WhitelistStatus) ([]models.WhitelistApplication, error)
}

var _ applicationStore = (*database.WhitelistRepository)(nil)

type balanceSource interface {
	GetBalance(ctx context.Context, wallet string) (uint64, error)
}

var _ balanceSource = (*chain.Client)(nil)

// ApplyInput is the payload for a new whitelist application.
type ApplyInput struct {
	WalletAddress string
	Pitch         string
	TwitterURL    string
	TelegramURL   string
	WebsiteURL    string
	UserID        *string
}

// Service runs the wallet-gated onboarding workflow: one application per
// wallet, three statuses, admin-driven transitions with no enforced ordering.
type Service struct {
	store    applicationStore
	balances balanceSource
}

// NewService creates the whitelist service. A nil balance source disables the
// on-chain enrichment in detailed listings.
func NewService(store applicationStore, balances balanceSource) *Service {
	return &Service{store: store, balances: balances}
}

// Apply creates a pending application for a wallet. A wallet that already
// applied gets ErrConflict and its existing record stays untouched.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*models.WhitelistApplication, error) {
	wallet := strings.TrimSpace(input.WalletAddress)
	if !chain.ValidAddress(wallet) {
		return nil, fmt.Errorf("%w: invalid wallet address %q", models.ErrValidation, wallet)
	}

	now := time.Now().UTC()
	application := &models.WhitelistApplication{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		UserID:        input.UserID,
		TwitterURL:    strings.TrimSpace(input.TwitterURL),
		TelegramURL:   strings.TrimSpace(input.TelegramURL),
		WebsiteURL:    strings.TrimSpace(input.WebsiteURL),
		Pitch:         strings.TrimSpace(input.Pitch),
		Status:        models.WhitelistPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// The unique constraint is the arbiter; a pre-read would race with a
	// concurrent apply for the same wallet.
	if err := s.store.Insert(ctx, application); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: wallet %s already applied", models.ErrConflict, wallet)
		}
		return nil, fmt.Errorf("apply: %w", err)
	}
	return application, nil
}

// SetStatus overwrites an application's status. Any status may replace any
// other; there is deliberately no forward-only state machine.
func (s *Service) SetStatus(ctx context.Context, id string, status models.WhitelistStatus) (*models.WhitelistApplication, error) {
	if !models.ValidWhitelistStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}

	ok, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: application %s", models.ErrNotFound, id)
	}
	return s.store.Get(ctx, id)
}

// StatusFor returns the wallet's application status, or nil when the wallet
// never applied. A nil status is distinct from pending or rejected.
func (s *Service) StatusFor(ctx context.Context, wallet string) (*models.WhitelistStatus, error) {
	application, err := s.store.GetByWallet(ctx, strings.TrimSpace(wallet))
	if err != nil {
		return nil, fmt.Errorf("status for wallet: %w", err)
	}
	if application == nil {
		return nil, nil
	}
	return &application.Status, nil
}

// StatusForUser returns the linked user's application status, or nil.
func (s *Service) StatusForUser(ctx context.Context, userID string) (*models.WhitelistStatus, error) {
	application, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("status for user: %w", err)
	}
	if application == nil {
		return nil, nil
	}
	return &application.Status, nil
}

// List returns applications, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *models.WhitelistStatus) ([]models.WhitelistApplication, error) {
	if status != nil && !models.ValidWhitelistStatus(*status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, *status)
	}
	return s.store.List(ctx, status)
}

// ApplicationDetail is an application enriched for admin review.
type ApplicationDetail struct {
	models.WhitelistApplication
	// WalletBalance is the applicant wallet's on-chain balance in base units;
	// nil when the lookup failed or no balance source is configured.
	WalletBalance *uint64 `json:"walletBalance,omitempty"`
}

// ListDetailed returns applications with their wallets' on-chain balances. A
// failed balance lookup is logged and leaves that balance unset; it never
// fails the listing.
func (s *Service) ListDetailed(ctx context.Context, status *models.WhitelistStatus) ([]ApplicationDetail, error) {
	applications, err := s.List(ctx, status)
	if err != nil {
		return nil, err
	}

	details := make([]ApplicationDetail, 0, len(applications))
	for _, application := range applications {
		detail := ApplicationDetail{WhitelistApplication: application}
		if s.balances != nil {
			balance, err := s.balances.GetBalance(ctx, application.WalletAddress)
			if err != nil {
				slog.Warn("[whitelist] balance lookup failed", "wallet", application.WalletAddress, "error", err)
			} else {
				detail.WalletBalance = &balance
			}
		}
		details = append(details, detail)
	}
	return details, nil
}
