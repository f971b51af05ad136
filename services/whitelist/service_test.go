package whitelist_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tokencast/internal/database"
	"tokencast/models"
	"tokencast/services/whitelist"
)

// wrappedSOL and systemProgram are well-formed 32-byte base58 addresses.
const (
	wrappedSOL    = "So11111111111111111111111111111111111111112"
	systemProgram = "11111111111111111111111111111111"
)

type stubBalances struct {
	balances map[string]uint64
	err      error
}

func (s *stubBalances) GetBalance(ctx context.Context, wallet string) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.balances[wallet], nil
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

func newTestService(t *testing.T) *whitelist.Service {
	t.Helper()
	return whitelist.NewService(newTestDB(t).Whitelist, nil)
}

func TestApplyCreatesPendingApplication(t *testing.T) {
	svc := newTestService(t)

	application, err := svc.Apply(context.Background(), whitelist.ApplyInput{
		WalletAddress: wrappedSOL,
		Pitch:         "  daily trading streams  ",
	})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if application.Status != models.WhitelistPending {
		t.Fatalf("expected pending status, got %q", application.Status)
	}
	if application.Pitch != "daily trading streams" {
		t.Fatalf("expected trimmed pitch, got %q", application.Pitch)
	}
}

func TestApplyRejectsMalformedWallet(t *testing.T) {
	svc := newTestService(t)

	for _, wallet := range []string{"", "not-base58-0OIl", "abc"} {
		if _, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wallet}); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", wallet, err)
		}
	}
}

func TestApplyTwiceConflictsAndKeepsFirstApplication(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL, Pitch: "original"})
	if err != nil {
		t.Fatalf("first apply returned error: %v", err)
	}

	_, err = svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL, Pitch: "replacement"})
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected conflict on duplicate wallet, got %v", err)
	}

	status, err := svc.StatusFor(context.Background(), wrappedSOL)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if status == nil || *status != first.Status {
		t.Fatalf("expected first application to survive, got %v", status)
	}
}

func TestSetStatusOverwritesFreely(t *testing.T) {
	svc := newTestService(t)

	application, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}

	// Transitions are unconstrained: approve, then send back to pending.
	for _, status := range []models.WhitelistStatus{models.WhitelistApproved, models.WhitelistRejected, models.WhitelistPending} {
		updated, err := svc.SetStatus(context.Background(), application.ID, status)
		if err != nil {
			t.Fatalf("set status %q returned error: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected status %q, got %q", status, updated.Status)
		}
	}
}

func TestSetStatusErrors(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.SetStatus(context.Background(), "missing-id", models.WhitelistApproved); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for absent application, got %v", err)
	}

	application, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), application.ID, "escalated"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestStatusForUnknownWalletIsNil(t *testing.T) {
	svc := newTestService(t)

	status, err := svc.StatusFor(context.Background(), systemProgram)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if status != nil {
		t.Fatalf("expected nil status for wallet that never applied, got %q", *status)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if _, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: systemProgram}); err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), first.ID, models.WhitelistApproved); err != nil {
		t.Fatalf("set status returned error: %v", err)
	}

	approved := models.WhitelistApproved
	filtered, err := svc.List(context.Background(), &approved)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != first.ID {
		t.Fatalf("expected exactly the approved application, got %d rows", len(filtered))
	}

	all, err := svc.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(all))
	}
}

func TestListDetailedAttachesWalletBalances(t *testing.T) {
	db := newTestDB(t)
	balances := &stubBalances{balances: map[string]uint64{wrappedSOL: 5_000_000_000}}
	svc := whitelist.NewService(db.Whitelist, balances)

	if _, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL}); err != nil {
		t.Fatalf("apply returned error: %v", err)
	}

	details, err := svc.ListDetailed(context.Background(), nil)
	if err != nil {
		t.Fatalf("list detailed returned error: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 application, got %d", len(details))
	}
	if details[0].WalletBalance == nil || *details[0].WalletBalance != 5_000_000_000 {
		t.Fatalf("expected wallet balance attached, got %v", details[0].WalletBalance)
	}
}

func TestListDetailedSurvivesBalanceLookupFailure(t *testing.T) {
	db := newTestDB(t)
	svc := whitelist.NewService(db.Whitelist, &stubBalances{err: errors.New("rpc down")})

	if _, err := svc.Apply(context.Background(), whitelist.ApplyInput{WalletAddress: wrappedSOL}); err != nil {
		t.Fatalf("apply returned error: %v", err)
	}

	details, err := svc.ListDetailed(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected listing to survive a balance failure, got %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 application, got %d", len(details))
	}
	if details[0].WalletBalance != nil {
		t.Fatalf("expected no balance when the lookup fails, got %v", *details[0].WalletBalance)
	}
}
