package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tokencast/models"
)

// WhitelistRepository provides row-level access to whitelist applications.
// The wallet_address unique constraint enforces at most one application per
// wallet.
type WhitelistRepository struct {
	conn *sql.DB
}

func NewWhitelistRepository(conn *sql.DB) *WhitelistRepository {
	return &WhitelistRepository{conn: conn}
}

const whitelistColumns = `id, wallet_address, user_id, twitter_url, telegram_url, website_url, pitch, status, created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*models.WhitelistApplication, error) {
	var a models.WhitelistApplication
	var userID sql.NullString
	err := row.Scan(&a.ID, &a.WalletAddress, &userID, &a.TwitterURL, &a.TelegramURL,
		&a.WebsiteURL, &a.Pitch, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		a.UserID = &userID.String
	}
	return &a, nil
}

// IsUniqueViolation reports whether err is the sqlite unique-constraint error.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Insert creates a new application row. Duplicate wallets fail on the unique
// constraint; callers detect that with IsUniqueViolation.
func (r *WhitelistRepository) Insert(ctx context.Context, a *models.WhitelistApplication) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO whitelist_applications (id, wallet_address, user_id, twitter_url, telegram_url, website_url, pitch, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WalletAddress, nullable(a.UserID), a.TwitterURL, a.TelegramURL,
		a.WebsiteURL, a.Pitch, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert whitelist application: %w", err)
	}
	return nil
}

// Get returns the application with the given ID, or nil when absent.
func (r *WhitelistRepository) Get(ctx context.Context, id string) (*models.WhitelistApplication, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+whitelistColumns+` FROM whitelist_applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get whitelist application: %w", err)
	}
	return a, nil
}

// GetByWallet returns the application for a wallet address, or nil.
func (r *WhitelistRepository) GetByWallet(ctx context.Context, wallet string) (*models.WhitelistApplication, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+whitelistColumns+` FROM whitelist_applications WHERE wallet_address = ?`, wallet)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get whitelist application by wallet: %w", err)
	}
	return a, nil
}

// GetByUser returns the application linked to a user, or nil.
func (r *WhitelistRepository) GetByUser(ctx context.Context, userID string) (*models.WhitelistApplication, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+whitelistColumns+` FROM whitelist_applications WHERE user_id = ?`, userID)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get whitelist application by user: %w", err)
	}
	return a, nil
}

// UpdateStatus overwrites the status unconditionally and reports whether the
// row exists. No forward-only state machine is enforced.
func (r *WhitelistRepository) UpdateStatus(ctx context.Context, id string, status models.WhitelistStatus) (bool, error) {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE whitelist_applications SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("update whitelist status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update whitelist status: %w", err)
	}
	return affected > 0, nil
}

// List returns applications, optionally filtered to one status, newest first.
func (r *WhitelistRepository) List(ctx context.Context, status *models.WhitelistStatus) ([]models.WhitelistApplication, error) {
	query := `SELECT ` + whitelistColumns + ` FROM whitelist_applications`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list whitelist applications: %w", err)
	}
	defer rows.Close()

	var apps []models.WhitelistApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan whitelist application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}
