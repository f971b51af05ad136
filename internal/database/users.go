package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tokencast/models"
)

// UserRepository provides row-level access to platform accounts.
type UserRepository struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, username, display_name, avatar_url, wallet_address, password_hash, admin, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var avatar, wallet sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &avatar, &wallet,
		&u.PasswordHash, &u.Admin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	if wallet.Valid {
		u.WalletAddress = &wallet.String
	}
	return &u, nil
}

// Insert creates a new user row.
func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, avatar_url, wallet_address, password_hash, admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, nullable(u.AvatarURL), nullable(u.WalletAddress),
		u.PasswordHash, u.Admin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get returns the user with the given ID, or nil when absent.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByUsername returns the user with the given username, or nil.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// UpdateAvatarURL sets or clears (nil) the avatar image reference.
func (r *UserRepository) UpdateAvatarURL(ctx context.Context, id string, url *string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET avatar_url = ?, updated_at = ? WHERE id = ?`,
		nullable(url), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update avatar url: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored credential for an account.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// Count returns the number of user rows. Used at startup to decide whether an
// operator account needs to be seeded.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
