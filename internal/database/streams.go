package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tokencast/models"
)

// StreamRepository provides row-level access to the streams table. Viewer
// count writes are unconditional single-row overwrites; last writer wins.
type StreamRepository struct {
	conn *sql.DB
}

func NewStreamRepository(conn *sql.DB) *StreamRepository {
	return &StreamRepository{conn: conn}
}

const streamColumns = `id, user_id, title, slug, live, viewer_count, thumbnail_url, token_address, egress_id, created_at, updated_at`

func scanStream(row interface{ Scan(...any) error }) (*models.Stream, error) {
	var s models.Stream
	var thumbnail, token, egress sql.NullString
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Slug, &s.Live, &s.ViewerCount,
		&thumbnail, &token, &egress, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if thumbnail.Valid {
		s.ThumbnailURL = &thumbnail.String
	}
	if token.Valid {
		s.TokenAddress = &token.String
	}
	if egress.Valid {
		s.EgressID = &egress.String
	}
	return &s, nil
}

// Create inserts a new stream row. The user_id unique constraint enforces at
// most one stream per user.
func (r *StreamRepository) Create(ctx context.Context, s *models.Stream) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO streams (id, user_id, title, slug, live, viewer_count, thumbnail_url, token_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Title, s.Slug, s.Live, s.ViewerCount,
		nullable(s.ThumbnailURL), nullable(s.TokenAddress), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stream: %w", err)
	}
	return nil
}

// Get returns the stream with the given ID, or nil when absent.
func (r *StreamRepository) Get(ctx context.Context, id string) (*models.Stream, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE id = ?`, id)
	s, err := scanStream(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return s, nil
}

// GetByUser returns the user's stream, or nil when the user has none.
func (r *StreamRepository) GetByUser(ctx context.Context, userID string) (*models.Stream, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE user_id = ?`, userID)
	s, err := scanStream(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stream by user: %w", err)
	}
	return s, nil
}

// ListLive returns all streams currently flagged live.
func (r *StreamRepository) ListLive(ctx context.Context) ([]models.Stream, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE live = 1`)
	if err != nil {
		return nil, fmt.Errorf("list live streams: %w", err)
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, *s)
	}
	return streams, rows.Err()
}

// UpdateViewerCount overwrites the stream's viewer count. Negative counts are
// clamped to zero. Returns false when the stream does not exist.
func (r *StreamRepository) UpdateViewerCount(ctx context.Context, id string, count int) (bool, error) {
	if count < 0 {
		count = 0
	}
	res, err := r.conn.ExecContext(ctx,
		`UPDATE streams SET viewer_count = ?, updated_at = ? WHERE id = ?`,
		count, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("update viewer count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update viewer count: %w", err)
	}
	return affected > 0, nil
}

// SetLive flips the live flag. Going offline also zeroes the viewer count and
// clears any recorded egress ID.
func (r *StreamRepository) SetLive(ctx context.Context, id string, live bool) (bool, error) {
	var res sql.Result
	var err error
	if live {
		res, err = r.conn.ExecContext(ctx,
			`UPDATE streams SET live = 1, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	} else {
		res, err = r.conn.ExecContext(ctx,
			`UPDATE streams SET live = 0, viewer_count = 0, egress_id = NULL, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	}
	if err != nil {
		return false, fmt.Errorf("set live: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set live: %w", err)
	}
	return affected > 0, nil
}

// UpdateTitle sets the stream title and slug.
func (r *StreamRepository) UpdateTitle(ctx context.Context, id, title, slug string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE streams SET title = ?, slug = ?, updated_at = ? WHERE id = ?`,
		title, slug, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// SetThumbnailURL updates the persisted thumbnail reference. A nil URL clears it.
func (r *StreamRepository) SetThumbnailURL(ctx context.Context, id string, url *string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE streams SET thumbnail_url = ?, updated_at = ? WHERE id = ?`,
		nullable(url), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set thumbnail url: %w", err)
	}
	return nil
}

// SetTokenAddress attaches or detaches (nil) the goal-tracking token.
func (r *StreamRepository) SetTokenAddress(ctx context.Context, id string, addr *string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE streams SET token_address = ?, updated_at = ? WHERE id = ?`,
		nullable(addr), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set token address: %w", err)
	}
	return nil
}

// SetEgressID records or clears (nil) the active recording job.
func (r *StreamRepository) SetEgressID(ctx context.Context, id string, egressID *string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE streams SET egress_id = ?, updated_at = ? WHERE id = ?`,
		nullable(egressID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set egress id: %w", err)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
