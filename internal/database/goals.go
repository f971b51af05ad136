package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tokencast/models"
)

// GoalRepository provides row-level access to market-cap goals. The full set
// for a (stream, token) pair is replaced wholesale on edit; there is no
// cross-row transaction, so a crash between delete and insert can leave zero
// goals. The persisted store is re-editable, so the caller just saves again.
type GoalRepository struct {
	conn *sql.DB
}

func NewGoalRepository(conn *sql.DB) *GoalRepository {
	return &GoalRepository{conn: conn}
}

// Replace deletes all goals for the pair and recreates the supplied set.
func (r *GoalRepository) Replace(ctx context.Context, streamID, tokenAddress string, goals []models.Goal) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM goals WHERE stream_id = ? AND token_address = ?`, streamID, tokenAddress)
	if err != nil {
		return fmt.Errorf("delete goals: %w", err)
	}

	for _, g := range goals {
		var reachedAt any
		if g.ReachedAt != nil {
			reachedAt = *g.ReachedAt
		}
		_, err := r.conn.ExecContext(ctx,
			`INSERT INTO goals (id, stream_id, token_address, target_market_cap, description, order_index, reached, reached_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, streamID, tokenAddress, g.TargetMarketCap, g.Description, g.OrderIndex, g.Reached, reachedAt)
		if err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
	}
	return nil
}

// ListByStream returns all goals for a stream ordered by index.
func (r *GoalRepository) ListByStream(ctx context.Context, streamID string) ([]models.Goal, error) {
	return r.list(ctx,
		`SELECT id, stream_id, token_address, target_market_cap, description, order_index, reached, reached_at
		 FROM goals WHERE stream_id = ? ORDER BY order_index, id`, streamID)
}

// ListByStreamToken returns the goal set for a (stream, token) pair ordered by index.
func (r *GoalRepository) ListByStreamToken(ctx context.Context, streamID, tokenAddress string) ([]models.Goal, error) {
	return r.list(ctx,
		`SELECT id, stream_id, token_address, target_market_cap, description, order_index, reached, reached_at
		 FROM goals WHERE stream_id = ? AND token_address = ? ORDER BY order_index, id`, streamID, tokenAddress)
}

func (r *GoalRepository) list(ctx context.Context, query string, args ...any) ([]models.Goal, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var g models.Goal
		var reachedAt sql.NullTime
		if err := rows.Scan(&g.ID, &g.StreamID, &g.TokenAddress, &g.TargetMarketCap,
			&g.Description, &g.OrderIndex, &g.Reached, &reachedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if reachedAt.Valid {
			t := reachedAt.Time
			g.ReachedAt = &t
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// MarkReached flips the reached flag for a goal. The WHERE clause keeps the
// flag monotonic: an already-reached goal is never touched again.
func (r *GoalRepository) MarkReached(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE goals SET reached = 1, reached_at = ? WHERE id = ? AND reached = 0`, at, id)
	if err != nil {
		return false, fmt.Errorf("mark goal reached: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark goal reached: %w", err)
	}
	return affected > 0, nil
}
