package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trendpilot/trendpilot/internal/models"
)

// TrendUsageRepository tracks which normalized topics have already been
// posted about, feeding the usage-penalty and fresh-topic checks.
type TrendUsageRepository struct {
	db *sql.DB
}

// NewTrendUsageRepository creates a new trend usage repository.
func NewTrendUsageRepository(db *sql.DB) *TrendUsageRepository {
	return &TrendUsageRepository{db: db}
}

// Append records one topic use.
func (r *TrendUsageRepository) Append(ctx context.Context, rec models.TrendUsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.UsedAt.IsZero() {
		rec.UsedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trend_usage (id, topic, agent_id, user_id, platform, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.Topic, rec.AgentID, rec.UserID, rec.Platform, rec.UsedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trend usage: %w", err)
	}
	return nil
}

// CountByTopic returns per-topic use counts on the platform since the
// given time.
func (r *TrendUsageRepository) CountByTopic(ctx context.Context, platform models.Platform, since time.Time) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT topic, COUNT(*)
		FROM trend_usage
		WHERE platform = $1 AND used_at >= $2
		GROUP BY topic
	`, platform, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count trend usage: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var topic string
		var n int
		if err := rows.Scan(&topic, &n); err != nil {
			return nil, err
		}
		counts[topic] = n
	}
	return counts, rows.Err()
}

// Prune deletes usage records older than the retention cutoff.
func (r *TrendUsageRepository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result, err := r.db.ExecContext(ctx, `DELETE FROM trend_usage WHERE used_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune trend usage: %w", err)
	}
	return result.RowsAffected()
}
