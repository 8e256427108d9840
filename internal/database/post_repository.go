package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trendpilot/trendpilot/internal/models"
)

// PostRepository stores the append-only record of published posts. Recent
// rows double as the duplicate-detection corpus.
type PostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Append stores a new published post record.
func (r *PostRepository) Append(ctx context.Context, post models.PublishedPost) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.PostedAt.IsZero() {
		post.PostedAt = time.Now()
	}

	query := `
		INSERT INTO published_posts (id, agent_id, user_id, platform, topic, trend_title, trend_url, trend_volume, trend_sources, text, success, external_id, external_url, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.AgentID, post.UserID, post.Platform,
		post.Topic, post.TrendTitle, post.TrendURL, post.TrendVolume, post.TrendSources,
		post.Text, post.Success, post.ExternalID, post.ExternalURL, post.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert published post: %w", err)
	}
	return nil
}

// RecentPosts returns successful posts on the platform newer than since,
// most recent first, capped at limit.
func (r *PostRepository) RecentPosts(ctx context.Context, platform models.Platform, since time.Time, limit int) ([]models.PublishedPost, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, agent_id, user_id, platform, topic, trend_title, trend_url, trend_volume, trend_sources, text, success, external_id, external_url, posted_at
		FROM published_posts
		WHERE platform = $1 AND posted_at >= $2 AND success = true
		ORDER BY posted_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, platform, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer rows.Close()

	var posts []models.PublishedPost
	for rows.Next() {
		var p models.PublishedPost
		err := rows.Scan(
			&p.ID, &p.AgentID, &p.UserID, &p.Platform,
			&p.Topic, &p.TrendTitle, &p.TrendURL, &p.TrendVolume, &p.TrendSources,
			&p.Text, &p.Success, &p.ExternalID, &p.ExternalURL, &p.PostedAt,
		)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListByUser returns a user's posts, most recent first.
func (r *PostRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.PublishedPost, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, agent_id, user_id, platform, topic, trend_title, trend_url, trend_volume, trend_sources, text, success, external_id, external_url, posted_at
		FROM published_posts
		WHERE user_id = $1
		ORDER BY posted_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var posts []models.PublishedPost
	for rows.Next() {
		var p models.PublishedPost
		err := rows.Scan(
			&p.ID, &p.AgentID, &p.UserID, &p.Platform,
			&p.Topic, &p.TrendTitle, &p.TrendURL, &p.TrendVolume, &p.TrendSources,
			&p.Text, &p.Success, &p.ExternalID, &p.ExternalURL, &p.PostedAt,
		)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
