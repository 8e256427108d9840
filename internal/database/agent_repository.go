package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trendpilot/trendpilot/internal/models"
)

// AgentRepository reads agents and advances their posting counters. Agent
// creation and editing happens in a separate CRUD service against the same
// table.
type AgentRepository struct {
	db *sql.DB
}

// NewAgentRepository creates a new agent repository.
func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

const agentColumns = `id, user_id, platform, settings, active, posts_today, last_posted_at, created_at, updated_at`

// ListDue returns active agents with daily quota remaining. The posting
// window is evaluated in Go because it depends on the wall clock hour and
// may wrap midnight.
func (r *AgentRepository) ListDue(ctx context.Context, now time.Time) ([]models.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE active = true
		  AND (
			(settings->>'posts_per_day')::int <= 0
			OR posts_today < (settings->>'posts_per_day')::int
		  )
		ORDER BY COALESCE(last_posted_at, 'epoch'::timestamptz) ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list due agents: %w", err)
	}
	defer rows.Close()

	var due []models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		if agent.DueForPost(now) {
			due = append(due, *agent)
		}
	}
	return due, rows.Err()
}

// Get returns one agent by id.
func (r *AgentRepository) Get(ctx context.Context, id string) (*models.Agent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

// RecordPost advances the agent's counters after a successful publish.
func (r *AgentRepository) RecordPost(ctx context.Context, agentID string, postedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE agents
		SET posts_today = posts_today + 1, last_posted_at = $2, updated_at = NOW()
		WHERE id = $1
	`, agentID, postedAt)
	if err != nil {
		return fmt.Errorf("failed to record post for agent %s: %w", agentID, err)
	}
	return nil
}

// ResetDailyCounters zeroes posts_today for every agent. Run once per day.
func (r *AgentRepository) ResetDailyCounters(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE agents SET posts_today = 0, updated_at = NOW() WHERE posts_today > 0
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily counters: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var a models.Agent
	var settingsJSON []byte
	err := row.Scan(
		&a.ID, &a.UserID, &a.Platform, &settingsJSON,
		&a.Active, &a.PostsToday, &a.LastPostedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &a.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agent settings: %w", err)
		}
	}
	return &a, nil
}
