package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openherd/agentd/internal/domain/agent"
)

// RunStore implements runstore.Store using PostgreSQL (append-only).
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Append inserts one finished run into the agent_runs table.
func (s *RunStore) Append(ctx context.Context, run *agent.Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_runs (agent_id, agent_type, started_at, finished_at, manual, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.AgentID, run.Type, run.StartedAt, run.FinishedAt, run.Manual, run.Error)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

// ListByAgent returns the most recent runs for an agent, newest first.
func (s *RunStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]agent.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, agent_type, started_at, finished_at, manual, COALESCE(error, '')
		 FROM agent_runs WHERE agent_id = $1 ORDER BY started_at DESC LIMIT $2`,
		agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", agentID, err)
	}
	defer rows.Close()

	var runs []agent.Run
	for rows.Next() {
		var r agent.Run
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Type, &r.StartedAt, &r.FinishedAt, &r.Manual, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
