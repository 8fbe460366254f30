package metrics

import (
	"context"
	"database/sql"
	"time"

	"ai-wellness-planner/internal/shared"
)

// Store handles persistence of per-stage telemetry to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves one stage's metadata for a run. Stages that made no
// external call still leave a row so fallback rates can be read per
// stage.
func (s *Store) Record(ctx context.Context, runID string, meta shared.StageMeta) error {
	fallback := 0
	if meta.FallbackUsed {
		fallback = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_metrics
			(run_id, stage_name, model, prompt_tokens, completion_tokens, latency_ms, fallback_used, cost_estimate, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		meta.StageName,
		meta.Usage.Model,
		meta.Usage.PromptTokens,
		meta.Usage.CompletionTokens,
		meta.Latency.Milliseconds(),
		fallback,
		meta.CostEstimate,
		time.Now().UTC(),
	)
	return err
}

// DailyUsage represents token and cost totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalStages     int
	Fallbacks       int
	TotalCost       float64
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day,
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COUNT(*),
			COALESCE(SUM(fallback_used), 0),
			COALESCE(SUM(cost_estimate), 0)
		FROM stage_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalStages, &u.Fallbacks, &u.TotalCost); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// reports how many rows were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM stage_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
