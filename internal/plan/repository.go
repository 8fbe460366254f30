package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredPlan represents a persisted plan row.
type StoredPlan struct {
	ID        int64
	UserID    string
	PlanData  []byte // Raw JSON of the final plan
	CreatedAt time.Time
}

// Repository is a database-backed repository for generated plans.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new plan Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts a generated plan for a user.
func (r *Repository) Save(ctx context.Context, userID string, p *FinalPlan) (int64, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal plan: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO plans (user_id, data, created_at) VALUES (?, ?, ?)`,
		userID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert plan: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ListRecentByUserID retrieves the N most recent plans for a given user.
func (r *Repository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, data, created_at FROM plans WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		var p StoredPlan
		var data string
		if err := rows.Scan(&p.ID, &p.UserID, &data, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		p.PlanData = []byte(data)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
