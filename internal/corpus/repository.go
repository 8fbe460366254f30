package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed repository for corpus candidates.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates a candidate in the database.
func (r *Repository) Save(ctx context.Context, c Candidate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate to JSON: %w", err)
	}

	var updatedAt time.Time
	if c.UpdatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, c.UpdatedAt)
		if err != nil {
			updatedAt = time.Now().UTC()
		} else {
			updatedAt = parsed
		}
	} else {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO candidates (id, meal_type, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET meal_type = excluded.meal_type, data = excluded.data, updated_at = excluded.updated_at`,
		c.ID, string(c.MealType), string(data), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}
	return nil
}

// Get retrieves a candidate by its ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Candidate, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM candidates WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate by ID: %w", err)
	}

	var c Candidate
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate JSON: %w", err)
	}
	return &c, nil
}

// List retrieves all candidates ordered by ID.
func (r *Repository) List(ctx context.Context) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM candidates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		var c Candidate
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			// Skip corrupted rows rather than failing the whole load.
			continue
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidate rows: %w", err)
	}
	return candidates, nil
}

// Count returns the number of stored candidates.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return n, nil
}

// LatestUpdatedAt returns the newest updated_at across all candidates,
// used as the snapshot version string.
func (r *Repository) LatestUpdatedAt(ctx context.Context) (string, error) {
	var ts sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM candidates`).Scan(&ts)
	if err != nil {
		return "", fmt.Errorf("failed to read corpus version: %w", err)
	}
	if !ts.Valid {
		return "", nil
	}
	return ts.String, nil
}
