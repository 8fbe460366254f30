package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// IntakeSession accumulates a user's questionnaire answers across
// messages until they ask for a plan.
type IntakeSession struct {
	UserID    string
	Answers   map[string]string
	UpdatedAt time.Time
}

// SessionRepository provides access to intake session persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves the session for a user, or nil when none exists.
func (sr *SessionRepository) Get(ctx context.Context, userID string) (*IntakeSession, error) {
	var (
		data      string
		updatedAt time.Time
	)
	err := sr.db.QueryRowContext(ctx,
		`SELECT answers, updated_at FROM intake_sessions WHERE user_id = ?`, userID).
		Scan(&data, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	answers := map[string]string{}
	if err := json.Unmarshal([]byte(data), &answers); err != nil {
		return nil, err
	}
	return &IntakeSession{UserID: userID, Answers: answers, UpdatedAt: updatedAt}, nil
}

// Merge folds new answers into the user's session, creating it if
// needed, and returns the merged set.
func (sr *SessionRepository) Merge(ctx context.Context, userID string, answers map[string]string) (map[string]string, error) {
	existing, err := sr.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := map[string]string{}
	if existing != nil {
		merged = existing.Answers
	}
	for k, v := range answers {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}

	_, err = sr.db.ExecContext(ctx, `
		INSERT INTO intake_sessions (user_id, answers, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET answers = excluded.answers, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Clear removes a user's session.
func (sr *SessionRepository) Clear(ctx context.Context, userID string) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM intake_sessions WHERE user_id = ?`, userID)
	return err
}
