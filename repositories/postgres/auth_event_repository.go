package postgres

import (
	"context"
	"fmt"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"go.uber.org/zap"
)

// AuthEventRepository implements the repositories.AuthEventRepository interface
type AuthEventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuthEventRepository creates a new auth event repository
func NewAuthEventRepository(db *DB, logger *zap.Logger) repositories.AuthEventRepository {
	return &AuthEventRepository{
		db:     db,
		logger: logger,
	}
}

const authEventColumns = `id, user_id, action, provider, outcome, reason, details, ip_address, user_agent, request_id, timestamp`

// Insert inserts a new auth event
func (r *AuthEventRepository) Insert(ctx context.Context, event *models.AuthEvent) error {
	query := `
		INSERT INTO auth_events (` + authEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var details interface{}
	if len(event.Details) > 0 {
		details = []byte(event.Details)
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.Action,
		event.Provider,
		event.Outcome,
		event.Reason,
		details,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auth event: %w", err)
	}

	r.logger.Debug("auth event inserted", zap.String("id", event.ID.String()), zap.String("action", string(event.Action)))
	return nil
}

// GetByUserID retrieves auth events for a user with pagination
func (r *AuthEventRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuthEvent, error) {
	query := `
		SELECT ` + authEventColumns + `
		FROM auth_events
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryEvents(ctx, query, userID, limit, offset)
}

func (r *AuthEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.AuthEvent, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuthEvent
	for rows.Next() {
		e := &models.AuthEvent{}
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Action,
			&e.Provider,
			&e.Outcome,
			&e.Reason,
			&e.Details,
			&e.IPAddress,
			&e.UserAgent,
			&e.RequestID,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth event rows: %w", err)
	}

	return events, nil
}
