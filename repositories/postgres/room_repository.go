package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"go.uber.org/zap"
)

// RoomRepository implements the repositories.RoomRepository interface
type RoomRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *DB, logger *zap.Logger) repositories.RoomRepository {
	return &RoomRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a room with its members
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	executor := GetExecutor(ctx, r.db)
	room := &models.Room{}

	var password sql.NullString
	err := executor.QueryRowContext(ctx,
		`SELECT id, name, password, created_at FROM rooms WHERE id = $1`, id,
	).Scan(&room.ID, &room.Name, &password, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	room.Password = password.String

	rows, err := executor.QueryContext(ctx,
		`SELECT user_id, roles FROM room_members WHERE room_id = $1 ORDER BY joined_at`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query room members: %w", err)
	}
	defer rows.Close()

	room.Members = []models.RoomMember{}
	for rows.Next() {
		var m models.RoomMember
		if err := rows.Scan(&m.UserID, pq.Array(&m.Roles)); err != nil {
			return nil, fmt.Errorf("failed to scan room member: %w", err)
		}
		room.Members = append(room.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room member rows: %w", err)
	}

	return room, nil
}

// FindRolesByMember returns the room-role projection for a user
func (r *RoomRepository) FindRolesByMember(ctx context.Context, userID string) ([]models.RoomRole, error) {
	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx,
		`SELECT room_id, roles FROM room_members WHERE user_id = $1 ORDER BY room_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms for member: %w", err)
	}
	defer rows.Close()

	roles := []models.RoomRole{}
	for rows.Next() {
		var rr models.RoomRole
		if err := rows.Scan(&rr.RoomID, pq.Array(&rr.Roles)); err != nil {
			return nil, fmt.Errorf("failed to scan room role: %w", err)
		}
		roles = append(roles, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room role rows: %w", err)
	}

	return roles, nil
}

// AddMember appends a member entry to a room
func (r *RoomRepository) AddMember(ctx context.Context, roomID string, member models.RoomMember) error {
	roles := member.Roles
	if roles == nil {
		roles = []string{}
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id, roles) VALUES ($1, $2, $3)`,
		roomID, member.UserID, pq.Array(roles),
	)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to add room member: %w", err)
	}

	r.logger.Debug("room member added", zap.String("room_id", roomID), zap.String("user_id", member.UserID))
	return nil
}

// RemoveMember deletes a member entry
func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`, roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove room member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// Delete deletes a room. Run inside a transaction so members and room go together.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	executor := GetExecutor(ctx, r.db)

	if _, err := executor.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete room members: %w", err)
	}

	result, err := executor.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("room deleted", zap.String("id", id))
	return nil
}
