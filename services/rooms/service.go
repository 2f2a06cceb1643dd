// Package rooms implements the membership mutations that feed the
// room-role context: join, leave and delete.
package rooms

import (
	"context"
	"errors"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"github.com/upb/chatrooms/services"
	"go.uber.org/zap"
)

// Service mutates room membership
type Service struct {
	rooms  repositories.RoomRepository
	tx     repositories.TransactionManager
	logger *zap.Logger
}

// NewService creates a new room service
func NewService(rooms repositories.RoomRepository, tx repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		rooms:  rooms,
		tx:     tx,
		logger: logger.Named("rooms"),
	}
}

// Get returns a room with its members
func (s *Service) Get(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrRoomNotFound
		}
		return nil, services.NewStoreError("get room", err)
	}
	return room, nil
}

// Join adds the user to the room with the member role
func (s *Service) Join(ctx context.Context, roomID, userID string) (*models.RoomMember, error) {
	if _, err := s.Get(ctx, roomID); err != nil {
		return nil, err
	}

	member := models.RoomMember{UserID: userID, Roles: []string{models.RoomRoleMember}}
	if err := s.rooms.AddMember(ctx, roomID, member); err != nil {
		if errors.Is(err, repositories.ErrAlreadyMember) {
			return nil, services.ErrAlreadyMember
		}
		return nil, services.NewStoreError("add room member", err)
	}

	s.logger.Info("user joined room", zap.String("room_id", roomID), zap.String("user_id", userID))
	return &member, nil
}

// Leave removes the user from the room
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	if err := s.rooms.RemoveMember(ctx, roomID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrNotMember
		}
		return services.NewStoreError("remove room member", err)
	}

	s.logger.Info("user left room", zap.String("room_id", roomID), zap.String("user_id", userID))
	return nil
}

// Delete removes the room and every member entry atomically
func (s *Service) Delete(ctx context.Context, roomID string) error {
	err := s.tx.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		return s.rooms.Delete(ctx, roomID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrRoomNotFound
		}
		return services.NewStoreError("delete room", err)
	}

	s.logger.Info("room deleted", zap.String("room_id", roomID))
	return nil
}
