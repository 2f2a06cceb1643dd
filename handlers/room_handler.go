package handlers

import (
	"context"
	"net/http"

	"github.com/upb/chatrooms/middleware"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"github.com/upb/chatrooms/utils"
	"go.uber.org/zap"
)

// RoomService is the membership service the room routes call
type RoomService interface {
	Join(ctx context.Context, roomID, userID string) (*models.RoomMember, error)
	Leave(ctx context.Context, roomID, userID string) error
	Delete(ctx context.Context, roomID string) error
}

// RoomHandler serves the protected room routes. Authorization has already
// run in middleware.AccessMiddleware by the time these are reached.
type RoomHandler struct {
	rooms  RoomService
	logger *zap.Logger
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(rooms RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, logger: logger}
}

// HandleJoin handles POST /api/v1/rooms/{id}/users
func (h *RoomHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		HandleServiceError(w, services.ErrSessionInvalid, h.logger)
		return
	}
	roomID := middleware.URLParam(r, middleware.RoomIDParam)

	member, err := h.rooms.Join(r.Context(), roomID, user.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, member)
}

// HandleLeave handles DELETE /api/v1/rooms/{id}/users/{userId}
func (h *RoomHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	target := middleware.TargetFromRequest(r)

	if err := h.rooms.Leave(r.Context(), target.RoomID, target.UserID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleDelete handles DELETE /api/v1/rooms/{id}
func (h *RoomHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	roomID := middleware.URLParam(r, middleware.RoomIDParam)

	if err := h.rooms.Delete(r.Context(), roomID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleNotImplemented answers routes owned by the room and message service
func (h *RoomHandler) HandleNotImplemented(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteError(w, http.StatusNotImplemented, "Served by the room service", nil)
}
