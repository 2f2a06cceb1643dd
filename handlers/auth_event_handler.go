package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/chatrooms/middleware"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"github.com/upb/chatrooms/utils"
	"go.uber.org/zap"
)

// Paging bounds for GET /auth/events
const (
	DefaultEventsLimit = 20
	MaxEventsLimit     = 100
)

// EventHistory reads a user's audit trail, newest first
type EventHistory interface {
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuthEvent, error)
}

// AuthEventHandler serves the session user's own auth history
type AuthEventHandler struct {
	history EventHistory
	logger  *zap.Logger
}

// NewAuthEventHandler creates a new AuthEventHandler
func NewAuthEventHandler(history EventHistory, logger *zap.Logger) *AuthEventHandler {
	return &AuthEventHandler{history: history, logger: logger}
}

// EventsResponse is one page of auth events
type EventsResponse struct {
	Events []*models.AuthEvent `json:"events"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// HandleList handles GET /auth/events?limit=&offset=
func (h *AuthEventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		HandleServiceError(w, services.ErrSessionInvalid, h.logger)
		return
	}

	limit, ok := queryInt(r, "limit", DefaultEventsLimit)
	if !ok || limit < 1 || limit > MaxEventsLimit {
		_ = utils.WriteBadRequest(w, "limit must be between 1 and 100", nil)
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		_ = utils.WriteBadRequest(w, "offset must not be negative", nil)
		return
	}

	events, err := h.history.GetByUserID(r.Context(), user.ID, limit, offset)
	if err != nil {
		HandleServiceError(w, services.NewStoreError("list auth events", err), h.logger)
		return
	}
	if events == nil {
		events = []*models.AuthEvent{}
	}
	_ = utils.WriteOK(w, EventsResponse{Events: events, Limit: limit, Offset: offset})
}

func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
