package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"github.com/upb/chatrooms/services/access"
	"github.com/upb/chatrooms/utils"
	"go.uber.org/zap"
)

// Route parameters read into the access target
const (
	RoomIDParam = "id"
	UserIDParam = "userId"
)

// Authorizer decides declared actions
type Authorizer interface {
	Authorize(user *models.User, action string, target access.Target) error
}

// EventRecorder accepts audit events without blocking
type EventRecorder interface {
	Record(event *models.AuthEvent) error
}

// AccessMiddleware runs the role gate for routes that declare an action
type AccessMiddleware struct {
	gate   Authorizer
	events EventRecorder
	logger *zap.Logger
}

// NewAccessMiddleware creates a new AccessMiddleware. events may be nil.
func NewAccessMiddleware(gate Authorizer, events EventRecorder, logger *zap.Logger) *AccessMiddleware {
	return &AccessMiddleware{gate: gate, events: events, logger: logger}
}

// Can declares the action a route requires. Mount it after RequireAuth.
func (m *AccessMiddleware) Can(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := GetUserFromContext(ctx)
			target := TargetFromRequest(r)

			if err := m.gate.Authorize(user, action, target); err != nil {
				m.deny(w, r, user, action, target, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AccessMiddleware) deny(w http.ResponseWriter, r *http.Request, user *models.User, action string, target access.Target, err error) {
	requestID := GetRequestIDFromContext(r.Context())
	userID := ""
	if user != nil {
		userID = user.ID
	}

	m.logger.Info("access denied",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("action", action),
		zap.String("room_id", target.RoomID))

	if m.events != nil {
		event := models.NewAuthEvent(models.AuthActionAccessDenied, models.OutcomeFailure).
			WithUser(userID).
			WithReason(action).
			WithDetails(map[string]string{"room_id": target.RoomID, "target_user": target.UserID}).
			WithRequest(requestID, r.RemoteAddr, r.UserAgent())
		_ = m.events.Record(event)
	}

	message := services.NewActionDenied(action).Message
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	_ = utils.WriteForbidden(w, message)
}

// TargetFromRequest reads the room and user ids from the route. Ids contain
// '#', which clients send percent-encoded.
func TargetFromRequest(r *http.Request) access.Target {
	return access.Target{
		RoomID: URLParam(r, RoomIDParam),
		UserID: URLParam(r, UserIDParam),
	}
}

// URLParam returns the unescaped chi route parameter
func URLParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	// chi routes on RawPath when set, otherwise on the already decoded Path
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
