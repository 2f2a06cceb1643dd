package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services/access"
	"go.uber.org/zap"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []*models.AuthEvent
}

func (r *recordingEvents) Record(event *models.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// newRoomRouter mounts Can in front of a room route, with user optionally
// attached by a stub auth step
func newRoomRouter(mw *AccessMiddleware, user *models.User, seen *access.Target) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	ok := func(w http.ResponseWriter, req *http.Request) {
		if seen != nil {
			*seen = TargetFromRequest(req)
		}
		w.WriteHeader(http.StatusOK)
	}
	r.With(mw.Can(access.ActionGetMessages)).Get("/rooms/{id}/messages", ok)
	r.With(mw.Can(access.ActionLeaveRoom)).Delete("/rooms/{id}/users/{userId}", ok)
	return r
}

func TestCan(t *testing.T) {
	gate := access.NewDefaultGate()
	member := models.NewUser("alice", "0042", "alice@example.com")
	member.Rooms = []models.RoomRole{{RoomID: "r1", Roles: []string{models.RoomRoleMember}}}
	roomAdmin := models.NewUser("bob", "0007", "bob@example.com")
	roomAdmin.Rooms = []models.RoomRole{{RoomID: "r1", Roles: []string{models.RoomRoleAdmin}}}

	t.Run("member allowed", func(t *testing.T) {
		events := &recordingEvents{}
		router := newRoomRouter(NewAccessMiddleware(gate, events, zap.NewNop()), member, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, events.events)
	})

	t.Run("non member denied with action message", func(t *testing.T) {
		events := &recordingEvents{}
		router := newRoomRouter(NewAccessMiddleware(gate, events, zap.NewNop()), member, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/r2/messages", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"statusCode":403,"message":"Access Denied - You don't have permission to: get messages"}`, w.Body.String())

		require.Len(t, events.events, 1)
		event := events.events[0]
		assert.Equal(t, models.AuthActionAccessDenied, event.Action)
		assert.Equal(t, models.OutcomeFailure, event.Outcome)
		require.NotNil(t, event.UserID)
		assert.Equal(t, "alice#0042", *event.UserID)
		require.NotNil(t, event.Reason)
		assert.Equal(t, access.ActionGetMessages, *event.Reason)
	})

	t.Run("anonymous denied", func(t *testing.T) {
		router := newRoomRouter(NewAccessMiddleware(gate, nil, zap.NewNop()), nil, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("encoded user id is unescaped", func(t *testing.T) {
		var seen access.Target
		router := newRoomRouter(NewAccessMiddleware(gate, nil, zap.NewNop()), member, &seen)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/r1/users/alice%230042", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, access.Target{RoomID: "r1", UserID: "alice#0042"}, seen)
	})

	t.Run("user id is decoded exactly once", func(t *testing.T) {
		var seen access.Target
		router := newRoomRouter(NewAccessMiddleware(gate, nil, zap.NewNop()), roomAdmin, &seen)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/r1/users/A%2541%230001", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, access.Target{RoomID: "r1", UserID: "A%41#0001"}, seen)
	})

	t.Run("escaped slash is decoded from the raw path", func(t *testing.T) {
		var seen access.Target
		router := newRoomRouter(NewAccessMiddleware(gate, nil, zap.NewNop()), roomAdmin, &seen)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/r1/users/alice%2F0042", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, access.Target{RoomID: "r1", UserID: "alice/0042"}, seen)
	})
}
