package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/chatrooms/middleware"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"go.uber.org/zap"
)

// MockRoomService is a mock implementation of RoomService
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) Join(ctx context.Context, roomID, userID string) (*models.RoomMember, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomMember), args.Error(1)
}

func (m *MockRoomService) Leave(ctx context.Context, roomID, userID string) error {
	return m.Called(ctx, roomID, userID).Error(0)
}

func (m *MockRoomService) Delete(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func newRoomTestRouter(h *RoomHandler, user *models.User) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(middleware.WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/rooms/{id}/users", h.HandleJoin)
	r.Delete("/rooms/{id}/users/{userId}", h.HandleLeave)
	r.Delete("/rooms/{id}", h.HandleDelete)
	r.Get("/rooms/{id}/messages", h.HandleNotImplemented)
	return r
}

func TestRoomHandler_Join(t *testing.T) {
	user := models.NewUser("alice", "0042", "alice@example.com")

	t.Run("joins the session user", func(t *testing.T) {
		svc := new(MockRoomService)
		svc.On("Join", mock.Anything, "r1", "alice#0042").
			Return(&models.RoomMember{UserID: "alice#0042", Roles: []string{models.RoomRoleMember}}, nil)
		router := newRoomTestRouter(NewRoomHandler(svc, zap.NewNop()), user)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms/r1/users", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"statusCode":201,"data":{"user":"alice#0042","roles":["member"]}}`, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("without session", func(t *testing.T) {
		svc := new(MockRoomService)
		router := newRoomTestRouter(NewRoomHandler(svc, zap.NewNop()), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms/r1/users", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("already a member", func(t *testing.T) {
		svc := new(MockRoomService)
		svc.On("Join", mock.Anything, "r1", "alice#0042").Return(nil, services.ErrAlreadyMember)
		router := newRoomTestRouter(NewRoomHandler(svc, zap.NewNop()), user)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms/r1/users", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestRoomHandler_Leave(t *testing.T) {
	svc := new(MockRoomService)
	svc.On("Leave", mock.Anything, "r1", "bob#0007").Return(nil)
	svc.On("Leave", mock.Anything, "r1", "ghost#0000").Return(services.ErrNotMember)
	router := newRoomTestRouter(NewRoomHandler(svc, zap.NewNop()), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/r1/users/bob%230007", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/r1/users/ghost%230000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomHandler_Delete(t *testing.T) {
	svc := new(MockRoomService)
	svc.On("Delete", mock.Anything, "r1").Return(nil)
	svc.On("Delete", mock.Anything, "gone").Return(services.ErrRoomNotFound)
	router := newRoomTestRouter(NewRoomHandler(svc, zap.NewNop()), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/r1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rooms/gone", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomHandler_NotImplemented(t *testing.T) {
	router := newRoomTestRouter(NewRoomHandler(new(MockRoomService), zap.NewNop()), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Contains(t, w.Body.String(), `"statusCode":501`)
}
