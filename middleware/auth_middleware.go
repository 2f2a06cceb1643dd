package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"github.com/upb/chatrooms/services/identity"
	"github.com/upb/chatrooms/services/token"
	"github.com/upb/chatrooms/utils"
	"go.uber.org/zap"
)

// TokenVerifier validates a raw session token
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

// AuthMiddleware verifies the session token and attaches the resolved user
type AuthMiddleware struct {
	verifier TokenVerifier
	sessions identity.Strategy
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. sessions is normally an
// identity.TokenSessionStrategy.
func NewAuthMiddleware(verifier TokenVerifier, sessions identity.Strategy, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		sessions: sessions,
		logger:   logger,
	}
}

// AuthTokenCookieName carries the session token (Authorization header takes precedence)
const AuthTokenCookieName = "auth_token"

// RequireAuth rejects requests without a valid session
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		raw := ExtractToken(r)
		if raw == "" {
			m.logger.Debug("missing token", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		user, claims, err := m.authenticate(ctx, raw)
		if err != nil {
			m.writeAuthError(w, requestID, err)
			return
		}

		ctx = WithClaims(ctx, claims)
		ctx = WithUser(ctx, user)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", user.ID),
			zap.Int("rooms", len(user.Rooms)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the session user when a valid token is present and
// otherwise lets the request through anonymously
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if raw := ExtractToken(r); raw != "" {
			user, claims, err := m.authenticate(ctx, raw)
			if err == nil {
				ctx = WithUser(WithClaims(ctx, claims), user)
			} else {
				m.logger.Debug("ignoring unusable session token",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(ctx context.Context, raw string) (*models.User, *token.Claims, error) {
	claims, err := m.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	user, err := m.sessions.Authenticate(ctx, identity.Credentials{Subject: claims.UserID})
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (m *AuthMiddleware) writeAuthError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		m.logger.Debug("token validation failed", zap.String("request_id", requestID), zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Invalid or expired token")
	case services.IsSessionInvalidError(err):
		m.logger.Warn("token subject no longer exists", zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, services.MsgSessionInvalid)
	default:
		m.logger.Error("session resolution failed", zap.String("request_id", requestID), zap.Error(err))
		_ = utils.WriteInternalServerError(w, services.MsgStoreError)
	}
}

// ExtractToken reads the token from "Authorization: Bearer" or the
// auth_token cookie
func ExtractToken(r *http.Request) string {
	if raw := extractBearerToken(r); raw != "" {
		return raw
	}
	if cookie, err := r.Cookie(AuthTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
