// Package auth serves the login surface: local signup and login, the OAuth
// provider redirect and callback, logout and the current-user endpoint.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/upb/chatrooms/handlers"
	"github.com/upb/chatrooms/middleware"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"github.com/upb/chatrooms/services/identity"
	"github.com/upb/chatrooms/services/oauth"
	"github.com/upb/chatrooms/services/token"
	"github.com/upb/chatrooms/utils"
	"go.uber.org/zap"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName   = "oauth_state"
	stateCookieMaxAge = 600
	providerParam     = "provider"
)

// TokenIssuer issues and revokes session tokens
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
	Revoke(ctx context.Context, claims *token.Claims) error
}

// ProviderRegistry looks up enabled OAuth providers by name
type ProviderRegistry interface {
	Get(name string) (*oauth.Provider, error)
}

// Options holds the cookie and redirect settings
type Options struct {
	SecureCookies bool
	FrontEndURL   string
}

// Handler handles the authentication flows
type Handler struct {
	signup    identity.Strategy
	login     identity.Strategy
	oauth     map[string]identity.Strategy
	tokens    TokenIssuer
	providers ProviderRegistry
	events    middleware.EventRecorder
	opts      Options
	logger    *zap.Logger
}

// NewHandler creates a new auth handler. oauthStrategies is keyed by
// provider name; events may be nil.
func NewHandler(
	signup, login identity.Strategy,
	oauthStrategies map[string]identity.Strategy,
	tokens TokenIssuer,
	providers ProviderRegistry,
	events middleware.EventRecorder,
	opts Options,
	logger *zap.Logger,
) *Handler {
	if opts.FrontEndURL == "" {
		opts.FrontEndURL = "/"
	}
	return &Handler{
		signup:    signup,
		login:     login,
		oauth:     oauthStrategies,
		tokens:    tokens,
		providers: providers,
		events:    events,
		opts:      opts,
		logger:    logger,
	}
}

// CredentialsRequest is the local signup and login body
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned by signup and login
type SessionResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// HandleSignup handles POST /auth/signup
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	h.handleLocal(w, r, h.signup, models.AuthActionSignup, http.StatusCreated)
}

// HandleLogin handles POST /auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.handleLocal(w, r, h.login, models.AuthActionLogin, http.StatusOK)
}

func (h *Handler) handleLocal(w http.ResponseWriter, r *http.Request, strategy identity.Strategy, action models.AuthAction, status int) {
	var req CredentialsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		handlers.HandleValidationError(w, err, h.logger)
		return
	}

	user, err := strategy.Authenticate(r.Context(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		failed := action
		if action == models.AuthActionLogin {
			failed = models.AuthActionLoginFailed
		}
		h.record(r, models.NewAuthEvent(failed, models.OutcomeFailure).
			WithReason(string(services.GetErrorType(err))).
			WithDetails(map[string]string{"strategy": strategy.Name()}))
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	raw, expiresAt, err := h.issue(w, user)
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	h.record(r, models.NewAuthEvent(action, models.OutcomeSuccess).WithUser(user.ID))
	h.logger.Info("session issued",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("user_id", user.ID),
		zap.String("strategy", strategy.Name()),
	)
	_ = utils.WriteJSON(w, status, utils.SuccessResponse{
		StatusCode: status,
		Data:       SessionResponse{User: user, Token: raw, ExpiresAt: expiresAt},
	})
}

// HandleProviderLogin handles GET /auth/{provider} and redirects to the
// provider's consent page
func (h *Handler) HandleProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, providerParam))
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	http.SetCookie(w, h.stateCookie(state, stateCookieMaxAge))
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// HandleProviderCallback handles GET /auth/{provider}/callback. A valid
// session token on the request switches the strategy to account linking.
func (h *Handler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, providerParam)
	provider, err := h.providers.Get(name)
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}
	strategy, ok := h.oauth[name]
	if !ok {
		handlers.HandleServiceError(w, services.ErrProviderDisabled, h.logger)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		_ = utils.WriteBadRequest(w, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}
	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}
	http.SetCookie(w, h.stateCookie("", -1))

	tok, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.recordOAuthFailure(r, name, err)
		handlers.HandleServiceError(w, err, h.logger)
		return
	}
	profile, err := provider.FetchProfile(r.Context(), tok)
	if err != nil {
		h.recordOAuthFailure(r, name, err)
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	current := middleware.GetUserFromContext(r.Context())
	user, err := strategy.Authenticate(r.Context(), identity.Credentials{
		Profile:     &profile,
		AccessToken: tok.AccessToken,
		Current:     current,
	})
	if err != nil {
		h.recordOAuthFailure(r, name, err)
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	if _, _, err := h.issue(w, user); err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	action := models.AuthActionOAuthLogin
	if current != nil {
		action = models.AuthActionProviderLinked
	}
	h.record(r, models.NewAuthEvent(action, models.OutcomeSuccess).WithUser(user.ID).WithProvider(name))
	http.Redirect(w, r, h.opts.FrontEndURL, http.StatusFound)
}

// HandleLogout handles POST /auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims != nil {
		if err := h.tokens.Revoke(r.Context(), claims); err != nil {
			handlers.HandleServiceError(w, services.NewStoreError("revoke token", err), h.logger)
			return
		}
	}

	http.SetCookie(w, h.sessionCookie("", time.Time{}))
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		h.record(r, models.NewAuthEvent(models.AuthActionLogout, models.OutcomeSuccess).WithUser(user.ID))
	}
	utils.WriteNoContent(w)
}

// HandleMe handles GET /auth/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handlers.HandleServiceError(w, services.ErrSessionInvalid, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

func (h *Handler) issue(w http.ResponseWriter, user *models.User) (string, time.Time, error) {
	raw, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		return "", time.Time{}, services.WrapError(services.ErrorTypeStoreError, services.MsgStoreError, err)
	}
	http.SetCookie(w, h.sessionCookie(raw, expiresAt))
	return raw, expiresAt, nil
}

func (h *Handler) sessionCookie(value string, expiresAt time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.AuthTokenCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expiresAt
	}
	return c
}

func (h *Handler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) recordOAuthFailure(r *http.Request, provider string, err error) {
	reason := string(services.GetErrorType(err))
	if reason == "" {
		reason = "exchange_failed"
	}
	h.record(r, models.NewAuthEvent(models.AuthActionLoginFailed, models.OutcomeFailure).
		WithProvider(provider).
		WithReason(reason))
}

func (h *Handler) record(r *http.Request, event *models.AuthEvent) {
	if h.events == nil {
		return
	}
	event.WithRequest(middleware.GetRequestIDFromContext(r.Context()), clientIP(r), r.UserAgent())
	if err := h.events.Record(event); err != nil {
		h.logger.Warn("auth event not recorded", zap.String("action", string(event.Action)), zap.Error(err))
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
