package identity

import (
	"context"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
)

// Credentials carries whatever a strategy needs; each strategy reads only
// its own fields.
type Credentials struct {
	Email    string
	Password string

	Profile     *models.ExternalProfile
	AccessToken string
	Current     *models.User // authenticated session user, if any

	Subject string // verified token subject
}

// Strategy resolves credentials to a user. Routes pick a strategy
// explicitly; nothing is registered globally.
type Strategy interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
}

// LocalSignupStrategy registers a local account
type LocalSignupStrategy struct{ r *Resolver }

// LocalLoginStrategy checks a local password
type LocalLoginStrategy struct{ r *Resolver }

// OAuthStrategy logs in or links through one external provider
type OAuthStrategy struct {
	r        *Resolver
	provider string
}

// TokenSessionStrategy rebuilds the session user from a verified token subject
type TokenSessionStrategy struct{ r *Resolver }

func NewLocalSignupStrategy(r *Resolver) *LocalSignupStrategy { return &LocalSignupStrategy{r: r} }
func NewLocalLoginStrategy(r *Resolver) *LocalLoginStrategy   { return &LocalLoginStrategy{r: r} }
func NewTokenSessionStrategy(r *Resolver) *TokenSessionStrategy {
	return &TokenSessionStrategy{r: r}
}

// NewOAuthStrategy binds the resolver to a provider name
func NewOAuthStrategy(r *Resolver, provider string) *OAuthStrategy {
	return &OAuthStrategy{r: r, provider: provider}
}

func (s *LocalSignupStrategy) Name() string  { return "local-signup" }
func (s *LocalLoginStrategy) Name() string   { return "local-login" }
func (s *OAuthStrategy) Name() string        { return s.provider }
func (s *TokenSessionStrategy) Name() string { return "jwt" }

func (s *LocalSignupStrategy) Authenticate(ctx context.Context, c Credentials) (*models.User, error) {
	return s.r.LocalSignup(ctx, c.Email, c.Password)
}

func (s *LocalLoginStrategy) Authenticate(ctx context.Context, c Credentials) (*models.User, error) {
	return s.r.LocalLogin(ctx, c.Email, c.Password)
}

func (s *OAuthStrategy) Authenticate(ctx context.Context, c Credentials) (*models.User, error) {
	if c.Profile == nil {
		return nil, services.ErrInvalidInput
	}
	return s.r.OAuthLogin(ctx, s.provider, *c.Profile, c.AccessToken, c.Current)
}

func (s *TokenSessionStrategy) Authenticate(ctx context.Context, c Credentials) (*models.User, error) {
	if c.Subject == "" {
		return nil, services.ErrSessionInvalid
	}
	return s.r.ResolveSession(ctx, c.Subject)
}
