// Package oauth wraps golang.org/x/oauth2 clients for the supported
// identity providers and normalizes their user profiles.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/upb/chatrooms/config"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const maxProfileBytes = 1 << 20

// Default profile endpoints
const (
	FacebookProfileURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"
	GoogleProfileURL   = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Provider is one configured OAuth2 identity provider
type Provider struct {
	name       string
	oauth      *oauth2.Config
	profileURL string
	decode     func([]byte) (models.ExternalProfile, error)
}

// Name returns the provider name used in routes and Provider entries
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the consent page URL carrying state
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeExternal, p.name+" code exchange failed", err)
	}
	return tok, nil
}

// FetchProfile reads the user's profile with an access token
func (p *Provider) FetchProfile(ctx context.Context, tok *oauth2.Token) (models.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return models.ExternalProfile{}, fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return models.ExternalProfile{}, services.WrapError(services.ErrorTypeExternal, p.name+" profile request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return models.ExternalProfile{}, services.WrapError(services.ErrorTypeExternal, p.name+" profile read failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.ExternalProfile{}, services.WrapError(services.ErrorTypeExternal, p.name+" profile request failed",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	profile, err := p.decode(body)
	if err != nil {
		return models.ExternalProfile{}, services.WrapError(services.ErrorTypeExternal, p.name+" profile is malformed", err)
	}
	if profile.ExternalID == "" {
		return models.ExternalProfile{}, services.WrapError(services.ErrorTypeExternal, p.name+" profile is malformed",
			fmt.Errorf("missing id"))
	}
	return profile, nil
}

// NewFacebook creates the Facebook provider
func NewFacebook(cfg config.OAuthProviderConfig) *Provider {
	return newProvider(models.ProviderFacebook, cfg, endpoints.Facebook, FacebookProfileURL,
		[]string{"email", "public_profile"}, decodeFacebook)
}

// NewGoogle creates the Google provider
func NewGoogle(cfg config.OAuthProviderConfig) *Provider {
	return newProvider(models.ProviderGoogle, cfg, endpoints.Google, GoogleProfileURL,
		[]string{"openid", "profile", "email"}, decodeGoogle)
}

func newProvider(name string, cfg config.OAuthProviderConfig, endpoint oauth2.Endpoint, profileURL string,
	scopes []string, decode func([]byte) (models.ExternalProfile, error)) *Provider {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.ProfileURL != "" {
		profileURL = cfg.ProfileURL
	}

	return &Provider{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		profileURL: profileURL,
		decode:     decode,
	}
}

type facebookProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func decodeFacebook(body []byte) (models.ExternalProfile, error) {
	var fb facebookProfile
	if err := json.Unmarshal(body, &fb); err != nil {
		return models.ExternalProfile{}, err
	}
	return newProfile(fb.ID, fb.Name, fb.Email, fb.Picture.Data.URL), nil
}

type googleProfile struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func decodeGoogle(body []byte) (models.ExternalProfile, error) {
	var g googleProfile
	if err := json.Unmarshal(body, &g); err != nil {
		return models.ExternalProfile{}, err
	}
	return newProfile(g.Sub, g.Name, g.Email, g.Picture), nil
}

func newProfile(id, name, email, photo string) models.ExternalProfile {
	p := models.ExternalProfile{ExternalID: id, DisplayName: name, Emails: []string{}, Photos: []string{}}
	if email != "" {
		p.Emails = append(p.Emails, email)
	}
	if photo != "" {
		p.Photos = append(p.Photos, photo)
	}
	return p
}

// Registry holds the enabled providers by name
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds providers for every configured client id
func NewRegistry(cfg config.OAuthConfig, logger *zap.Logger) *Registry {
	r := &Registry{providers: make(map[string]*Provider)}
	if cfg.Facebook.Enabled() {
		r.Register(NewFacebook(cfg.Facebook))
	}
	if cfg.Google.Enabled() {
		r.Register(NewGoogle(cfg.Google))
	}
	logger.Info("oauth providers configured", zap.Strings("providers", r.Names()))
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p *Provider) {
	r.providers[p.name] = p
}

// Get returns the named provider or ErrProviderDisabled
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, services.ErrProviderDisabled
	}
	return p, nil
}

// Names returns the enabled provider names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
