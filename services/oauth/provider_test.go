package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/chatrooms/config"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// newProviderServer stubs the token and profile endpoints of a provider
func newProviderServer(t *testing.T, profile interface{}, profileStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(profileStatus)
		_ = json.NewEncoder(w).Encode(profile)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func providerConfig(srv *httptest.Server) config.OAuthProviderConfig {
	return config.OAuthProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "http://localhost:8080/auth/test/callback",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		ProfileURL:   srv.URL + "/me",
	}
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogle(config.OAuthProviderConfig{ClientID: "cid", CallbackURL: "http://localhost/cb"})

	u, err := url.Parse(p.AuthCodeURL("state-xyz"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-xyz", u.Query().Get("state"))
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))
	assert.Contains(t, u.Query().Get("scope"), "email")
}

func TestProvider_GoogleFlow(t *testing.T) {
	srv := newProviderServer(t, map[string]string{
		"sub":     "g-123",
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"picture": "https://img.example.com/jane.png",
	}, http.StatusOK)
	p := NewGoogle(providerConfig(srv))
	ctx := context.Background()

	tok, err := p.Exchange(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)

	profile, err := p.FetchProfile(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, models.ExternalProfile{
		ExternalID:  "g-123",
		DisplayName: "Jane Doe",
		Emails:      []string{"jane@example.com"},
		Photos:      []string{"https://img.example.com/jane.png"},
	}, profile)
}

func TestProvider_FacebookProfile(t *testing.T) {
	fb := map[string]interface{}{
		"id":    "fb-9",
		"name":  "John Smith",
		"email": "john@example.com",
		"picture": map[string]interface{}{
			"data": map[string]string{"url": "https://fb.example.com/john.jpg"},
		},
	}
	srv := newProviderServer(t, fb, http.StatusOK)
	p := NewFacebook(providerConfig(srv))

	profile, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "access-123"})
	require.NoError(t, err)
	assert.Equal(t, "fb-9", profile.ExternalID)
	assert.Equal(t, "John Smith", profile.DisplayName)
	assert.Equal(t, "john@example.com", profile.PrimaryEmail())
	assert.Equal(t, "https://fb.example.com/john.jpg", profile.PrimaryPhoto())
	assert.Equal(t, models.ProviderFacebook, p.Name())
}

func TestProvider_ProfileWithoutEmail(t *testing.T) {
	srv := newProviderServer(t, map[string]string{"id": "fb-1", "name": "No Mail"}, http.StatusOK)
	p := NewFacebook(providerConfig(srv))

	profile, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "access-123"})
	require.NoError(t, err)
	assert.Empty(t, profile.PrimaryEmail())
	assert.Empty(t, profile.Photos)
}

func TestProvider_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("bad code", func(t *testing.T) {
		srv := newProviderServer(t, map[string]string{}, http.StatusOK)
		_, err := NewGoogle(providerConfig(srv)).Exchange(ctx, "bad-code")
		assert.ErrorIs(t, err, services.ErrProviderFailure)
	})

	t.Run("profile endpoint error", func(t *testing.T) {
		srv := newProviderServer(t, map[string]string{"error": "nope"}, http.StatusInternalServerError)
		_, err := NewGoogle(providerConfig(srv)).FetchProfile(ctx, &oauth2.Token{AccessToken: "access-123"})
		assert.ErrorIs(t, err, services.ErrProviderFailure)
	})

	t.Run("profile without id", func(t *testing.T) {
		srv := newProviderServer(t, map[string]string{"name": "Anon"}, http.StatusOK)
		_, err := NewGoogle(providerConfig(srv)).FetchProfile(ctx, &oauth2.Token{AccessToken: "access-123"})
		assert.ErrorIs(t, err, services.ErrProviderFailure)
	})

	t.Run("rejected token", func(t *testing.T) {
		srv := newProviderServer(t, map[string]string{"sub": "x"}, http.StatusOK)
		_, err := NewGoogle(providerConfig(srv)).FetchProfile(ctx, &oauth2.Token{AccessToken: "stolen"})
		assert.ErrorIs(t, err, services.ErrProviderFailure)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(config.OAuthConfig{
		Google: config.OAuthProviderConfig{ClientID: "gid", ClientSecret: "gs"},
	}, zap.NewNop())

	assert.Equal(t, []string{models.ProviderGoogle}, r.Names())

	p, err := r.Get(models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGoogle, p.Name())

	_, err = r.Get(models.ProviderFacebook)
	assert.ErrorIs(t, err, services.ErrProviderDisabled)

	r.Register(NewFacebook(config.OAuthProviderConfig{ClientID: "fid"}))
	assert.Equal(t, []string{models.ProviderFacebook, models.ProviderGoogle}, r.Names())
}
