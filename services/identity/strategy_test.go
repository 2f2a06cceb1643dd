package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"github.com/upb/chatrooms/services"
)

func TestStrategies_Names(t *testing.T) {
	f := newFixture(defaultConfig())

	strategies := []Strategy{
		NewLocalSignupStrategy(f.resolver),
		NewLocalLoginStrategy(f.resolver),
		NewOAuthStrategy(f.resolver, models.ProviderGoogle),
		NewTokenSessionStrategy(f.resolver),
	}
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"local-signup", "local-login", "google", "jwt"}, names)
}

func TestStrategies_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("local signup", func(t *testing.T) {
		f := newFixture(defaultConfig(), "0001")
		f.users.On("GetByEmail", mock.Anything, "sam@example.com").Return(nil, repositories.ErrNotFound)
		f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

		user, err := NewLocalSignupStrategy(f.resolver).Authenticate(ctx, Credentials{Email: "sam@example.com", Password: "Testing123!"})
		require.NoError(t, err)
		assert.Equal(t, "sam#0001", user.ID)
	})

	t.Run("local login", func(t *testing.T) {
		f := newFixture(defaultConfig())
		f.users.On("GetByEmail", mock.Anything, "sam@example.com").Return(nil, repositories.ErrNotFound)

		_, err := NewLocalLoginStrategy(f.resolver).Authenticate(ctx, Credentials{Email: "sam@example.com", Password: "x"})
		assert.ErrorIs(t, err, services.ErrUserNotFound)
	})

	t.Run("oauth requires a profile", func(t *testing.T) {
		f := newFixture(defaultConfig())

		_, err := NewOAuthStrategy(f.resolver, models.ProviderFacebook).Authenticate(ctx, Credentials{AccessToken: "t"})
		assert.ErrorIs(t, err, services.ErrInvalidInput)
	})

	t.Run("oauth links to the current user", func(t *testing.T) {
		f := newFixture(defaultConfig())
		current := models.NewUser("sam", "0001", "sam@example.com")
		f.users.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

		profile := models.ExternalProfile{ExternalID: "fb-1", Emails: []string{"sam@example.com"}}
		user, err := NewOAuthStrategy(f.resolver, models.ProviderFacebook).Authenticate(ctx, Credentials{
			Profile: &profile, AccessToken: "t", Current: current,
		})
		require.NoError(t, err)
		assert.True(t, user.HasProvider(models.ProviderFacebook))
	})

	t.Run("token session requires a subject", func(t *testing.T) {
		f := newFixture(defaultConfig())

		_, err := NewTokenSessionStrategy(f.resolver).Authenticate(ctx, Credentials{})
		assert.ErrorIs(t, err, services.ErrSessionInvalid)
	})

	t.Run("token session resolves the subject", func(t *testing.T) {
		f := newFixture(defaultConfig())
		f.users.On("GetByID", mock.Anything, "sam#0001").Return(models.NewUser("sam", "0001", "sam@example.com"), nil)
		f.rooms.On("FindRolesByMember", mock.Anything, "sam#0001").Return([]models.RoomRole{}, nil)

		user, err := NewTokenSessionStrategy(f.resolver).Authenticate(ctx, Credentials{Subject: "sam#0001"})
		require.NoError(t, err)
		assert.NotNil(t, user.Rooms)
	})
}
