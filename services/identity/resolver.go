// Package identity turns credentials into users: local signup and login,
// OAuth login and account linking, and session reconstruction from a
// verified token subject.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"github.com/upb/chatrooms/services"
	"go.uber.org/zap"
)

// Hasher hashes and verifies passwords
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
	IsStrong(plaintext string) bool
}

// Config tunes the resolver
type Config struct {
	StoreTimeout          time.Duration
	DiscriminatorAttempts int
	// AppendOnLink lists providers that keep the legacy behavior of
	// appending a new link on every authenticated login.
	AppendOnLink map[string]bool
}

var errDiscriminatorsExhausted = errors.New("no free discriminator")

// Resolver implements every identity strategy over the credential store.
// It holds no locks; the store's unique constraints arbitrate races.
type Resolver struct {
	users  repositories.UserRepository
	rooms  repositories.RoomRepository
	hasher Hasher
	cfg    Config
	logger *zap.Logger

	discriminator func() (string, error)
}

// NewResolver creates a new Resolver
func NewResolver(users repositories.UserRepository, rooms repositories.RoomRepository, hasher Hasher, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.DiscriminatorAttempts < 1 {
		cfg.DiscriminatorAttempts = 1
	}
	return &Resolver{
		users:         users,
		rooms:         rooms,
		hasher:        hasher,
		cfg:           cfg,
		logger:        logger.Named("identity"),
		discriminator: randomDiscriminator,
	}
}

// LocalSignup registers a new local account.
// The email check runs before the password policy.
func (r *Resolver) LocalSignup(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)

	_, found, err := r.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, services.ErrDuplicateEmail
	}

	if !r.hasher.IsStrong(password) {
		return nil, services.ErrWeakPassword
	}

	digest, err := r.hasher.Hash(password)
	if err != nil {
		return nil, services.NewStoreError("hash password", err)
	}

	user, err := r.create(ctx, usernameFromEmail(email), func(u *models.User) {
		u.Email = email
		u.PasswordHash = digest
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("local account created", zap.String("user_id", user.ID))
	return user, nil
}

// LocalLogin checks an email and password against the stored hash
func (r *Resolver) LocalLogin(ctx context.Context, email, password string) (*models.User, error) {
	user, found, err := r.findByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, services.ErrUserNotFound
	}
	if !user.HasLocalCredential() {
		return nil, services.ErrNoLocalCredential
	}
	if !r.hasher.Verify(password, user.PasswordHash) {
		return nil, services.ErrInvalidCredential
	}
	return user, nil
}

// OAuthLogin resolves an external profile. With a current session user it
// links the provider to that account; otherwise it matches on the
// profile's primary email, creating the account when none exists.
func (r *Resolver) OAuthLogin(ctx context.Context, provider string, profile models.ExternalProfile, token string, current *models.User) (*models.User, error) {
	if current != nil {
		return r.link(ctx, current, provider, profile.ExternalID, token)
	}

	email := strings.TrimSpace(profile.PrimaryEmail())
	if email == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "identity provider did not share an email address", nil).
			WithDetail("provider", provider)
	}

	user, found, err := r.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if found {
		return r.relogin(ctx, user, provider, profile.ExternalID, token)
	}

	user, err = r.create(ctx, displayNameToID(profile.DisplayName, email), func(u *models.User) {
		u.Name = strings.TrimSpace(profile.DisplayName)
		if u.Name == "" {
			u.Name = usernameFromEmail(email)
		}
		u.Email = email
		u.ProfilePicture = profile.PrimaryPhoto()
		u.Providers = []models.Provider{{Name: provider, ExternalID: profile.ExternalID, Token: token}}
	})
	if errors.Is(err, services.ErrDuplicateEmail) {
		// lost a race with a concurrent first login for the same email
		if user, found, err = r.findByEmail(ctx, email); err == nil && found {
			return r.relogin(ctx, user, provider, profile.ExternalID, token)
		}
		if err == nil {
			err = services.NewStoreError("reload user after email conflict", repositories.ErrNotFound)
		}
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("account created from provider profile",
		zap.String("user_id", user.ID),
		zap.String("provider", provider))
	return user, nil
}

// relogin handles an unauthenticated OAuth login for an existing account
func (r *Resolver) relogin(ctx context.Context, user *models.User, provider, externalID, token string) (*models.User, error) {
	if !LinkOrUpdateProvider(user, provider, externalID, token) {
		return user, nil
	}
	if err := r.update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// link attaches a provider to the authenticated user. current is left
// untouched; the linked copy is returned only once it has been stored.
func (r *Resolver) link(ctx context.Context, current *models.User, provider, externalID, token string) (*models.User, error) {
	user := *current
	user.Providers = append([]models.Provider(nil), current.Providers...)

	if r.cfg.AppendOnLink[provider] {
		user.Providers = append(user.Providers, models.Provider{Name: provider, ExternalID: externalID, Token: token})
	} else if !LinkOrUpdateProvider(&user, provider, externalID, token) {
		return current, nil
	}

	if err := r.update(ctx, &user); err != nil {
		return nil, err
	}

	r.logger.Info("provider linked",
		zap.String("user_id", user.ID),
		zap.String("provider", provider),
		zap.Int("links", len(user.Providers)))
	return &user, nil
}

// ResolveSession rebuilds the session user from a token subject and
// attaches the room-role context. There is no partial success.
func (r *Resolver) ResolveSession(ctx context.Context, userID string) (*models.User, error) {
	sctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	user, err := r.users.GetByID(sctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSessionInvalid
		}
		return nil, services.NewStoreError("get user by id", err)
	}

	rooms, err := r.rooms.FindRolesByMember(sctx, user.ID)
	if err != nil {
		return nil, services.NewStoreError("find rooms by member", err)
	}
	user.Rooms = rooms
	return user, nil
}

// LinkOrUpdateProvider keeps exactly one entry per provider: it updates the
// existing entry in place or appends a new one. Reports whether anything changed.
func LinkOrUpdateProvider(user *models.User, provider, externalID, token string) bool {
	if p := user.GetProvider(provider); p != nil {
		if p.ExternalID == externalID && p.Token == token {
			return false
		}
		p.ExternalID = externalID
		p.Token = token
		return true
	}
	user.Providers = append(user.Providers, models.Provider{Name: provider, ExternalID: externalID, Token: token})
	return true
}

func (r *Resolver) findByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	sctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	user, err := r.users.GetByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, services.NewStoreError("get user by email", err)
	}
	return user, true, nil
}

func (r *Resolver) update(ctx context.Context, user *models.User) error {
	sctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	user.UpdatedAt = time.Now()
	if err := r.users.Update(sctx, user); err != nil {
		return services.NewStoreError("update user", err)
	}
	return nil
}

// create inserts a user named name#dddd, drawing a new discriminator when
// the id is taken.
func (r *Resolver) create(ctx context.Context, name string, fill func(*models.User)) (*models.User, error) {
	for attempt := 1; attempt <= r.cfg.DiscriminatorAttempts; attempt++ {
		disc, err := r.discriminator()
		if err != nil {
			return nil, services.NewStoreError("draw discriminator", err)
		}

		user := models.NewUser(name, disc, "")
		fill(user)

		sctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
		err = r.users.Create(sctx, user)
		cancel()

		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, repositories.ErrIDTaken):
			r.logger.Warn("discriminator collision",
				zap.String("user_id", user.ID),
				zap.Int("attempt", attempt))
			continue
		case errors.Is(err, repositories.ErrEmailTaken):
			return nil, services.ErrDuplicateEmail
		default:
			return nil, services.NewStoreError("create user", err)
		}
	}
	return nil, services.NewStoreError("create user", errDiscriminatorsExhausted)
}

// randomDiscriminator returns four decimal digits
func randomDiscriminator() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}

// displayNameToID replaces every whitespace character with "_"
func displayNameToID(displayName, email string) string {
	if strings.TrimSpace(displayName) == "" {
		return usernameFromEmail(email)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, displayName)
}
