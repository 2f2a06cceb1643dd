package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// providerRecord is the JSONB shape of one provider link. The access token
// is kept out of models.Provider's JSON so it never reaches a response body.
type providerRecord struct {
	Name       string `json:"name"`
	ExternalID string `json:"id"`
	Token      string `json:"token,omitempty"`
}

func encodeProviders(providers []models.Provider) ([]byte, error) {
	records := make([]providerRecord, 0, len(providers))
	for _, p := range providers {
		records = append(records, providerRecord{Name: p.Name, ExternalID: p.ExternalID, Token: p.Token})
	}
	return json.Marshal(records)
}

func decodeProviders(data []byte) ([]models.Provider, error) {
	providers := []models.Provider{}
	if len(data) == 0 {
		return providers, nil
	}
	var records []providerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		providers = append(providers, models.Provider{Name: r.Name, ExternalID: r.ExternalID, Token: r.Token})
	}
	return providers, nil
}

const userColumns = `id, name, discriminator, email, password_hash, providers, role, profile_picture, created_at, updated_at`

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	providers, err := encodeProviders(user.Providers)
	if err != nil {
		return fmt.Errorf("failed to encode providers: %w", err)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Discriminator,
		user.Email,
		nullString(user.PasswordHash),
		providers,
		user.Role,
		nullString(user.ProfilePicture),
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID), zap.String("email", user.Email))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user := &models.User{}

	var (
		passwordHash   sql.NullString
		profilePicture sql.NullString
		providers      []byte
	)

	err := executor.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Discriminator,
		&user.Email,
		&passwordHash,
		&providers,
		&user.Role,
		&profilePicture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.PasswordHash = passwordHash.String
	user.ProfilePicture = profilePicture.String
	if user.Providers, err = decodeProviders(providers); err != nil {
		return nil, fmt.Errorf("failed to decode providers for user %s: %w", user.ID, err)
	}

	return user, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2,
		    password_hash = $3,
		    providers = $4,
		    role = $5,
		    profile_picture = $6,
		    updated_at = $7
		WHERE id = $1
	`

	providers, err := encodeProviders(user.Providers)
	if err != nil {
		return fmt.Errorf("failed to encode providers: %w", err)
	}

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Name,
		nullString(user.PasswordHash),
		providers,
		user.Role,
		nullString(user.ProfilePicture),
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("user updated", zap.String("id", user.ID), zap.Int("providers", len(user.Providers)))
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
