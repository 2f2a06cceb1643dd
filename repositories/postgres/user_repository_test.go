package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return WrapDB(sqlDB, zap.NewNop()), mock
}

var userRowColumns = []string{
	"id", "name", "discriminator", "email", "password_hash", "providers",
	"role", "profile_picture", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user with encoded providers", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		user := models.NewUser("alice", "0042", "alice@example.com")
		user.PasswordHash = "$2a$10$hash"

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("alice#0042", "alice", "0042", "alice@example.com", "$2a$10$hash",
				[]byte(`[]`), "user", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, models.RoleUser, user.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violations to sentinels", func(t *testing.T) {
		tests := []struct {
			constraint string
			want       error
		}{
			{"users_email_key", repositories.ErrEmailTaken},
			{"users_pkey", repositories.ErrIDTaken},
		}
		for _, tt := range tests {
			t.Run(tt.constraint, func(t *testing.T) {
				db, mock := newMockDB(t)
				repo := NewUserRepository(db, zap.NewNop())

				mock.ExpectExec("INSERT INTO users").
					WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

				err := repo.Create(ctx, models.NewUser("bob", "0001", "bob@example.com"))
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, models.NewUser("bob", "0001", "bob@example.com"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user")
		assert.NotErrorIs(t, err, repositories.ErrEmailTaken)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("decodes providers and nullable columns", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		rows := sqlmock.NewRows(userRowColumns).AddRow(
			"carol#1234", "carol", "1234", "carol@example.com", nil,
			`[{"name":"google","id":"g-1","token":"tok"}]`,
			"admin", "https://img.example.com/c.png", now, now,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
			WithArgs("carol@example.com").
			WillReturnRows(rows)

		user, err := repo.GetByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		assert.Equal(t, "carol#1234", user.ID)
		assert.False(t, user.HasLocalCredential())
		assert.True(t, user.IsAdmin())
		assert.Equal(t, "https://img.example.com/c.png", user.ProfilePicture)
		require.Len(t, user.Providers, 1)
		assert.Equal(t, models.Provider{Name: "google", ExternalID: "g-1", Token: "tok"}, user.Providers[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("FROM users WHERE email").WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("dave#0007").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			"dave#0007", "dave", "0007", "dave@example.com", "$2a$10$h", `[]`, "user", nil, now, now,
		))

	user, err := repo.GetByID(context.Background(), "dave#0007")
	require.NoError(t, err)
	assert.True(t, user.HasLocalCredential())
	assert.Empty(t, user.Providers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("persists providers", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		user := models.NewUser("erin", "0100", "erin@example.com")
		user.Role = models.RoleUser
		user.Providers = []models.Provider{{Name: "facebook", ExternalID: "fb-9", Token: "t"}}

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
			WithArgs("erin#0100", "erin", nil, []byte(`[{"name":"facebook","id":"fb-9","token":"t"}]`),
				"user", nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, models.NewUser("ghost", "0000", "ghost@example.com"))
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}
