package repositories

import (
	"context"
	"errors"

	"github.com/upb/chatrooms/models"
)

// Sentinel errors returned by every repository implementation
var (
	ErrNotFound      = errors.New("record not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrIDTaken       = errors.New("user id already registered")
	ErrAlreadyMember = errors.New("user is already a member of the room")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// UserRepository is the credential store
type UserRepository interface {
	// Create inserts a new user. Returns ErrEmailTaken or ErrIDTaken on a
	// uniqueness violation.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by "name#dddd" id
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update persists name, role, profile picture, password hash and providers
	Update(ctx context.Context, user *models.User) error
}

// RoomRepository covers the room membership data the auth core needs
type RoomRepository interface {
	// GetByID retrieves a room with its member entries
	GetByID(ctx context.Context, id string) (*models.Room, error)

	// FindRolesByMember returns every room the user belongs to, with the
	// user's roles in it
	FindRolesByMember(ctx context.Context, userID string) ([]models.RoomRole, error)

	// AddMember appends a member entry. Returns ErrAlreadyMember on duplicates.
	AddMember(ctx context.Context, roomID string, member models.RoomMember) error

	// RemoveMember deletes a member entry
	RemoveMember(ctx context.Context, roomID, userID string) error

	// Delete removes a room and all its member entries
	Delete(ctx context.Context, id string) error
}

// AuthEventRepository persists the auth audit trail
type AuthEventRepository interface {
	// Insert inserts a new auth event
	Insert(ctx context.Context, event *models.AuthEvent) error

	// GetByUserID retrieves events for a user, newest first
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuthEvent, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users      UserRepository
	Rooms      RoomRepository
	AuthEvents AuthEventRepository
}
