package models

import (
	"time"
)

// UserRole represents a user's global role
type UserRole string

const (
	// RoleAdmin bypasses every room-scoped permission check
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// Provider names accepted for external accounts
const (
	ProviderFacebook = "facebook"
	ProviderGoogle   = "google"
)

// Provider links a user to an external identity
type Provider struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	Token      string `json:"-"`
}

// User represents a chat account.
// ID has the form "name#dddd" where dddd is the discriminator.
type User struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Discriminator  string     `json:"discriminator" db:"discriminator"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Providers      []Provider `json:"providers" db:"providers"` // JSONB
	Role           UserRole   `json:"role,omitempty" db:"role"`
	ProfilePicture string     `json:"profile_picture,omitempty" db:"profile_picture"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	// Rooms is the room-role context attached per session. Never persisted.
	Rooms []RoomRole `json:"rooms,omitempty" db:"-"`
}

// NewUser creates a new User with the given display name and discriminator
func NewUser(name, discriminator, email string) *User {
	now := time.Now()
	return &User{
		ID:            name + "#" + discriminator,
		Name:          name,
		Discriminator: discriminator,
		Email:         email,
		Providers:     []Provider{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsAdmin returns true if the user has the global admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasLocalCredential reports whether a password hash is stored
func (u *User) HasLocalCredential() bool {
	return u.PasswordHash != ""
}

// GetProvider returns the first entry for the named provider, or nil.
func (u *User) GetProvider(name string) *Provider {
	for i := range u.Providers {
		if u.Providers[i].Name == name {
			return &u.Providers[i]
		}
	}
	return nil
}

// HasProvider reports whether the user has linked the named provider
func (u *User) HasProvider(name string) bool {
	return u.GetProvider(name) != nil
}

// RolesIn returns the user's roles in a room, or nil when not a member
func (u *User) RolesIn(roomID string) []string {
	for _, r := range u.Rooms {
		if r.RoomID == roomID {
			return r.Roles
		}
	}
	return nil
}

// IsMemberOf reports whether the room-role context contains the room
func (u *User) IsMemberOf(roomID string) bool {
	for _, r := range u.Rooms {
		if r.RoomID == roomID {
			return true
		}
	}
	return false
}

// HasRoomRole reports whether the user holds any of the given roles in the room
func (u *User) HasRoomRole(roomID string, roles ...string) bool {
	for _, held := range u.RolesIn(roomID) {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// ExternalProfile is the provider-normalized OAuth profile
type ExternalProfile struct {
	ExternalID  string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Emails      []string `json:"emails"`
	Photos      []string `json:"photos"`
}

// PrimaryEmail returns the first email, or "" when none was shared
func (p *ExternalProfile) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// PrimaryPhoto returns the first photo URL, or "" when none
func (p *ExternalProfile) PrimaryPhoto() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0]
}
