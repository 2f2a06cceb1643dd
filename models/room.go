package models

import "time"

// Room-scoped roles
const (
	RoomRoleAdmin     = "admin"
	RoomRoleModerator = "moderator"
	RoomRoleMember    = "member"
)

// RoomRole is one entry in a user's room-role context
type RoomRole struct {
	RoomID string   `json:"room_id"`
	Roles  []string `json:"roles"`
}

// Room is the subset of a chat room the auth core reads and writes
type Room struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Password  string       `json:"-" db:"password"`
	Members   []RoomMember `json:"users" db:"-"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// RoomMember is a member entry on a room
type RoomMember struct {
	UserID string   `json:"user" db:"user_id"`
	Roles  []string `json:"roles" db:"roles"`
}

// Member returns the entry for userID, or nil
func (r *Room) Member(userID string) *RoomMember {
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			return &r.Members[i]
		}
	}
	return nil
}
