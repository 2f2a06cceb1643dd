// Package access maps declared route actions to allow/deny decisions.
//
// Evaluation is pure: it reads the user's global role and the room-role
// context attached by session resolution and performs no I/O.
package access

import (
	"sync"

	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/services"
)

// Actions declared by the room routes
const (
	ActionEditRoom     = "edit room"
	ActionJoinRoom     = "join room"
	ActionLeaveRoom    = "leave room"
	ActionGetMessages  = "get messages"
	ActionEditMessages = "edit messages"
)

// Target is the resource a request acts on
type Target struct {
	RoomID string
	UserID string
}

// Rule decides an action for a non-admin user. The user is never nil.
type Rule func(user *models.User, target Target) bool

// Gate holds the action table
type Gate struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewGate creates a gate with no rules
func NewGate() *Gate {
	return &Gate{rules: make(map[string]Rule)}
}

// NewDefaultGate creates a gate with the built-in room rules
func NewDefaultGate() *Gate {
	g := NewGate()
	g.Define(ActionEditRoom, RoomRole(models.RoomRoleAdmin))
	g.Define(ActionJoinRoom, Authenticated)
	g.Define(ActionLeaveRoom, leaveRoom)
	g.Define(ActionGetMessages, Member)
	g.Define(ActionEditMessages, RoomRole(models.RoomRoleAdmin, models.RoomRoleModerator))
	return g
}

// Define registers or replaces the rule for an action
func (g *Gate) Define(action string, rule Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules[action] = rule
}

// Authorize returns nil when user may perform action on target, and an
// action_denied DomainError naming the action otherwise.
func (g *Gate) Authorize(user *models.User, action string, target Target) error {
	if g.Allowed(user, action, target) {
		return nil
	}
	return services.NewActionDenied(action)
}

// Allowed is Authorize as a bool
func (g *Gate) Allowed(user *models.User, action string, target Target) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}

	g.mu.RLock()
	rule, ok := g.rules[action]
	g.mu.RUnlock()
	if !ok {
		return false
	}
	return rule(user, target)
}

// Authenticated allows any session user
func Authenticated(*models.User, Target) bool {
	return true
}

// Member allows members of the target room
func Member(user *models.User, target Target) bool {
	return target.RoomID != "" && user.IsMemberOf(target.RoomID)
}

// RoomRole allows users holding any of roles in the target room
func RoomRole(roles ...string) Rule {
	return func(user *models.User, target Target) bool {
		return target.RoomID != "" && user.HasRoomRole(target.RoomID, roles...)
	}
}

// leaveRoom lets members remove themselves and room admins remove anyone
func leaveRoom(user *models.User, target Target) bool {
	if !Member(user, target) {
		return false
	}
	if target.UserID == "" || target.UserID == user.ID {
		return true
	}
	return user.HasRoomRole(target.RoomID, models.RoomRoleAdmin)
}
