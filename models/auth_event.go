package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuthAction represents the type of authentication event being audited
type AuthAction string

const (
	AuthActionSignup         AuthAction = "signup"
	AuthActionLogin          AuthAction = "login"
	AuthActionLoginFailed    AuthAction = "login_failed"
	AuthActionOAuthLogin     AuthAction = "oauth_login"
	AuthActionProviderLinked AuthAction = "provider_linked"
	AuthActionLogout         AuthAction = "logout"
	AuthActionAccessDenied   AuthAction = "access_denied"
)

// AuthOutcome is the result of an audited step
type AuthOutcome string

const (
	OutcomeSuccess AuthOutcome = "success"
	OutcomeFailure AuthOutcome = "failure"
)

// AuthEvent represents an audit trail entry for the auth subsystem
type AuthEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    *string         `json:"user_id,omitempty" db:"user_id"`
	Action    AuthAction      `json:"action" db:"action"`
	Provider  *string         `json:"provider,omitempty" db:"provider"`
	Outcome   AuthOutcome     `json:"outcome" db:"outcome"`
	Reason    *string         `json:"reason,omitempty" db:"reason"`
	Details   json.RawMessage `json:"details" db:"details"` // JSONB
	IPAddress string          `json:"ip_address" db:"ip_address"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	RequestID string          `json:"request_id" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// NewAuthEvent creates a new AuthEvent instance
func NewAuthEvent(action AuthAction, outcome AuthOutcome) *AuthEvent {
	return &AuthEvent{
		ID:        uuid.New(),
		Action:    action,
		Outcome:   outcome,
		Timestamp: time.Now(),
	}
}

// WithUser sets the user ID
func (e *AuthEvent) WithUser(userID string) *AuthEvent {
	if userID != "" {
		e.UserID = &userID
	}
	return e
}

// WithProvider sets the external provider name
func (e *AuthEvent) WithProvider(provider string) *AuthEvent {
	if provider != "" {
		e.Provider = &provider
	}
	return e
}

// WithReason sets the failure reason
func (e *AuthEvent) WithReason(reason string) *AuthEvent {
	if reason != "" {
		e.Reason = &reason
	}
	return e
}

// WithDetails sets the details
func (e *AuthEvent) WithDetails(details interface{}) *AuthEvent {
	if data, err := json.Marshal(details); err == nil {
		e.Details = data
	}
	return e
}

// WithRequest sets request metadata
func (e *AuthEvent) WithRequest(requestID, ipAddress, userAgent string) *AuthEvent {
	e.RequestID = requestID
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}
