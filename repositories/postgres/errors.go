package postgres

import (
	"errors"

	"github.com/lib/pq"
	"github.com/upb/chatrooms/repositories"
)

const uniqueViolation = pq.ErrorCode("23505")

// mapWriteError translates unique violations into repository sentinels.
// Any other error is returned unchanged.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_email_key":
		return repositories.ErrEmailTaken
	case "users_pkey":
		return repositories.ErrIDTaken
	case "room_members_pkey":
		return repositories.ErrAlreadyMember
	}
	return err
}
