package service

import (
	"errors"
	"fmt"

	"github.com/gymstack/presence/internal/presence/store"
)

var (
	ErrInvalidMemberID = errors.New("member_id is required")

	// ErrMemberNotFound: the member directory does not know this ID.
	// Not retriable; surfaced to the caller as a client error.
	ErrMemberNotFound = errors.New("member not found")

	// ErrNoActiveSession: checkout with nothing open.
	ErrNoActiveSession = errors.New("member has no active session")
)

// AlreadyCheckedInError rejects a second check-in while a session is
// open.  Current carries the open session so the caller can display it.
type AlreadyCheckedInError struct {
	Current store.Session
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("member %s is already checked in", e.Current.MemberID)
}
