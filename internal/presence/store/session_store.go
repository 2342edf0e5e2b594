package store

import (
	"context"
	"time"
)

type OpenSessionParams struct {
	SessionID string
	MemberID  string
	CheckInAt time.Time
	Location  string
	Notes     string
}

type CloseSessionParams struct {
	MemberID   string
	CheckOutAt time.Time
	Notes      *string // nil keeps the notes supplied at open time
}

// SessionStore persists check-in sessions and, through the same
// transaction, keeps the daily ledger consistent.
//
// OpenSession must enforce the one-open-session-per-member invariant at
// the storage boundary: two concurrent opens for the same member race on
// a uniqueness constraint, not on a check-then-insert, and the loser
// receives *SessionConflictError.
type SessionStore interface {
	// OpenSession inserts a new open session and upserts the member's
	// daily record for the check-in day, atomically.
	OpenSession(ctx context.Context, p OpenSessionParams) (Session, error)

	// CloseSession closes the member's unique open session, computing
	// duration (floor minutes, clamped to 0 with a clock-skew flag on a
	// negative delta), and updates the daily record for the close-time
	// calendar day in the same transaction.  Returns ErrNoOpenSession
	// when nothing is open.
	CloseSession(ctx context.Context, p CloseSessionParams) (Session, error)

	// OpenSessions returns every open session, newest check-in first.
	OpenSessions(ctx context.Context) ([]Session, error)

	// FlagOpenSessionsBefore marks sessions that have been open since
	// before cutoff with the given flag reason.  It never closes or
	// deletes anything.  Returns the number of sessions newly flagged.
	FlagOpenSessionsBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}
