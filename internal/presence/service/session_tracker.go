package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gymstack/presence/internal/presence/store"
)

type OpenRequest struct {
	MemberID string
	Location string // facility default when empty
	Notes    string
}

type CloseRequest struct {
	MemberID string
	Notes    *string // nil keeps the notes supplied at open time
}

// SessionTracker opens and closes presence sessions.  The session state
// machine is None -[Open]-> Open -[Close]-> Closed; a closed session is
// terminal and a new check-in creates a fresh session.  The
// one-open-session invariant itself lives at the storage boundary —
// this layer validates input, resolves the member and translates store
// results into caller-facing errors.
type SessionTracker struct {
	sessions        store.SessionStore
	registry        *MemberRegistry
	clock           Clock
	defaultLocation string
}

func NewSessionTracker(ss store.SessionStore, reg *MemberRegistry, clock Clock, defaultLocation string) *SessionTracker {
	if clock == nil {
		clock = SystemClock()
	}
	return &SessionTracker{
		sessions:        ss,
		registry:        reg,
		clock:           clock,
		defaultLocation: defaultLocation,
	}
}

func (t *SessionTracker) Open(ctx context.Context, req OpenRequest) (store.Session, error) {
	memberID := strings.TrimSpace(req.MemberID)
	if memberID == "" {
		return store.Session{}, ErrInvalidMemberID
	}

	known, err := t.registry.Exists(ctx, memberID)
	if err != nil {
		return store.Session{}, err
	}
	if !known {
		return store.Session{}, ErrMemberNotFound
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = t.defaultLocation
	}

	sess, err := t.sessions.OpenSession(ctx, store.OpenSessionParams{
		SessionID: uuid.NewString(),
		MemberID:  memberID,
		CheckInAt: t.clock.Now().UTC(),
		Location:  location,
		Notes:     strings.TrimSpace(req.Notes),
	})
	if err != nil {
		var conflict *store.SessionConflictError
		if errors.As(err, &conflict) {
			return store.Session{}, &AlreadyCheckedInError{Current: conflict.Current}
		}
		return store.Session{}, err
	}
	return sess, nil
}

func (t *SessionTracker) Close(ctx context.Context, req CloseRequest) (store.Session, error) {
	memberID := strings.TrimSpace(req.MemberID)
	if memberID == "" {
		return store.Session{}, ErrInvalidMemberID
	}

	sess, err := t.sessions.CloseSession(ctx, store.CloseSessionParams{
		MemberID:   memberID,
		CheckOutAt: t.clock.Now().UTC(),
		Notes:      req.Notes,
	})
	if err != nil {
		if errors.Is(err, store.ErrNoOpenSession) {
			return store.Session{}, ErrNoActiveSession
		}
		return store.Session{}, err
	}
	return sess, nil
}

// CurrentlyCheckedIn returns every open session, newest first.  Pure
// read; calling it never changes anything.
func (t *SessionTracker) CurrentlyCheckedIn(ctx context.Context) ([]store.Session, error) {
	return t.sessions.OpenSessions(ctx)
}
