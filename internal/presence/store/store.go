package store

import (
	"errors"
	"fmt"
	"time"
)

// Session is a single physical visit: one check-in and, eventually, one
// check-out.  CheckOutAt == nil means the member is currently in the
// facility.
type Session struct {
	ID          string
	MemberID    string
	CheckInAt   time.Time
	CheckOutAt  *time.Time
	DurationMin *int64 // floor minutes, clamped >= 0; set at close
	Location    string
	Notes       string
	FlagReason  string // "" | FlagClockSkew | FlagOverstay
}

// Open reports whether the session has no check-out yet.
func (s Session) Open() bool { return s.CheckOutAt == nil }

// DailyRecord is the per-member, per-day roll-up.  Exactly one exists
// per (MemberID, Day); it is created on the first check-in of the day
// and updated on close, never duplicated or deleted.
type DailyRecord struct {
	MemberID    string
	Day         string // YYYY-MM-DD in the configured timezone
	TimeIn      time.Time
	TimeOut     *time.Time
	DurationMin *int64
}

// Flag reasons recorded on sessions that need later review.
const (
	FlagClockSkew = "clock_skew"
	FlagOverstay  = "overstay"
)

var (
	// ErrNoOpenSession is returned by Close when the member has no open
	// session to close.
	ErrNoOpenSession = errors.New("no open session for member")

	// ErrUnavailable wraps transient infrastructure failures.  Callers
	// may retry with backoff; every invariant-preserving write is
	// all-or-nothing, so a retry is safe.
	ErrUnavailable = errors.New("store unavailable")
)

type unavailableError struct{ err error }

func (e *unavailableError) Error() string        { return e.err.Error() }
func (e *unavailableError) Unwrap() error        { return e.err }
func (e *unavailableError) Is(target error) bool { return target == ErrUnavailable }

// Unavailable marks err as a transient infrastructure failure so that
// errors.Is(err, ErrUnavailable) holds for callers deciding retry.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{err: err}
}

// SessionConflictError is returned when an open attempt loses the race
// against an existing open session for the same member.  Current is the
// session already open so the caller can surface it.
type SessionConflictError struct {
	Current Session
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("member %s already has an open session (%s)", e.Current.MemberID, e.Current.ID)
}

// DayOf returns the calendar-day key for t in the given timezone.
// Every day-bucketing site (ledger keys, snapshot boundaries, peak
// hours) must go through here so "today" means the same thing
// everywhere.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// DayStart returns midnight of t's calendar day in the given timezone.
func DayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
