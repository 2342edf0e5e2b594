package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/gymstack/presence/internal/db"
	"github.com/gymstack/presence/internal/presence/store"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	loc    *time.Location
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker, loc *time.Location) *SessionStore {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionStore{db: db, writer: writer, loc: loc}
}

// OpenSession inserts the new session and upserts the day's ledger row
// in one transaction.  The one-open-session-per-member invariant is
// enforced by idx_sessions_one_open_per_member: two concurrent opens
// both reach the INSERT and the loser gets a unique violation, which is
// translated here into *store.SessionConflictError.
func (s *SessionStore) OpenSession(ctx context.Context, p store.OpenSessionParams) (store.Session, error) {
	checkInMs := p.CheckInAt.UTC().UnixMilli()
	day := store.DayOf(p.CheckInAt, s.loc)

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO check_in_sessions(
  session_id, member_id, check_in_ms, location, notes, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?);
`, p.SessionID, p.MemberID, checkInMs, p.Location, p.Notes, checkInMs, checkInMs); err != nil {
			return err
		}

		// First open of the day creates the ledger row; later opens
		// leave the original time_in untouched.
		return ensureDailyRecord(ctx, tx, p.MemberID, day, checkInMs)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return store.Session{}, s.sessionConflict(ctx, p.MemberID)
		}
		return store.Session{}, store.Unavailable(fmt.Errorf("OpenSession insert: %w", err))
	}

	return store.Session{
		ID:        p.SessionID,
		MemberID:  p.MemberID,
		CheckInAt: p.CheckInAt.UTC(),
		Location:  p.Location,
		Notes:     p.Notes,
	}, nil
}

// sessionConflict loads the member's currently open session so the
// conflict error can carry it for display.  If the open session closed
// in the meantime the error still reports the conflict, just without
// the session detail.
func (s *SessionStore) sessionConflict(ctx context.Context, memberID string) error {
	cur, err := s.openSessionOf(ctx, memberID)
	if err != nil {
		return &store.SessionConflictError{Current: store.Session{MemberID: memberID}}
	}
	return &store.SessionConflictError{Current: cur}
}

func (s *SessionStore) openSessionOf(ctx context.Context, memberID string) (store.Session, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, member_id, check_in_ms, check_out_ms, duration_min, location, notes, flag_reason
FROM check_in_sessions
WHERE member_id = ? AND check_out_ms IS NULL;
`, memberID)
	return scanSession(row)
}

// CloseSession finds the unique open session and closes it, all inside
// one writer transaction.  The read-then-update is race-free because
// the worker serializes every write; the WHERE check_out_ms IS NULL
// guard on the UPDATE is the storage-level re-check regardless.
func (s *SessionStore) CloseSession(ctx context.Context, p store.CloseSessionParams) (store.Session, error) {
	var closed store.Session

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
SELECT session_id, member_id, check_in_ms, check_out_ms, duration_min, location, notes, flag_reason
FROM check_in_sessions
WHERE member_id = ? AND check_out_ms IS NULL;
`, p.MemberID)

		cur, err := scanSession(row)
		if err == sql.ErrNoRows {
			return store.ErrNoOpenSession
		}
		if err != nil {
			return fmt.Errorf("CloseSession find open: %w", err)
		}

		checkOut := p.CheckOutAt.UTC()
		durMin := int64(checkOut.Sub(cur.CheckInAt).Minutes())
		flag := cur.FlagReason
		if durMin < 0 {
			// Clock skew: clamp rather than report a negative visit,
			// and flag the session for later review.
			durMin = 0
			flag = store.FlagClockSkew
		}

		notes := cur.Notes
		if p.Notes != nil {
			notes = *p.Notes
		}

		checkOutMs := checkOut.UnixMilli()
		res, err := tx.ExecContext(ctx, `
UPDATE check_in_sessions
SET check_out_ms = ?,
    duration_min = ?,
    notes        = ?,
    flag_reason  = ?,
    updated_at_ms = ?
WHERE session_id = ? AND check_out_ms IS NULL;
`, checkOutMs, durMin, notes, nullIfEmpty(flag), checkOutMs, cur.ID)
		if err != nil {
			return fmt.Errorf("CloseSession update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNoOpenSession
		}

		// Update the ledger row for the close-time calendar day.  A
		// session spanning midnight may close on a day with no record
		// yet; the upsert creates it with the session's check-in as
		// time_in so the row still describes the actual visit.
		day := store.DayOf(checkOut, s.loc)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO daily_attendance_records(
  member_id, day, time_in_ms, time_out_ms, duration_min, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(member_id, day) DO UPDATE SET
  time_out_ms   = excluded.time_out_ms,
  duration_min  = excluded.duration_min,
  updated_at_ms = excluded.updated_at_ms;
`, p.MemberID, day, cur.CheckInAt.UnixMilli(), checkOutMs, durMin, checkOutMs, checkOutMs); err != nil {
			return fmt.Errorf("CloseSession ledger upsert: %w", err)
		}

		closed = cur
		closed.CheckOutAt = &checkOut
		closed.DurationMin = &durMin
		closed.Notes = notes
		closed.FlagReason = flag
		return nil
	})
	if err == store.ErrNoOpenSession {
		return store.Session{}, err
	}
	if err != nil {
		return store.Session{}, store.Unavailable(err)
	}
	return closed, nil
}

func (s *SessionStore) OpenSessions(ctx context.Context) ([]store.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, member_id, check_in_ms, check_out_ms, duration_min, location, notes, flag_reason
FROM check_in_sessions
WHERE check_out_ms IS NULL
ORDER BY check_in_ms DESC, session_id;
`)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("OpenSessions query: %w", err))
	}
	defer rows.Close()

	var out []store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("OpenSessions scan: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(fmt.Errorf("OpenSessions rows: %w", err))
	}
	return out, nil
}

// FlagOpenSessionsBefore marks long-open sessions for review.  Already
// flagged sessions keep their original reason.
func (s *SessionStore) FlagOpenSessionsBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	var flagged int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE check_in_sessions
SET flag_reason = ?, updated_at_ms = ?
WHERE check_out_ms IS NULL AND check_in_ms < ? AND flag_reason IS NULL;
`, reason, nowMs, cutoffMs)
		if err != nil {
			return fmt.Errorf("FlagOpenSessionsBefore: %w", err)
		}
		flagged, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, store.Unavailable(err)
	}
	return flagged, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (store.Session, error) {
	var (
		sess       store.Session
		checkInMs  int64
		checkOutMs sql.NullInt64
		durMin     sql.NullInt64
		flag       sql.NullString
	)
	err := r.Scan(&sess.ID, &sess.MemberID, &checkInMs, &checkOutMs, &durMin, &sess.Location, &sess.Notes, &flag)
	if err != nil {
		return store.Session{}, err
	}

	sess.CheckInAt = time.UnixMilli(checkInMs).UTC()
	if checkOutMs.Valid {
		t := time.UnixMilli(checkOutMs.Int64).UTC()
		sess.CheckOutAt = &t
	}
	if durMin.Valid {
		d := durMin.Int64
		sess.DurationMin = &d
	}
	if flag.Valid {
		sess.FlagReason = flag.String
	}
	return sess, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
