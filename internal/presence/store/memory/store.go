package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gymstack/presence/internal/presence/store"
)

// Store is an in-memory implementation of the session, ledger and stats
// contracts, intended for tests and dev environments.  One mutex guards
// everything, which gives the same atomicity the SQLite writer worker
// provides: an open inserts the session and the day's ledger row under
// one lock, so the invariants hold under concurrent callers.
type Store struct {
	mu       sync.Mutex
	loc      *time.Location
	sessions []*store.Session
	open     map[string]*store.Session     // memberID -> open session
	records  map[string]*store.DailyRecord // memberID|day -> record
}

func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		loc:     loc,
		open:    make(map[string]*store.Session),
		records: make(map[string]*store.DailyRecord),
	}
}

func recordKey(memberID, day string) string { return memberID + "|" + day }

// ── SessionStore ─────────────────────────────────────────────────────────────

func (s *Store) OpenSession(_ context.Context, p store.OpenSessionParams) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.open[p.MemberID]; ok {
		return store.Session{}, &store.SessionConflictError{Current: *cur}
	}

	sess := &store.Session{
		ID:        p.SessionID,
		MemberID:  p.MemberID,
		CheckInAt: p.CheckInAt.UTC(),
		Location:  p.Location,
		Notes:     p.Notes,
	}
	s.sessions = append(s.sessions, sess)
	s.open[p.MemberID] = sess

	day := store.DayOf(p.CheckInAt, s.loc)
	if _, ok := s.records[recordKey(p.MemberID, day)]; !ok {
		s.records[recordKey(p.MemberID, day)] = &store.DailyRecord{
			MemberID: p.MemberID,
			Day:      day,
			TimeIn:   p.CheckInAt.UTC(),
		}
	}

	return *sess, nil
}

func (s *Store) CloseSession(_ context.Context, p store.CloseSessionParams) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.open[p.MemberID]
	if !ok {
		return store.Session{}, store.ErrNoOpenSession
	}

	checkOut := p.CheckOutAt.UTC()
	durMin := int64(checkOut.Sub(cur.CheckInAt).Minutes())
	if durMin < 0 {
		durMin = 0
		cur.FlagReason = store.FlagClockSkew
	}

	cur.CheckOutAt = &checkOut
	cur.DurationMin = &durMin
	if p.Notes != nil {
		cur.Notes = *p.Notes
	}
	delete(s.open, p.MemberID)

	day := store.DayOf(checkOut, s.loc)
	rec, ok := s.records[recordKey(p.MemberID, day)]
	if !ok {
		// Midnight-spanning close: the close day has no record yet.
		rec = &store.DailyRecord{
			MemberID: p.MemberID,
			Day:      day,
			TimeIn:   cur.CheckInAt,
		}
		s.records[recordKey(p.MemberID, day)] = rec
	}
	out := checkOut
	d := durMin
	rec.TimeOut = &out
	rec.DurationMin = &d

	return *cur, nil
}

func (s *Store) OpenSessions(_ context.Context) ([]store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Session
	for _, sess := range s.sessions {
		if sess.Open() {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInAt.After(out[j].CheckInAt) })
	return out, nil
}

func (s *Store) FlagOpenSessionsBefore(_ context.Context, cutoff time.Time, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flagged int64
	for _, sess := range s.open {
		if sess.CheckInAt.Before(cutoff) && sess.FlagReason == "" {
			sess.FlagReason = reason
			flagged++
		}
	}
	return flagged, nil
}

// ── LedgerStore ──────────────────────────────────────────────────────────────

func (s *Store) EnsureDailyRecord(_ context.Context, memberID, day string, timeIn time.Time) (store.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[recordKey(memberID, day)]; ok {
		return *rec, nil
	}
	rec := &store.DailyRecord{MemberID: memberID, Day: day, TimeIn: timeIn.UTC()}
	s.records[recordKey(memberID, day)] = rec
	return *rec, nil
}

func (s *Store) RecordClose(_ context.Context, memberID, day string, timeOut time.Time, durationMin int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(memberID, day)]
	if !ok {
		return fmt.Errorf("RecordClose: no record for %s on %s", memberID, day)
	}
	out := timeOut.UTC()
	d := durationMin
	rec.TimeOut = &out
	rec.DurationMin = &d
	return nil
}

func (s *Store) History(_ context.Context, memberID string, page, pageSize int) ([]store.DailyRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []store.DailyRecord
	for _, rec := range s.records {
		if rec.MemberID == memberID {
			all = append(all, *rec)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Day > all[j].Day })

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// ── Test helpers ─────────────────────────────────────────────────────────────

// Sessions returns a copy of every session ever opened.  Test-only.
func (s *Store) Sessions() []store.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out
}

// Records returns a copy of every ledger row.  Test-only.
func (s *Store) Records() []store.DailyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.DailyRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}
