package service

import (
	"context"
	"strings"
	"time"

	"github.com/gymstack/presence/internal/presence/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AttendanceLedger exposes the daily roll-up.  The open/close paths
// keep the ledger consistent through the store's own transactions; this
// component serves direct ledger access — the history read and the
// named upsert operations.
type AttendanceLedger struct {
	store store.LedgerStore
	loc   *time.Location
}

func NewAttendanceLedger(ls store.LedgerStore, loc *time.Location) *AttendanceLedger {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceLedger{store: ls, loc: loc}
}

// EnsureDailyRecord creates the member's record for date's calendar day
// if missing.  Idempotent; safe to call for every check-in of the day.
func (l *AttendanceLedger) EnsureDailyRecord(ctx context.Context, memberID string, date, timeIn time.Time) (store.DailyRecord, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return store.DailyRecord{}, ErrInvalidMemberID
	}
	return l.store.EnsureDailyRecord(ctx, memberID, store.DayOf(date, l.loc), timeIn)
}

// RecordClose writes the close time and duration onto the one record
// for date's calendar day.
func (l *AttendanceLedger) RecordClose(ctx context.Context, memberID string, date, timeOut time.Time, durationMin int64) error {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return ErrInvalidMemberID
	}
	return l.store.RecordClose(ctx, memberID, store.DayOf(date, l.loc), timeOut, durationMin)
}

// History returns the member's daily records, newest day first, with
// the total count for pagination.  page is 1-based; pageSize is clamped
// to [1, 100] with a default of 20.
func (l *AttendanceLedger) History(ctx context.Context, memberID string, page, pageSize int) ([]store.DailyRecord, int, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, 0, ErrInvalidMemberID
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return l.store.History(ctx, memberID, page, pageSize)
}
