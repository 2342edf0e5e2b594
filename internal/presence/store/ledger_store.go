package store

import (
	"context"
	"time"
)

// LedgerStore maintains the daily attendance roll-up.  Exactly one row
// exists per (memberID, day); both writes below are single-statement
// upserts/updates guarded by that uniqueness, never find-then-create.
type LedgerStore interface {
	// EnsureDailyRecord creates the (memberID, day) record with the
	// given first check-in time if it does not exist yet.  Idempotent:
	// calling it again the same day returns the existing record.
	EnsureDailyRecord(ctx context.Context, memberID, day string, timeIn time.Time) (DailyRecord, error)

	// RecordClose sets timeOut and duration on the one (memberID, day)
	// record.  The uniqueness constraint makes this provably single-row;
	// it must never touch other days of the same member.
	RecordClose(ctx context.Context, memberID, day string, timeOut time.Time, durationMin int64) error

	// History returns the member's records, newest day first, plus the
	// total row count for pagination.  page is 1-based.
	History(ctx context.Context, memberID string, page, pageSize int) ([]DailyRecord, int, error)
}
