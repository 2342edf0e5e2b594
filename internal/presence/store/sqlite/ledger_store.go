package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/gymstack/presence/internal/db"
	"github.com/gymstack/presence/internal/presence/store"
)

type LedgerStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLedgerStore(db *sql.DB, writer *dbpkg.Worker) *LedgerStore {
	return &LedgerStore{db: db, writer: writer}
}

// ensureDailyRecord creates the (memberID, day) ledger row if it does
// not exist yet.  The (member_id, day) primary key makes the insert
// idempotent: a second open the same day is a no-op and the original
// time_in survives.
//
// Must be called inside an existing transaction.
func ensureDailyRecord(ctx context.Context, tx *sql.Tx, memberID, day string, timeInMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO daily_attendance_records(
  member_id, day, time_in_ms, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(member_id, day) DO NOTHING;
`, memberID, day, timeInMs, timeInMs, timeInMs); err != nil {
		return fmt.Errorf("ensureDailyRecord %s/%s: %w", memberID, day, err)
	}
	return nil
}

func (s *LedgerStore) EnsureDailyRecord(ctx context.Context, memberID, day string, timeIn time.Time) (store.DailyRecord, error) {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return ensureDailyRecord(ctx, tx, memberID, day, timeIn.UTC().UnixMilli())
	})
	if err != nil {
		return store.DailyRecord{}, store.Unavailable(err)
	}

	row := s.db.QueryRowContext(ctx, `
SELECT member_id, day, time_in_ms, time_out_ms, duration_min
FROM daily_attendance_records
WHERE member_id = ? AND day = ?;
`, memberID, day)
	rec, err := scanDailyRecord(row)
	if err != nil {
		return store.DailyRecord{}, store.Unavailable(fmt.Errorf("EnsureDailyRecord read back: %w", err))
	}
	return rec, nil
}

// RecordClose updates exactly the one (memberID, day) row.  The primary
// key guarantees single-row semantics; historical days of the same
// member are untouchable from here.
func (s *LedgerStore) RecordClose(ctx context.Context, memberID, day string, timeOut time.Time, durationMin int64) error {
	outMs := timeOut.UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE daily_attendance_records
SET time_out_ms = ?, duration_min = ?, updated_at_ms = ?
WHERE member_id = ? AND day = ?;
`, outMs, durationMin, outMs, memberID, day)
		if err != nil {
			return fmt.Errorf("RecordClose update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("RecordClose: no record for %s on %s", memberID, day)
		}
		return nil
	})
	if err != nil {
		return store.Unavailable(err)
	}
	return nil
}

func (s *LedgerStore) History(ctx context.Context, memberID string, page, pageSize int) ([]store.DailyRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM daily_attendance_records WHERE member_id = ?;
`, memberID).Scan(&total)
	if err != nil {
		return nil, 0, store.Unavailable(fmt.Errorf("History count: %w", err))
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT member_id, day, time_in_ms, time_out_ms, duration_min
FROM daily_attendance_records
WHERE member_id = ?
ORDER BY day DESC
LIMIT ? OFFSET ?;
`, memberID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, store.Unavailable(fmt.Errorf("History query: %w", err))
	}
	defer rows.Close()

	var out []store.DailyRecord
	for rows.Next() {
		rec, err := scanDailyRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("History scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Unavailable(fmt.Errorf("History rows: %w", err))
	}
	return out, total, nil
}

func scanDailyRecord(r rowScanner) (store.DailyRecord, error) {
	var (
		rec      store.DailyRecord
		timeInMs int64
		outMs    sql.NullInt64
		durMin   sql.NullInt64
	)
	if err := r.Scan(&rec.MemberID, &rec.Day, &timeInMs, &outMs, &durMin); err != nil {
		return store.DailyRecord{}, err
	}
	rec.TimeIn = time.UnixMilli(timeInMs).UTC()
	if outMs.Valid {
		t := time.UnixMilli(outMs.Int64).UTC()
		rec.TimeOut = &t
	}
	if durMin.Valid {
		d := durMin.Int64
		rec.DurationMin = &d
	}
	return rec, nil
}
