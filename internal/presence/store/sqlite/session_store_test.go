package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gymstack/presence/internal/presence/store"
	"github.com/gymstack/presence/internal/presence/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════
// OpenSession
// ═══════════════════════════════════════════════════════════════════

func TestOpenSession_InsertsSessionAndLedgerRow(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()

	checkIn := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	sess, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-1",
		MemberID:  "mem-001",
		CheckInAt: checkIn,
		Location:  "main",
		Notes:     "leg day",
	})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if sess.ID != "sess-1" || sess.MemberID != "mem-001" {
		t.Fatalf("unexpected session identity: %+v", sess)
	}
	if !sess.Open() {
		t.Fatal("freshly opened session should be open")
	}

	open, err := ss.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open session, got %d", len(open))
	}
	if !open[0].CheckInAt.Equal(checkIn) {
		t.Fatalf("check-in time = %v, want %v", open[0].CheckInAt, checkIn)
	}
	if open[0].Location != "main" || open[0].Notes != "leg day" {
		t.Fatalf("location/notes not persisted: %+v", open[0])
	}

	// The same transaction created today's ledger row.
	var timeInMs int64
	err = conn.QueryRowContext(ctx, `
SELECT time_in_ms FROM daily_attendance_records WHERE member_id = ? AND day = ?;
`, "mem-001", "2026-08-30").Scan(&timeInMs)
	if err != nil {
		t.Fatalf("ledger row missing after open: %v", err)
	}
	if timeInMs != checkIn.UnixMilli() {
		t.Fatalf("ledger time_in_ms = %d, want %d", timeInMs, checkIn.UnixMilli())
	}
}

func TestOpenSession_SecondOpenReturnsConflictWithCurrent(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()

	first := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-1", MemberID: "mem-001", CheckInAt: first,
	}); err != nil {
		t.Fatalf("first OpenSession: %v", err)
	}

	_, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-2", MemberID: "mem-001", CheckInAt: first.Add(time.Hour),
	})

	var conflict *store.SessionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *store.SessionConflictError, got %v", err)
	}
	if conflict.Current.ID != "sess-1" {
		t.Fatalf("conflict should carry the open session, got %+v", conflict.Current)
	}
	if !conflict.Current.CheckInAt.Equal(first) {
		t.Fatalf("conflict check-in = %v, want %v", conflict.Current.CheckInAt, first)
	}

	// The losing open must leave no trace.
	open, err := ss.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 1 || open[0].ID != "sess-1" {
		t.Fatalf("expected only sess-1 open, got %+v", open)
	}
}

func TestOpenSession_DifferentMembersDoNotConflict(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")
	seedMember(t, conn, "mem-002")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC)

	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-a", MemberID: "mem-001", CheckInAt: now,
	}); err != nil {
		t.Fatalf("open mem-001: %v", err)
	}
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-b", MemberID: "mem-002", CheckInAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("open mem-002: %v", err)
	}

	open, err := ss.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open sessions, got %d", len(open))
	}
	// Newest check-in first.
	if open[0].ID != "sess-b" || open[1].ID != "sess-a" {
		t.Fatalf("expected newest-first ordering, got %s then %s", open[0].ID, open[1].ID)
	}
}

// Two goroutines race to open a session for the same member.  Exactly
// one must win; the loser gets a conflict carrying the winner's
// session, and exactly one open row exists afterwards.
func TestOpenSession_ConcurrentOpensExactlyOneWins(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 6, 30, 0, 0, time.UTC)

	const attempts = 2
	errs := make([]error, attempts)
	ids := []string{"sess-x", "sess-y"}

	var start sync.WaitGroup
	var done sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			_, errs[i] = ss.OpenSession(ctx, store.OpenSessionParams{
				SessionID: ids[i], MemberID: "mem-001", CheckInAt: now,
			})
		}(i)
	}
	start.Done()
	done.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			var conflict *store.SessionConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("unexpected error from racing open: %v", err)
			}
			conflicts++
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins=%d conflicts=%d, want exactly one of each", wins, conflicts)
	}

	open, err := ss.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected exactly 1 open session after race, got %d", len(open))
	}
}

// ═══════════════════════════════════════════════════════════════════
// CloseSession
// ═══════════════════════════════════════════════════════════════════

func TestCloseSession_ComputesFloorDurationAndUpdatesLedger(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()

	checkIn := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-1", MemberID: "mem-001", CheckInAt: checkIn,
	}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	// 45m30s in the gym floors to 45 minutes.
	checkOut := checkIn.Add(45*time.Minute + 30*time.Second)
	closed, err := ss.CloseSession(ctx, store.CloseSessionParams{
		MemberID: "mem-001", CheckOutAt: checkOut,
	})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	if closed.Open() {
		t.Fatal("closed session still reports open")
	}
	if closed.DurationMin == nil || *closed.DurationMin != 45 {
		t.Fatalf("duration = %v, want 45", closed.DurationMin)
	}
	if closed.FlagReason != "" {
		t.Fatalf("unexpected flag %q on a normal close", closed.FlagReason)
	}

	var outMs, durMin int64
	err = conn.QueryRowContext(ctx, `
SELECT time_out_ms, duration_min FROM daily_attendance_records
WHERE member_id = ? AND day = ?;
`, "mem-001", "2026-08-30").Scan(&outMs, &durMin)
	if err != nil {
		t.Fatalf("ledger row after close: %v", err)
	}
	if outMs != checkOut.UnixMilli() || durMin != 45 {
		t.Fatalf("ledger out=%d dur=%d, want out=%d dur=45", outMs, durMin, checkOut.UnixMilli())
	}

	// Member can check in again after closing.
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-2", MemberID: "mem-001", CheckInAt: checkOut.Add(time.Hour),
	}); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
}

func TestCloseSession_NoOpenSession(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)

	_, err := ss.CloseSession(context.Background(), store.CloseSessionParams{
		MemberID: "mem-001", CheckOutAt: time.Now().UTC(),
	})
	if !errors.Is(err, store.ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession, got %v", err)
	}
}

func TestCloseSession_ClockSkewClampsToZeroAndFlags(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()

	checkIn := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-1", MemberID: "mem-001", CheckInAt: checkIn,
	}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	// Check-out before check-in: still succeeds, duration clamps to 0.
	closed, err := ss.CloseSession(ctx, store.CloseSessionParams{
		MemberID: "mem-001", CheckOutAt: checkIn.Add(-10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("CloseSession with skew: %v", err)
	}
	if closed.DurationMin == nil || *closed.DurationMin != 0 {
		t.Fatalf("duration = %v, want 0", closed.DurationMin)
	}
	if closed.FlagReason != store.FlagClockSkew {
		t.Fatalf("flag = %q, want %q", closed.FlagReason, store.FlagClockSkew)
	}
}

func TestCloseSession_NotesReplaceAndKeep(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")
	seedMember(t, conn, "mem-002")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()
	checkIn := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	// Notes supplied at close replace the open-time notes.
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-1", MemberID: "mem-001", CheckInAt: checkIn, Notes: "original",
	}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	replaced := "updated at checkout"
	closed, err := ss.CloseSession(ctx, store.CloseSessionParams{
		MemberID: "mem-001", CheckOutAt: checkIn.Add(time.Hour), Notes: &replaced,
	})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.Notes != replaced {
		t.Fatalf("notes = %q, want %q", closed.Notes, replaced)
	}

	// Nil notes at close keep the originals.
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-2", MemberID: "mem-002", CheckInAt: checkIn, Notes: "keep me",
	}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	closed, err = ss.CloseSession(ctx, store.CloseSessionParams{
		MemberID: "mem-002", CheckOutAt: checkIn.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.Notes != "keep me" {
		t.Fatalf("notes = %q, want %q", closed.Notes, "keep me")
	}
}

func TestCloseSession_MidnightSpanCreatesCloseDayRecord(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()

	// In at 23:30, out at 00:45 the next day.
	checkIn := time.Date(2026, 8, 30, 23, 30, 0, 0, time.UTC)
	checkOut := time.Date(2026, 8, 31, 0, 45, 0, 0, time.UTC)

	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-1", MemberID: "mem-001", CheckInAt: checkIn,
	}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	closed, err := ss.CloseSession(ctx, store.CloseSessionParams{
		MemberID: "mem-001", CheckOutAt: checkOut,
	})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if *closed.DurationMin != 75 {
		t.Fatalf("duration = %d, want 75", *closed.DurationMin)
	}

	// The check-in day record stays open-ended; the close landed on the
	// next day's record, created with the session's check-in as time_in.
	var outMs *int64
	err = conn.QueryRowContext(ctx, `
SELECT time_out_ms FROM daily_attendance_records WHERE member_id = ? AND day = ?;
`, "mem-001", "2026-08-30").Scan(&outMs)
	if err != nil {
		t.Fatalf("check-in day record: %v", err)
	}
	if outMs != nil {
		t.Fatalf("check-in day time_out_ms = %d, want NULL", *outMs)
	}

	var timeInMs, timeOutMs, durMin int64
	err = conn.QueryRowContext(ctx, `
SELECT time_in_ms, time_out_ms, duration_min FROM daily_attendance_records
WHERE member_id = ? AND day = ?;
`, "mem-001", "2026-08-31").Scan(&timeInMs, &timeOutMs, &durMin)
	if err != nil {
		t.Fatalf("close day record: %v", err)
	}
	if timeInMs != checkIn.UnixMilli() || timeOutMs != checkOut.UnixMilli() || durMin != 75 {
		t.Fatalf("close day record = (%d, %d, %d), want (%d, %d, 75)",
			timeInMs, timeOutMs, durMin, checkIn.UnixMilli(), checkOut.UnixMilli())
	}
}

// ═══════════════════════════════════════════════════════════════════
// FlagOpenSessionsBefore
// ═══════════════════════════════════════════════════════════════════

func TestFlagOpenSessionsBefore(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedMember(t, conn, "mem-001")
	seedMember(t, conn, "mem-002")

	ss := sqlite.NewSessionStore(conn, writer, time.UTC)
	ctx := context.Background()

	old := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-old", MemberID: "mem-001", CheckInAt: old,
	}); err != nil {
		t.Fatalf("open old: %v", err)
	}
	if _, err := ss.OpenSession(ctx, store.OpenSessionParams{
		SessionID: "sess-recent", MemberID: "mem-002", CheckInAt: recent,
	}); err != nil {
		t.Fatalf("open recent: %v", err)
	}

	cutoff := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	flagged, err := ss.FlagOpenSessionsBefore(ctx, cutoff, store.FlagOverstay)
	if err != nil {
		t.Fatalf("FlagOpenSessionsBefore: %v", err)
	}
	if flagged != 1 {
		t.Fatalf("flagged = %d, want 1", flagged)
	}

	open, err := ss.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	// Flagging never closes anything.
	if len(open) != 2 {
		t.Fatalf("expected both sessions still open, got %d", len(open))
	}
	for _, sess := range open {
		switch sess.ID {
		case "sess-old":
			if sess.FlagReason != store.FlagOverstay {
				t.Fatalf("old session flag = %q, want %q", sess.FlagReason, store.FlagOverstay)
			}
		case "sess-recent":
			if sess.FlagReason != "" {
				t.Fatalf("recent session unexpectedly flagged %q", sess.FlagReason)
			}
		}
	}

	// Second sweep is a no-op: already flagged sessions keep their reason.
	flagged, err = ss.FlagOpenSessionsBefore(ctx, cutoff, store.FlagOverstay)
	if err != nil {
		t.Fatalf("second FlagOpenSessionsBefore: %v", err)
	}
	if flagged != 0 {
		t.Fatalf("second sweep flagged = %d, want 0", flagged)
	}
}
