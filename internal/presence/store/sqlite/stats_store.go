package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/gymstack/presence/internal/presence/store"
)

// StatsStore is the read-only aggregation side.  It never goes through
// the writer: plain reads against the pool are enough, and a few
// milliseconds of staleness against in-flight writes is acceptable.
type StatsStore struct {
	db  *sql.DB
	loc *time.Location
}

func NewStatsStore(db *sql.DB, loc *time.Location) *StatsStore {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsStore{db: db, loc: loc}
}

func (s *StatsStore) TodaySnapshot(ctx context.Context, now time.Time) (store.TodaySnapshot, error) {
	dayStart := store.DayStart(now, s.loc)
	nextStart := dayStart.AddDate(0, 0, 1)

	var snap store.TodaySnapshot
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN check_out_ms IS NULL THEN 1 ELSE 0 END), 0)
FROM check_in_sessions
WHERE check_in_ms >= ? AND check_in_ms < ?;
`, dayStart.UnixMilli(), nextStart.UnixMilli()).Scan(&snap.TotalCheckIns, &snap.CurrentlyInGym)
	if err != nil {
		return store.TodaySnapshot{}, store.Unavailable(fmt.Errorf("TodaySnapshot sessions: %w", err))
	}

	// AVG ignores NULL durations (still-open visits); COALESCE covers
	// the no-closed-visits-yet case.
	err = s.db.QueryRowContext(ctx, `
SELECT COALESCE(AVG(duration_min), 0)
FROM daily_attendance_records
WHERE day = ? AND duration_min IS NOT NULL;
`, store.DayOf(now, s.loc)).Scan(&snap.AverageVisitMin)
	if err != nil {
		return store.TodaySnapshot{}, store.Unavailable(fmt.Errorf("TodaySnapshot ledger: %w", err))
	}

	return snap, nil
}

func (s *StatsStore) PeriodSummary(ctx context.Context, now time.Time, days int) (store.PeriodSummary, error) {
	if days < 1 {
		days = 1
	}
	windowStart := now.Add(-time.Duration(days) * 24 * time.Hour)
	startDay := store.DayOf(windowStart, s.loc)
	endDay := store.DayOf(now, s.loc)

	sum := store.PeriodSummary{Days: days}

	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(DISTINCT member_id)
FROM check_in_sessions
WHERE check_in_ms >= ? AND check_in_ms < ?;
`, windowStart.UnixMilli(), now.UnixMilli()).Scan(&sum.TotalVisits, &sum.UniqueMembers)
	if err != nil {
		return store.PeriodSummary{}, store.Unavailable(fmt.Errorf("PeriodSummary sessions: %w", err))
	}

	err = s.db.QueryRowContext(ctx, `
SELECT COALESCE(AVG(duration_min), 0)
FROM daily_attendance_records
WHERE day >= ? AND day <= ? AND duration_min IS NOT NULL;
`, startDay, endDay).Scan(&sum.AverageVisitMin)
	if err != nil {
		return store.PeriodSummary{}, store.Unavailable(fmt.Errorf("PeriodSummary avg: %w", err))
	}

	byDay, err := s.dailyBreakdown(ctx, startDay, endDay)
	if err != nil {
		return store.PeriodSummary{}, err
	}
	sum.DailyBreakdown = zeroFillDays(byDay, store.DayStart(windowStart, s.loc), store.DayStart(now, s.loc), s.loc)

	sum.PeakHours, err = s.peakHours(ctx, startDay, endDay)
	if err != nil {
		return store.PeriodSummary{}, err
	}

	sum.RecentRecords, err = s.recentRecords(ctx, startDay, endDay)
	if err != nil {
		return store.PeriodSummary{}, err
	}

	return sum, nil
}

func (s *StatsStore) dailyBreakdown(ctx context.Context, startDay, endDay string) (map[string]store.DayStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT day, COUNT(*), COUNT(DISTINCT member_id), COALESCE(AVG(duration_min), 0)
FROM daily_attendance_records
WHERE day >= ? AND day <= ?
GROUP BY day;
`, startDay, endDay)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("PeriodSummary breakdown: %w", err))
	}
	defer rows.Close()

	byDay := make(map[string]store.DayStats)
	for rows.Next() {
		var ds store.DayStats
		if err := rows.Scan(&ds.Day, &ds.Visits, &ds.UniqueMembers, &ds.AverageVisitMin); err != nil {
			return nil, fmt.Errorf("PeriodSummary breakdown scan: %w", err)
		}
		byDay[ds.Day] = ds
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(fmt.Errorf("PeriodSummary breakdown rows: %w", err))
	}
	return byDay, nil
}

// peakHours buckets first-check-in times by hour of day in the
// configured timezone.  Bucketing happens in Go because the timestamps
// are epoch columns and SQLite knows nothing about our zone.
func (s *StatsStore) peakHours(ctx context.Context, startDay, endDay string) ([]store.HourCount, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT time_in_ms FROM daily_attendance_records WHERE day >= ? AND day <= ?;
`, startDay, endDay)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("PeriodSummary peak hours: %w", err))
	}
	defer rows.Close()

	var counts [24]int
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("PeriodSummary peak hours scan: %w", err)
		}
		counts[time.UnixMilli(ms).In(s.loc).Hour()]++
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(fmt.Errorf("PeriodSummary peak hours rows: %w", err))
	}

	return topHours(counts, 5), nil
}

func (s *StatsStore) recentRecords(ctx context.Context, startDay, endDay string) ([]store.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT member_id, day, time_in_ms, time_out_ms, duration_min
FROM daily_attendance_records
WHERE day >= ? AND day <= ?
ORDER BY time_in_ms DESC
LIMIT ?;
`, startDay, endDay, store.RecentRecordsCap)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("PeriodSummary recent: %w", err))
	}
	defer rows.Close()

	var out []store.DailyRecord
	for rows.Next() {
		rec, err := scanDailyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("PeriodSummary recent scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(fmt.Errorf("PeriodSummary recent rows: %w", err))
	}
	return out, nil
}

// zeroFillDays expands the grouped rows into one entry per calendar day
// between first and last inclusive, oldest first.
func zeroFillDays(byDay map[string]store.DayStats, first, last time.Time, loc *time.Location) []store.DayStats {
	var out []store.DayStats
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := store.DayOf(d, loc)
		if ds, ok := byDay[key]; ok {
			out = append(out, ds)
		} else {
			out = append(out, store.DayStats{Day: key})
		}
	}
	return out
}

// topHours ranks hours by count descending, ties broken by the lower
// hour number, and keeps the top n hours that saw any check-ins.
func topHours(counts [24]int, n int) []store.HourCount {
	var all []store.HourCount
	for h, c := range counts {
		if c > 0 {
			all = append(all, store.HourCount{Hour: h, CheckIns: c})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CheckIns != all[j].CheckIns {
			return all[i].CheckIns > all[j].CheckIns
		}
		return all[i].Hour < all[j].Hour
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
