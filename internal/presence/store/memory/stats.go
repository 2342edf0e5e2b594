package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gymstack/presence/internal/presence/store"
)

// StatsStore methods.  Same semantics as the SQLite implementation,
// computed over the in-memory state.

func (s *Store) TodaySnapshot(_ context.Context, now time.Time) (store.TodaySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayStart := store.DayStart(now, s.loc)
	nextStart := dayStart.AddDate(0, 0, 1)

	var snap store.TodaySnapshot
	for _, sess := range s.sessions {
		if sess.CheckInAt.Before(dayStart) || !sess.CheckInAt.Before(nextStart) {
			continue
		}
		snap.TotalCheckIns++
		if sess.Open() {
			snap.CurrentlyInGym++
		}
	}

	today := store.DayOf(now, s.loc)
	var sum, n int64
	for _, rec := range s.records {
		if rec.Day == today && rec.DurationMin != nil {
			sum += *rec.DurationMin
			n++
		}
	}
	if n > 0 {
		snap.AverageVisitMin = float64(sum) / float64(n)
	}
	return snap, nil
}

func (s *Store) PeriodSummary(_ context.Context, now time.Time, days int) (store.PeriodSummary, error) {
	if days < 1 {
		days = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	windowStart := now.Add(-time.Duration(days) * 24 * time.Hour)
	startDay := store.DayOf(windowStart, s.loc)
	endDay := store.DayOf(now, s.loc)

	sum := store.PeriodSummary{Days: days}

	members := make(map[string]struct{})
	for _, sess := range s.sessions {
		if sess.CheckInAt.Before(windowStart) || !sess.CheckInAt.Before(now) {
			continue
		}
		sum.TotalVisits++
		members[sess.MemberID] = struct{}{}
	}
	sum.UniqueMembers = len(members)

	type dayAgg struct {
		visits  int
		members map[string]struct{}
		durSum  int64
		durN    int64
	}
	byDay := make(map[string]*dayAgg)
	var counts [24]int
	var durSum, durN int64
	var windowRecs []store.DailyRecord

	for _, rec := range s.records {
		if rec.Day < startDay || rec.Day > endDay {
			continue
		}
		agg, ok := byDay[rec.Day]
		if !ok {
			agg = &dayAgg{members: make(map[string]struct{})}
			byDay[rec.Day] = agg
		}
		agg.visits++
		agg.members[rec.MemberID] = struct{}{}
		if rec.DurationMin != nil {
			agg.durSum += *rec.DurationMin
			agg.durN++
			durSum += *rec.DurationMin
			durN++
		}
		counts[rec.TimeIn.In(s.loc).Hour()]++
		windowRecs = append(windowRecs, *rec)
	}
	if durN > 0 {
		sum.AverageVisitMin = float64(durSum) / float64(durN)
	}

	first := store.DayStart(windowStart, s.loc)
	last := store.DayStart(now, s.loc)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := store.DayOf(d, s.loc)
		ds := store.DayStats{Day: key}
		if agg, ok := byDay[key]; ok {
			ds.Visits = agg.visits
			ds.UniqueMembers = len(agg.members)
			if agg.durN > 0 {
				ds.AverageVisitMin = float64(agg.durSum) / float64(agg.durN)
			}
		}
		sum.DailyBreakdown = append(sum.DailyBreakdown, ds)
	}

	for h, c := range counts {
		if c > 0 {
			sum.PeakHours = append(sum.PeakHours, store.HourCount{Hour: h, CheckIns: c})
		}
	}
	sort.Slice(sum.PeakHours, func(i, j int) bool {
		if sum.PeakHours[i].CheckIns != sum.PeakHours[j].CheckIns {
			return sum.PeakHours[i].CheckIns > sum.PeakHours[j].CheckIns
		}
		return sum.PeakHours[i].Hour < sum.PeakHours[j].Hour
	})
	if len(sum.PeakHours) > 5 {
		sum.PeakHours = sum.PeakHours[:5]
	}

	sort.Slice(windowRecs, func(i, j int) bool { return windowRecs[i].TimeIn.After(windowRecs[j].TimeIn) })
	if len(windowRecs) > store.RecentRecordsCap {
		windowRecs = windowRecs[:store.RecentRecordsCap]
	}
	sum.RecentRecords = windowRecs

	return sum, nil
}
