package store

import (
	"context"
	"time"
)

type TodaySnapshot struct {
	TotalCheckIns   int
	CurrentlyInGym  int
	AverageVisitMin float64 // mean over today's closed ledger durations; 0 if none
}

type DayStats struct {
	Day             string
	Visits          int
	UniqueMembers   int
	AverageVisitMin float64
}

type HourCount struct {
	Hour     int // 0-23, in the configured timezone
	CheckIns int
}

type PeriodSummary struct {
	Days            int
	TotalVisits     int
	UniqueMembers   int
	AverageVisitMin float64
	DailyBreakdown  []DayStats  // one entry per calendar day, zero-filled
	PeakHours       []HourCount // top 5 by first-check-in count, ties to the lower hour
	RecentRecords   []DailyRecord
}

// RecentRecordsCap bounds the raw-detail slice on PeriodSummary.  The
// summary fields are always computed over the full window, never over
// this capped slice.
const RecentRecordsCap = 100

// StatsStore is the read-only aggregation side.  Implementations never
// mutate anything; calls may run concurrently with writes and a few
// milliseconds of staleness is fine.
type StatsStore interface {
	TodaySnapshot(ctx context.Context, now time.Time) (TodaySnapshot, error)
	PeriodSummary(ctx context.Context, now time.Time, days int) (PeriodSummary, error)
}
