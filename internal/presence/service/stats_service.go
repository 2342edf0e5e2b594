package service

import (
	"context"

	"github.com/gymstack/presence/internal/presence/store"
)

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 365
)

// StatsService is the read-only aggregation surface.  It never mutates
// anything and may run concurrently with check-ins/outs.
type StatsService struct {
	stats store.StatsStore
	clock Clock
}

func NewStatsService(ss store.StatsStore, clock Clock) *StatsService {
	if clock == nil {
		clock = SystemClock()
	}
	return &StatsService{stats: ss, clock: clock}
}

func (s *StatsService) Today(ctx context.Context) (store.TodaySnapshot, error) {
	return s.stats.TodaySnapshot(ctx, s.clock.Now())
}

// Period summarizes the window [now - days, now).  days is clamped to
// [1, 365] with a default of 30.
func (s *StatsService) Period(ctx context.Context, days int) (store.PeriodSummary, error) {
	if days < 1 {
		days = defaultPeriodDays
	}
	if days > maxPeriodDays {
		days = maxPeriodDays
	}
	return s.stats.PeriodSummary(ctx, s.clock.Now(), days)
}
