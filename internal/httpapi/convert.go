package httpapi

import (
	"time"

	"github.com/gymstack/presence/internal/presence/store"
	"github.com/gymstack/presence/internal/presence/types"
)

// ── Sessions ─────────────────────────────────────────────────────────────────

func sessionToWire(s store.Session) types.Session {
	out := types.Session{
		ID:          s.ID,
		MemberID:    s.MemberID,
		CheckInTime: s.CheckInAt.Format(time.RFC3339Nano),
		DurationMin: s.DurationMin,
		Location:    s.Location,
		Notes:       s.Notes,
		FlagReason:  s.FlagReason,
	}
	if s.CheckOutAt != nil {
		out.CheckOutTime = s.CheckOutAt.Format(time.RFC3339Nano)
	}
	return out
}

func sessionsToWire(ss []store.Session) []types.Session {
	out := make([]types.Session, 0, len(ss))
	for _, s := range ss {
		out = append(out, sessionToWire(s))
	}
	return out
}

// ── Ledger / stats ───────────────────────────────────────────────────────────

func dailyRecordToWire(r store.DailyRecord) types.DailyRecord {
	out := types.DailyRecord{
		MemberID:    r.MemberID,
		Date:        r.Day,
		TimeIn:      r.TimeIn.Format(time.RFC3339Nano),
		DurationMin: r.DurationMin,
	}
	if r.TimeOut != nil {
		out.TimeOut = r.TimeOut.Format(time.RFC3339Nano)
	}
	return out
}

func dailyRecordsToWire(rs []store.DailyRecord) []types.DailyRecord {
	out := make([]types.DailyRecord, 0, len(rs))
	for _, r := range rs {
		out = append(out, dailyRecordToWire(r))
	}
	return out
}

func todaySnapshotToWire(s store.TodaySnapshot) types.TodaySnapshot {
	return types.TodaySnapshot{
		TotalCheckIns:   s.TotalCheckIns,
		CurrentlyInGym:  s.CurrentlyInGym,
		AverageVisitMin: s.AverageVisitMin,
	}
}

func periodSummaryToWire(s store.PeriodSummary) types.PeriodSummary {
	out := types.PeriodSummary{
		Days:            s.Days,
		TotalVisits:     s.TotalVisits,
		UniqueMembers:   s.UniqueMembers,
		AverageVisitMin: s.AverageVisitMin,
		DailyBreakdown:  make([]types.DayStats, 0, len(s.DailyBreakdown)),
		PeakHours:       make([]types.HourCount, 0, len(s.PeakHours)),
		RecentRecords:   dailyRecordsToWire(s.RecentRecords),
	}
	for _, d := range s.DailyBreakdown {
		out.DailyBreakdown = append(out.DailyBreakdown, types.DayStats{
			Date:            d.Day,
			Visits:          d.Visits,
			UniqueMembers:   d.UniqueMembers,
			AverageVisitMin: d.AverageVisitMin,
		})
	}
	for _, h := range s.PeakHours {
		out.PeakHours = append(out.PeakHours, types.HourCount{Hour: h.Hour, CheckIns: h.CheckIns})
	}
	return out
}
