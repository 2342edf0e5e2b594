package types

type TodaySnapshot struct {
	TotalCheckIns   int     `json:"total_check_ins"`
	CurrentlyInGym  int     `json:"currently_in_gym"`
	AverageVisitMin float64 `json:"average_visit_min"`
}

type DailyRecord struct {
	MemberID    string `json:"member_id"`
	Date        string `json:"date"`
	TimeIn      string `json:"time_in"`
	TimeOut     string `json:"time_out,omitempty"`
	DurationMin *int64 `json:"duration_min,omitempty"`
}

type DayStats struct {
	Date            string  `json:"date"`
	Visits          int     `json:"visits"`
	UniqueMembers   int     `json:"unique_members"`
	AverageVisitMin float64 `json:"average_visit_min"`
}

type HourCount struct {
	Hour     int `json:"hour"` // 0-23
	CheckIns int `json:"check_ins"`
}

type PeriodSummary struct {
	Days            int           `json:"days"`
	TotalVisits     int           `json:"total_visits"`
	UniqueMembers   int           `json:"unique_members"`
	AverageVisitMin float64       `json:"average_visit_min"`
	DailyBreakdown  []DayStats    `json:"daily_breakdown"`
	PeakHours       []HourCount   `json:"peak_hours"`
	RecentRecords   []DailyRecord `json:"recent_records,omitempty"`
}

type HistoryResponse struct {
	MemberID string        `json:"member_id"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
	Records  []DailyRecord `json:"records"`
}
