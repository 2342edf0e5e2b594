package types

type CheckInRequest struct {
	MemberID string `json:"member_id"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type CheckOutRequest struct {
	MemberID string  `json:"member_id"`
	Notes    *string `json:"notes,omitempty"` // null/absent keeps the check-in notes
}

type Session struct {
	ID           string `json:"id"`
	MemberID     string `json:"member_id"`
	CheckInTime  string `json:"check_in_time"`
	CheckOutTime string `json:"check_out_time,omitempty"`
	DurationMin  *int64 `json:"duration_min,omitempty"`
	Location     string `json:"location"`
	Notes        string `json:"notes,omitempty"`
	FlagReason   string `json:"flag_reason,omitempty"`
}

type CurrentlyInResponse struct {
	Count    int       `json:"count"`
	Sessions []Session `json:"sessions"`
}
