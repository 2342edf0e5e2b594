package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gymstack/presence/internal/presence/service"
	"github.com/gymstack/presence/internal/presence/store"
	"github.com/gymstack/presence/internal/presence/types"
)

type Dependencies struct {
	Logger  *log.Logger
	Addr    string
	Tracker *service.SessionTracker
	Ledger  *service.AttendanceLedger
	Stats   *service.StatsService
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	tracker    *service.SessionTracker
	ledger     *service.AttendanceLedger
	stats      *service.StatsService
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:  d.Logger,
		mux:     mux,
		tracker: d.Tracker,
		ledger:  d.Ledger,
		stats:   d.Stats,
	}

	mux.HandleFunc("POST /v1/checkin", s.handleCheckIn)
	mux.HandleFunc("POST /v1/checkout", s.handleCheckOut)
	mux.HandleFunc("GET /v1/currently_in", s.handleCurrentlyIn)
	mux.HandleFunc("GET /v1/today", s.handleToday)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/members/{id}/history", s.handleHistory)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req types.CheckInRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	sess, err := s.tracker.Open(r.Context(), service.OpenRequest{
		MemberID: req.MemberID,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		s.writeTrackerError(w, "checkin", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToWire(sess))
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req types.CheckOutRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	sess, err := s.tracker.Close(r.Context(), service.CloseRequest{
		MemberID: req.MemberID,
		Notes:    req.Notes,
	})
	if err != nil {
		s.writeTrackerError(w, "checkout", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToWire(sess))
}

func (s *Server) handleCurrentlyIn(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.tracker.CurrentlyCheckedIn(r.Context())
	if err != nil {
		s.writeTrackerError(w, "currently_in", err)
		return
	}

	writeJSON(w, http.StatusOK, types.CurrentlyInResponse{
		Count:    len(sessions),
		Sessions: sessionsToWire(sessions),
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.Today(r.Context())
	if err != nil {
		s.writeTrackerError(w, "today", err)
		return
	}
	writeJSON(w, http.StatusOK, todaySnapshotToWire(snap))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 0) // 0 = service default

	sum, err := s.stats.Period(r.Context(), days)
	if err != nil {
		s.writeTrackerError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, periodSummaryToWire(sum))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("id")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 0) // 0 = service default

	records, total, err := s.ledger.History(r.Context(), memberID, page, pageSize)
	if err != nil {
		s.writeTrackerError(w, "history", err)
		return
	}

	if pageSize < 1 {
		pageSize = 20
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{
		MemberID: memberID,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Records:  dailyRecordsToWire(records),
	})
}

// writeTrackerError maps service errors onto the HTTP error taxonomy.
// Conflicts carry the member's open session in the body; transient
// store failures come back 503 so callers know a retry is safe.
func (s *Server) writeTrackerError(w http.ResponseWriter, op string, err error) {
	var conflict *service.AlreadyCheckedInError

	switch {
	case errors.Is(err, service.ErrInvalidMemberID):
		writeError(w, http.StatusBadRequest, "invalid_member_id", err.Error())
	case errors.Is(err, service.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "member_not_found", err.Error())
	case errors.As(err, &conflict):
		cur := sessionToWire(conflict.Current)
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:           "already_checked_in",
			Message:        conflict.Error(),
			CurrentSession: &cur,
		})
	case errors.Is(err, service.ErrNoActiveSession):
		writeError(w, http.StatusConflict, "no_active_session", err.Error())
	case errors.Is(err, store.ErrUnavailable):
		s.logger.Printf("%s store unavailable: %v", op, err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage temporarily unavailable, retry later")
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
