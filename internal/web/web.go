package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"coursecal/internal/config"
	"coursecal/internal/holiday"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/recurrence"
)

const maxRequestBody = 1 << 20

// Server exposes the holiday calendar and the schedule pipeline over HTTP.
// Every request reads the calendar snapshot held by the store, so a
// refresh never blocks or tears a request.
type Server struct {
	cfg      *config.Config
	holidays *holiday.Store
	mux      *http.ServeMux
}

func NewServer(cfg *config.Config, holidays *holiday.Store) *Server {
	s := &Server{
		cfg:      cfg,
		holidays: holidays,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	// An empty password is treated as misconfiguration, not as "no password".
	return s.cfg != nil && s.cfg.BasicAuth.Enabled() && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="coursecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, holidays *holiday.Store) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, holidays).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/holidays", s.handleHolidays)
	s.mux.HandleFunc("GET /api/holidays/lookup", s.handleLookup)
	s.mux.HandleFunc("POST /api/schedule", s.handleSchedule)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// holidaysResponse is the JSON response shape for /api/holidays.
type holidaysResponse struct {
	RestDays   []model.Date   `json:"rest_days"`
	MakeupDays []model.Date   `json:"makeup_days"`
	Pairs      []holiday.Pair `json:"pairs"`
	LoadedAt   *time.Time     `json:"loaded_at,omitempty"`
}

func (s *Server) handleHolidays(w http.ResponseWriter, _ *http.Request) {
	cal := s.holidays.Current()
	resp := holidaysResponse{
		RestDays:   nonNil(cal.RestDays()),
		MakeupDays: nonNil(cal.MakeupDays()),
		Pairs:      nonNil(cal.Pairs()),
	}
	if at := s.holidays.LoadedAt(); !at.IsZero() {
		resp.LoadedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookupResponse describes one date against the calendar.
type lookupResponse struct {
	Date      model.Date  `json:"date"`
	Rest      bool        `json:"rest"`
	Makeup    bool        `json:"makeup"`
	MakeupFor *model.Date `json:"makeup_for,omitempty"`
	RestFor   *model.Date `json:"rest_for,omitempty"`
}

// handleLookup answers GET /api/holidays/lookup?date=YYYY-MM-DD.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	date, err := model.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	cal := s.holidays.Current()
	resp := lookupResponse{
		Date:   date,
		Rest:   cal.IsRestDay(date),
		Makeup: cal.IsMakeupDay(date),
	}
	if m, ok := cal.MakeupFor(date).Get(); ok {
		resp.MakeupFor = &m
	}
	if rd, ok := cal.RestForMakeup(date).Get(); ok {
		resp.RestFor = &rd
	}
	writeJSON(w, http.StatusOK, resp)
}

// scheduleRequest is the body of POST /api/schedule.
type scheduleRequest struct {
	SemesterStart model.Date     `json:"semester_start"`
	Courses       []model.Course `json:"courses"`
}

// scheduleResponse is the ?format=json body of POST /api/schedule.
// Occurrences[i] lists every start time of Courses[i] after exceptions.
type scheduleResponse struct {
	model.Schedule
	Occurrences [][]time.Time `json:"occurrences"`
}

func newScheduleResponse(sched model.Schedule) (scheduleResponse, error) {
	resp := scheduleResponse{Schedule: sched, Occurrences: make([][]time.Time, 0, len(sched.Courses))}
	for _, c := range sched.Courses {
		starts, err := recurrence.Expand(c)
		if err != nil {
			return scheduleResponse{}, err
		}
		resp.Occurrences = append(resp.Occurrences, nonNil(starts))
	}
	return resp, nil
}

// handleSchedule reconciles the posted courses against the current holiday
// calendar and returns the result as text/calendar, or as JSON with
// ?format=json.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SemesterStart.IsZero() {
		writeError(w, http.StatusBadRequest, "semester_start is required")
		return
	}

	sem := model.NewSemester(req.SemesterStart, s.cfg.Location())
	sched, err := recurrence.BuildSchedule(s.holidays.Current(), sem, req.Courses)
	if err != nil {
		// Input the pipeline rejects (bad weekday, weeks outside 1..MaxWeek,
		// an empty week list) is the caller's fault.
		appLog.Error("api schedule: build failed", err, "course_count", len(req.Courses))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	appLog.Info("api schedule request",
		"semester_start", req.SemesterStart,
		"input", len(req.Courses),
		"output", len(sched.Courses),
	)

	if r.URL.Query().Get("format") == "json" {
		resp, err := newScheduleResponse(sched)
		if err != nil {
			appLog.Error("api schedule: expand failed", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	body := ics.Export(sched, ics.ExportOptions{
		CalendarName:       s.cfg.Export.CalendarName,
		ReminderMinutes:    s.cfg.Export.ReminderMinutes,
		IncludeTeacher:     s.cfg.Export.IncludeTeacher,
		IncludeDescription: s.cfg.Export.IncludeDescription,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="courses.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
