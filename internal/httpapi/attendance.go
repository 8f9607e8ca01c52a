package httpapi

import (
	"net/http"

	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// ── Self-service ─────────────────────────────────────────────────────────────

func (s *Server) handleClockIn(w http.ResponseWriter, r *http.Request) {
	var req types.ClockInRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}

	rec, err := s.engine.ClockIn(r.Context(), actor(r), mode)
	s.respondRecord(w, r, "clock-in", rec, err)
}

func (s *Server) handleClockOut(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.ClockOut(r.Context(), actor(r))
	s.respondRecord(w, r, "clock-out", rec, err)
}

func (s *Server) handleLunchStart(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.StartLunch(r.Context(), actor(r))
	s.respondRecord(w, r, "lunch start", rec, err)
}

func (s *Server) handleLunchEnd(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.EndLunch(r.Context(), actor(r))
	s.respondRecord(w, r, "lunch end", rec, err)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.WFHHeartbeat(r.Context(), actor(r))
	s.respondRecord(w, r, "heartbeat", rec, err)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Today(r.Context(), actor(r))
	if err != nil {
		s.writeServiceError(w, "today", err)
		return
	}
	loc := s.engine.Policy().Location
	s.respond(w, r, http.StatusOK, types.TodayResponse{
		Record:   service.Snapshot(rec, loc),
		Liveness: service.LivenessView(s.engine.Liveness(rec, s.engine.Now()), loc),
	})
}

// ── Admin ────────────────────────────────────────────────────────────────────

func (s *Server) handleConvertMode(w http.ResponseWriter, r *http.Request) {
	var req types.ConvertModeRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}

	rec, err := s.engine.AdminConvertMode(r.Context(), r.PathValue("id"), mode, actor(r))
	s.respondRecord(w, r, "convert mode", rec, err)
}

func (s *Server) handleBulkMark(w http.ResponseWriter, r *http.Request) {
	var req types.BulkMarkRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	pol := s.engine.Policy()
	day, err := pol.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	res, err := s.engine.AdminBulkMarkDay(r.Context(), day, mode, actor(r))
	if err != nil {
		s.writeServiceError(w, "bulk mark", err)
		return
	}
	s.respond(w, r, http.StatusOK, service.BulkView(res, pol.Location))
}

func (s *Server) handleListDay(w http.ResponseWriter, r *http.Request) {
	pol := s.engine.Policy()
	day := pol.Day(s.engine.Now())
	if q := r.URL.Query().Get("date"); q != "" {
		var err error
		if day, err = pol.ParseDay(q); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
	}

	recs, err := s.engine.ListDay(r.Context(), actor(r), day)
	if err != nil {
		s.writeServiceError(w, "list day", err)
		return
	}
	out := make([]types.RecordSnapshot, 0, len(recs))
	for _, rec := range recs {
		out = append(out, service.Snapshot(rec, pol.Location))
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"date":    day.Format("2006-01-02"),
		"records": out,
	})
}

func (s *Server) respondRecord(w http.ResponseWriter, r *http.Request, op string, rec store.AttendanceRecord, err error) {
	if err != nil {
		s.writeServiceError(w, op, err)
		return
	}
	s.respond(w, r, http.StatusOK, service.Snapshot(rec, s.engine.Policy().Location))
}
