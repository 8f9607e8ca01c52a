package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/auth"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Engine   *service.Engine
	Verifier *auth.Verifier

	// Feed serves the live notification websocket. Nil disables the route.
	Feed http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	engine     *service.Engine
	verifier   *auth.Verifier
	validate   *validator.Validate
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		mux:      mux,
		engine:   d.Engine,
		verifier: d.Verifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("POST /v1/attendance/clock-in", s.authed(s.handleClockIn))
	mux.Handle("POST /v1/attendance/clock-out", s.authed(s.handleClockOut))
	mux.Handle("POST /v1/attendance/lunch/start", s.authed(s.handleLunchStart))
	mux.Handle("POST /v1/attendance/lunch/end", s.authed(s.handleLunchEnd))
	mux.Handle("POST /v1/attendance/heartbeat", s.authed(s.handleHeartbeat))
	mux.Handle("GET /v1/attendance/today", s.authed(s.handleToday))

	mux.Handle("POST /v1/admin/attendance/{id}/mode", s.authed(s.handleConvertMode))
	mux.Handle("POST /v1/admin/attendance/bulk-mark", s.authed(s.handleBulkMark))
	mux.Handle("GET /v1/admin/attendance", s.authed(s.handleListDay))

	if d.Feed != nil {
		mux.Handle("GET /v1/notifications/ws", s.authed(d.Feed.ServeHTTP))
	}

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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"server_time": s.engine.Now().Format(time.RFC3339),
	})
}
