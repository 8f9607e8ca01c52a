package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
	"github.com/opsdesk/attendance/internal/auth"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Engine   *service.Engine
	Verifier *auth.Verifier
}

type Server struct {
	grpcServer *grpc.Server
	logger     *log.Logger
	addr       string
	engine     *service.Engine
	verifier   *auth.Verifier
}

var _ AttendanceServer = (*Server)(nil)

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:   d.Logger,
		addr:     d.Addr,
		engine:   d.Engine,
		verifier: d.Verifier,
	}
	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor),
	)
	s.grpcServer.RegisterService(&ServiceDesc, s)
	return s
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop drains in-flight calls, giving up after ctx ends.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

// ── Interceptors ─────────────────────────────────────────────────────────────

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now().UTC()
	resp, err := handler(ctx, req)
	s.logger.Printf("grpc %s code=%s dur=%s", info.FullMethod, status.Code(err), time.Since(start))
	return resp, err
}

func (s *Server) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var header string
	if v := md.Get("authorization"); len(v) > 0 {
		header = v[0]
	}
	tok, err := auth.BearerToken(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	claims, err := s.verifier.Verify(tok)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return handler(auth.WithActor(ctx, claims.Actor()), req)
}

// toStatus maps a service error kind to a gRPC status.
func (s *Server) toStatus(op string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrInactiveUser):
		code = codes.PermissionDenied
	case errors.Is(err, service.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, service.ErrInvalidState):
		code = codes.FailedPrecondition
	case errors.Is(err, service.ErrValidation):
		code = codes.InvalidArgument
	default:
		s.logger.Printf("grpc %s error: %v", op, err)
		return status.Error(codes.Internal, "unexpected server error")
	}
	return status.Error(code, err.Error())
}

// ── Methods ──────────────────────────────────────────────────────────────────

func actor(ctx context.Context) string {
	id, _ := auth.ActorFromContext(ctx)
	return id
}

// stringField reads an optional string field from a request struct.
func stringField(in *structpb.Struct, name string) string {
	return strings.TrimSpace(in.GetFields()[name].GetStringValue())
}

func (s *Server) record(op string, rec store.AttendanceRecord, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(op, err)
	}
	return s.encode(service.Snapshot(rec, s.engine.Policy().Location))
}

func (s *Server) encode(payload any) (*structpb.Struct, error) {
	out, err := types.ToStruct(payload)
	if err != nil {
		s.logger.Printf("grpc encode: %v", err)
		return nil, status.Error(codes.Internal, "unexpected server error")
	}
	return out, nil
}

func parseMode(raw string) (types.Mode, error) {
	mode, err := types.ParseMode(raw)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return mode, nil
}

func (s *Server) ClockIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	mode, err := parseMode(stringField(in, "mode"))
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.ClockIn(ctx, actor(ctx), mode)
	return s.record("ClockIn", rec, err)
}

func (s *Server) ClockOut(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.engine.ClockOut(ctx, actor(ctx))
	return s.record("ClockOut", rec, err)
}

func (s *Server) StartLunch(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.engine.StartLunch(ctx, actor(ctx))
	return s.record("StartLunch", rec, err)
}

func (s *Server) EndLunch(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.engine.EndLunch(ctx, actor(ctx))
	return s.record("EndLunch", rec, err)
}

func (s *Server) Heartbeat(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.engine.WFHHeartbeat(ctx, actor(ctx))
	return s.record("Heartbeat", rec, err)
}

func (s *Server) Today(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.engine.Today(ctx, actor(ctx))
	if err != nil {
		return nil, s.toStatus("Today", err)
	}
	loc := s.engine.Policy().Location
	return s.encode(types.TodayResponse{
		Record:   service.Snapshot(rec, loc),
		Liveness: service.LivenessView(s.engine.Liveness(rec, s.engine.Now()), loc),
	})
}

func (s *Server) ConvertMode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, "id")
	raw := stringField(in, "mode")
	if id == "" || raw == "" {
		return nil, status.Error(codes.InvalidArgument, "id and mode are required")
	}
	mode, err := parseMode(raw)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.AdminConvertMode(ctx, id, mode, actor(ctx))
	return s.record("ConvertMode", rec, err)
}

func (s *Server) BulkMark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	mode, err := parseMode(stringField(in, "mode"))
	if err != nil {
		return nil, err
	}
	pol := s.engine.Policy()
	day, err := pol.ParseDay(stringField(in, "date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}
	res, err := s.engine.AdminBulkMarkDay(ctx, day, mode, actor(ctx))
	if err != nil {
		return nil, s.toStatus("BulkMark", err)
	}
	return s.encode(service.BulkView(res, pol.Location))
}

func (s *Server) ListDay(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	pol := s.engine.Policy()
	day := pol.Day(s.engine.Now())
	if raw := stringField(in, "date"); raw != "" {
		var err error
		if day, err = pol.ParseDay(raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
		}
	}
	recs, err := s.engine.ListDay(ctx, actor(ctx), day)
	if err != nil {
		return nil, s.toStatus("ListDay", err)
	}
	out := make([]types.RecordSnapshot, 0, len(recs))
	for _, rec := range recs {
		out = append(out, service.Snapshot(rec, pol.Location))
	}
	return s.encode(map[string]any{
		"date":    day.Format(time.DateOnly),
		"records": out,
	})
}
