package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/notify"
	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/store/memory"
	"github.com/opsdesk/attendance/internal/attendance/store/postgres"
	sqlitestore "github.com/opsdesk/attendance/internal/attendance/store/sqlite"
	"github.com/opsdesk/attendance/internal/auth"
	"github.com/opsdesk/attendance/internal/config"
	"github.com/opsdesk/attendance/internal/db"
	"github.com/opsdesk/attendance/internal/grpcapi"
	"github.com/opsdesk/attendance/internal/httpapi"
)

type stores struct {
	records  store.RecordStore
	users    store.UserDirectory
	activity store.ActivityLog
	close    func()
}

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "attendance-server ", log.LstdFlags|log.LUTC)

	pol, err := cfg.TimePolicy()
	if err != nil {
		logger.Fatalf("time policy: %v", err)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.Env == "prod" {
			logger.Fatalf("ATTENDANCE_JWT_SECRET is required in prod")
		}
		secret = "dev-secret"
		logger.Printf("WARNING: ATTENDANCE_JWT_SECRET unset, using an insecure dev secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, pol.Location, logger)
	if err != nil {
		logger.Fatalf("open %s store: %v", cfg.StoreDriver, err)
	}
	defer st.close()

	hub := notify.NewHub(logger)
	engine := service.NewEngine(service.Dependencies{
		Policy:     pol,
		Records:    st.records,
		Users:      st.users,
		Activity:   st.activity,
		Notifier:   notify.Multi{notify.LogEmitter{Logger: logger}, hub},
		Authorizer: rolePolicy(cfg),
		Logger:     logger,
		Recipients: cfg.Recipients,
	})

	sweeper := service.NewInactivitySweeper(engine, service.SweeperConfig{
		IntervalMinutes: cfg.SweepIntervalMinutes,
	}, logger)
	sweeper.Start(ctx)

	verifier := auth.NewVerifier(secret)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Engine:   engine,
		Verifier: verifier,
		Feed:     hub,
	})

	go func() {
		logger.Printf("http listening on %s (store=%s, tz=%s)", cfg.HTTPAddr, cfg.StoreDriver, pol.Location)
		if err := srv.Start(); err != nil {
			logger.Printf("http server error: %v", err)
			stop()
		}
	}()

	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger:   logger,
			Addr:     cfg.GRPCAddr,
			Engine:   engine,
			Verifier: verifier,
		})
		go func() {
			logger.Printf("grpc listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Start(); err != nil {
				logger.Printf("grpc server error: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}

	// Let in-flight notifications finish before the stores close.
	engine.Wait()
}

func rolePolicy(cfg config.Config) service.RolePolicy {
	p := service.NewRolePolicy(cfg.ClockRoles, cfg.AdminRoles)
	p.AllowAll = cfg.AllowAll
	return p
}

func seedUsers(cfg config.Config) []store.User {
	out := make([]store.User, 0, len(cfg.SeedUsers))
	for _, u := range cfg.SeedUsers {
		out = append(out, store.User{ID: u.ID, Name: u.Name, Role: u.Role, Active: true})
	}
	return out
}

func openStores(ctx context.Context, cfg config.Config, loc *time.Location, logger *log.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Printf("using in-memory stores; data is lost on exit")
		return stores{
			records:  memory.NewRecordStore(),
			users:    memory.NewUserDirectory(seedUsers(cfg)...),
			activity: memory.NewActivityLog(),
			close:    func() {},
		}, nil

	case "postgres":
		pool, err := postgres.Open(ctx, postgres.PoolConfig{URL: cfg.PostgresURL})
		if err != nil {
			return stores{}, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		users := postgres.NewUserDirectory(pool)
		if err := seedPostgres(ctx, users, cfg); err != nil {
			pool.Close()
			return stores{}, err
		}
		return stores{
			records:  postgres.NewRecordStore(pool, loc),
			users:    users,
			activity: postgres.NewActivityLog(pool),
			close:    pool.Close,
		}, nil

	default:
		conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return stores{}, err
		}
		if err := seedSQLite(ctx, conn, cfg); err != nil {
			_ = conn.Close()
			return stores{}, err
		}
		writer := db.NewWorker(conn)
		return stores{
			records:  sqlitestore.NewRecordStore(conn, writer, loc),
			users:    sqlitestore.NewUserDirectory(conn, writer),
			activity: sqlitestore.NewActivityLog(conn, writer),
			close: func() {
				writer.Close()
				_ = conn.Close()
			},
		}, nil
	}
}

func seedSQLite(ctx context.Context, conn *sql.DB, cfg config.Config) error {
	opt := db.SeedOptions{}
	for _, u := range cfg.SeedUsers {
		opt.Users = append(opt.Users, db.SeedUser{ID: u.ID, Name: u.Name, Role: u.Role, Active: true})
	}
	return db.Seed(ctx, conn, opt)
}

func seedPostgres(ctx context.Context, users *postgres.UserDirectory, cfg config.Config) error {
	for _, u := range seedUsers(cfg) {
		if err := users.PutUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
