package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/stockroom/stockroom/internal/app"
	"github.com/stockroom/stockroom/internal/auth"
	"github.com/stockroom/stockroom/internal/materials"
	"github.com/stockroom/stockroom/internal/observability"
	"github.com/stockroom/stockroom/internal/platform/cache"
	"github.com/stockroom/stockroom/internal/platform/db"
	"github.com/stockroom/stockroom/internal/platform/migrate"
	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
	"github.com/stockroom/stockroom/internal/users"
	"github.com/stockroom/stockroom/internal/view"
)

const usage = `usage: stockroom <command> [flags]

commands:
  serve          run the HTTP server (default)
  migrate        apply database migrations
  create-admin   create an admin account (-username, -password, -name)
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate.Up(ctx, cfg.PGDSN)
		if err == nil {
			logger.Info("migrations applied")
		}
	case "create-admin":
		err = createAdmin(ctx, cfg, logger, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func openPool(ctx context.Context, cfg *app.Config) (*pgxpool.Pool, error) {
	return db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := migrate.Up(ctx, cfg.PGDSN); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := observability.NewMetrics()
	registerPoolStats(metrics.Registerer(), pool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool)).WithSessionStore(sessionManager)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, metrics)
	materialsHandler := materials.NewHandler(logger, materials.NewService(materials.NewRepository(pool), loc), templates, csrfManager, rbacMiddleware)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(pool)).WithSessionRevoker(authService), templates, csrfManager, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		MaterialsHandler: materialsHandler,
		UsersHandler:     usersHandler,
		Metrics:          metrics,
		Readiness: map[string]app.Pinger{
			"postgres": pool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// registerPoolStats exposes connection pool saturation, the signal behind
// 503 answers.
func registerPoolStats(reg prometheus.Registerer, pool *pgxpool.Pool) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "stockroom_pg_pool_acquired_conns",
			Help: "Connections currently checked out of the pool.",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "stockroom_pg_pool_max_conns",
			Help: "Maximum size of the pool.",
		}, func() float64 { return float64(pool.Stat().MaxConns()) }),
	)
}

func createAdmin(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	username := fs.String("username", "admin", "login name")
	password := fs.String("password", "", "initial password (required)")
	fullName := fs.String("name", "Administrator", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return errors.New("-password is required")
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	// The bootstrap account is created on behalf of a synthetic admin so the
	// usual rank rules still apply.
	bootstrap := rbac.Subject{ID: 0, Role: rbac.RoleAdmin}
	u, err := users.NewService(users.NewRepository(pool)).Create(ctx, bootstrap, users.CreateRequest{
		Username: *username,
		Password: *password,
		FullName: *fullName,
		Role:     rbac.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info("admin created", slog.Int64("id", u.ID), slog.String("username", u.Username))
	return nil
}
