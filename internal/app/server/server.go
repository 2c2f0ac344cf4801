// Package server assembles the expense approval service: storage, workflow
// engine, notification fan-out and the HTTP router.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/budget"
	"expenseflow/internal/domain/categories"
	"expenseflow/internal/domain/departments"
	"expenseflow/internal/domain/expense"
	"expenseflow/internal/domain/notifications"
	"expenseflow/internal/domain/reports"
	"expenseflow/internal/domain/users"
	"expenseflow/internal/platform/config"
	"expenseflow/internal/platform/db"
	"expenseflow/internal/platform/email"
	"expenseflow/internal/platform/jobs"
	"expenseflow/internal/platform/metrics"
	"expenseflow/internal/transport/http/api"
	approvalshandler "expenseflow/internal/transport/http/handlers/approvals"
	audithandler "expenseflow/internal/transport/http/handlers/audit"
	budgetshandler "expenseflow/internal/transport/http/handlers/budgets"
	categorieshandler "expenseflow/internal/transport/http/handlers/categories"
	departmentshandler "expenseflow/internal/transport/http/handlers/departments"
	expenseshandler "expenseflow/internal/transport/http/handlers/expenses"
	notificationshandler "expenseflow/internal/transport/http/handlers/notifications"
	usershandler "expenseflow/internal/transport/http/handlers/users"
	"expenseflow/internal/transport/http/middleware"
)

const notifyWorkers = 2

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Engine  *expense.Engine
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	logger *zap.Logger
	redis  *redis.Client
	cancel context.CancelFunc
}

// New connects to Postgres, applies migrations and the seed, and wires every
// service behind the router. Close releases what New acquired.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		adminID, err := db.Seed(ctx, pool, cfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		if adminID != "" {
			logger.Info("bootstrap admin ready", zap.String("userId", adminID))
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, DB: pool, logger: logger, cancel: cancel}

	app.Metrics = metrics.New()
	app.Jobs = jobs.New(cfg.JobQueueSize, notifyWorkers, logger.Named("jobs"))
	app.Jobs.Start(runCtx)

	userService := users.New(users.NewStore(pool), logger.Named("users"))
	departmentService := departments.New(departments.NewStore(pool), userService, logger.Named("departments"))
	categoryService := categories.New(categories.NewStore(pool), logger.Named("categories"))

	notificationService := notifications.New(notifications.NewStore(pool), logger.Named("notifications"))
	notificationService.Mailer = email.New(cfg)
	notificationService.Emails = userService
	notificationService.DefaultFrom = cfg.EmailFrom
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		if err := app.redis.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, notifications will retry per publish", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancelPing()
		notificationService.Publisher = notifications.NewRedisPublisher(app.redis, cfg.RedisChannel)
	}

	engineOpts := []expense.Option{
		expense.WithLogger(logger.Named("expense")),
		expense.WithThreshold(cfg.ApprovalThreshold),
		expense.WithEditPolicy(expense.EditPolicy{
			AllowPendingEdits:      cfg.AllowPendingEdits,
			PrivilegedPendingEdits: cfg.PrivilegedPendingEdits,
		}),
		expense.WithActorLookup(userService),
		expense.WithCategories(categoryService),
	}
	if cfg.MetricsEnabled {
		engineOpts = append(engineOpts, expense.WithRecorder(app.Metrics))
	}
	app.Engine = expense.NewEngine(
		expense.NewStore(pool),
		userService,
		notifications.NewAsync(app.Jobs, notificationService),
		engineOpts...,
	)

	auditService := audit.New(pool)
	budgetService := budget.New(budget.NewStore(pool), logger.Named("budget"))
	reportService := reports.NewService(app.Engine)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	var statusRecorder middleware.StatusRecorder
	if cfg.MetricsEnabled {
		statusRecorder = app.Metrics
	}
	router.Use(middleware.Logger(logger.Named("http"), statusRecorder))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, userService))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		expensesHandler := expenseshandler.NewHandler(app.Engine, reportService, auditService)
		expensesHandler.Idempotency = middleware.NewIdempotencyStore(pool)
		expensesHandler.RegisterRoutes(r)

		approvalshandler.NewHandler(app.Engine, auditService).RegisterRoutes(r)
		budgetshandler.NewHandler(budgetService, auditService).RegisterRoutes(r)
		departmentshandler.NewHandler(departmentService, auditService).RegisterRoutes(r)
		categorieshandler.NewHandler(categoryService, auditService).RegisterRoutes(r)
		notificationshandler.NewHandler(notificationService).RegisterRoutes(r)
		usershandler.NewHandler(userService, auditService).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)

		if cfg.MetricsEnabled {
			r.With(middleware.RequirePermission(auth.PermManageSystemSettings)).Get("/metrics", app.handleMetrics)
		}
	})

	app.Router = router
	return app, nil
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := a.Metrics.Snapshot()
	snapshot["jobsPending"] = a.Jobs.Pending()
	api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
}

// Close drains queued notifications and releases connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Jobs != nil {
		a.Jobs.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
