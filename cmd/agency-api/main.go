package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/handlers"
	"github.com/dimitrije/agency-api/internal/logging"
	appmw "github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/internal/sse"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Service: "agency-api",
		Env:     cfg.Env,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	hub := sse.NewHub()
	go hub.Run(ctx)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	tenantService := services.NewTenantService(db)
	emailService := services.NewEmailService(cfg.SMTP)
	notificationService := services.NewNotificationService(db, hub)
	invitationService := services.NewInvitationService(db, emailService, notificationService, services.InvitationConfig{
		TTL:         cfg.InvitationTTL,
		FrontendURL: cfg.FrontendURL,
	})
	projectService := services.NewProjectService(db, notificationService)
	taskService := services.NewTaskService(db, notificationService)
	timeEntryService := services.NewTimeEntryService(db)
	timesheetService := services.NewTimesheetService(db, notificationService)
	invoiceService := services.NewInvoiceService(db)
	paymentService := services.NewPaymentService(db, notificationService)
	payrollService := services.NewPayrollService(db)

	if !emailService.IsConfigured() {
		logger.Warn("smtp not configured, invitation emails will be skipped")
	}

	authHandler := handlers.NewAuthHandler(cfg, userService, tokenService, jwtService)
	userHandler := handlers.NewUserHandler(userService)
	tenantHandler := handlers.NewTenantHandler(tenantService)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService, projectService)
	timeEntryHandler := handlers.NewTimeEntryHandler(timeEntryService)
	timesheetHandler := handlers.NewTimesheetHandler(timesheetService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, paymentService)
	payrollHandler := handlers.NewPayrollHandler(payrollService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	sseHandler := handlers.NewSSEHandler(hub)

	go authHandler.RunCleanup(ctx)
	go cleanupTokens(ctx, tokenService)

	var electricHandler *handlers.ElectricHandler
	if cfg.Electric.IsConfigured() {
		electricHandler, err = handlers.NewElectricHandler(cfg.Electric)
		if err != nil {
			return fmt.Errorf("electric proxy: %w", err)
		}
	}

	app := newRouter(cfg, handlers.Routes{
		Health:       handlers.Health(db.Pool),
		Auth:         authHandler,
		User:         userHandler,
		Tenant:       tenantHandler,
		Invitation:   invitationHandler,
		Project:      projectHandler,
		Task:         taskHandler,
		TimeEntry:    timeEntryHandler,
		Timesheet:    timesheetHandler,
		Invoice:      invoiceHandler,
		Payroll:      payrollHandler,
		Notification: notificationHandler,
		SSE:          sseHandler,
		Electric:     electricHandler,
	}, handlers.Guards{
		Authenticate: appmw.Auth(jwtService),
		SelectTenant: appmw.Tenant(tenantService),
		Throttle:     appmw.RateLimit(cfg.PublicRateLimit),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           appmw.RequestLogger(logger, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter builds the drift engine with the global middleware and the full
// route table.
func newRouter(cfg *config.Config, routes handlers.Routes, guards handlers.Guards) *drift.Engine {
	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization",
			appmw.TenantIDHeader, appmw.TenantSlugHeader, "X-Request-ID"},
		MaxAge: 86400,
	}))
	app.Use(middleware.BodyParser())

	handlers.Register(app.Group("/api/v1"), routes, guards)
	return app
}

func cleanupTokens(ctx context.Context, tokens *services.TokenService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.CleanupExpired(ctx)
			if err != nil {
				logging.FromContext(ctx).Error("cleanup refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				logging.FromContext(ctx).Info("expired refresh tokens removed", "count", n)
			}
		}
	}
}
