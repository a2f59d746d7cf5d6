package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/audit"
	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database"
	http_controllers "github.com/joelsmith11/locallibrary/internal/http"
	"github.com/joelsmith11/locallibrary/internal/loans"
	"github.com/joelsmith11/locallibrary/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Flush background work after the last request has finished
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// csrfSecret decodes the configured session secret or generates one for
// this process.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		secret, err := hex.DecodeString(configured)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(configured), nil
		}
		return secret, nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Local Library v%s", version)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Sessions live next to the catalog on SQLite and in memory otherwise
	var sessionDB *sql.DB
	if db.IsSQLite() {
		sessionDB, err = db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}
	} else {
		log.Printf("WARNING: sessions are kept in memory for the %s driver and are lost on restart", cfg.Database.Driver)
	}
	sessionManager, err := auth.NewSessionManager(sessionDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	authService := auth.NewService(db.Users, cfg.Auth)
	loanService := loans.NewService(db.Loans, nil)
	auditService := audit.NewService(db.Audit)

	secret, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}

	hasUsers, _ := authService.HasUsers()
	if !hasUsers {
		log.Printf("No users found. Visit /setup to create a superuser account.")
	}

	schedCtx, schedCancel := context.WithCancel(context.Background())
	retention := scheduler.NewAuditRetentionScheduler(auditService, cfg.Audit.RetentionDays, cfg.Audit.CleanupSchedule)
	if err := retention.Start(schedCtx); err != nil {
		log.Printf("WARNING: audit retention disabled: %v", err)
	}

	router, stopRouter := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Loans:          loanService,
		Audit:          auditService,
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		PageSize:       cfg.Catalog.PageSize,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		schedCancel()
		retention.Stop()
		stopRouter()
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
}
