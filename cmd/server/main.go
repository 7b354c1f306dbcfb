// Command server runs the helpdesk HTTP API.
//
// Startup order:
//  1. Load .env (optional) and the typed config.
//  2. Configure logging and Gin mode.
//  3. Open SQLite, migrate, seed the bootstrap admin if none exists.
//  4. Start the websocket hub and, when enabled, the OTel exporter.
//  5. Serve until SIGINT/SIGTERM, then drain gracefully.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-backend/internal/auth"
	"github.com/tbourn/go-helpdesk-backend/internal/config"
	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	httpapi "github.com/tbourn/go-helpdesk-backend/internal/http"
	"github.com/tbourn/go-helpdesk-backend/internal/observability"
	"github.com/tbourn/go-helpdesk-backend/internal/realtime"
	"github.com/tbourn/go-helpdesk-backend/internal/repo"
	"github.com/tbourn/go-helpdesk-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is a local-dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}
	if err := seedAdmin(ctx, db, cfg); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup otel")
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	if err := shutdownOTel(drainCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// seedAdmin inserts the bootstrap admin when the users table holds no admin.
// With no SEED_ADMIN_PASSWORD configured a temporary password is generated and
// logged exactly once; the account carries force_password_change.
func seedAdmin(ctx context.Context, db *gorm.DB, cfg config.Config) error {
	admins, err := repo.CountAdmins(ctx, db)
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}

	password := cfg.Seed.AdminPassword
	generated := false
	if password == "" {
		password, err = auth.GenerateTempPassword()
		if err != nil {
			return err
		}
		generated = true
	}

	hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	u := &domain.User{
		Name:                cfg.Seed.AdminName,
		Email:               cfg.Seed.AdminEmail,
		PasswordHash:        hash,
		Role:                domain.RoleAdmin,
		ForcePasswordChange: generated,
	}
	if err := repo.CreateUser(ctx, db, u); err != nil {
		return err
	}

	ev := log.Info().Uint("id", u.ID).Str("email", u.Email)
	if generated {
		// Printed once at first boot; rotate it via /auth/change-password.
		ev = ev.Str("temp_password", password)
	}
	ev.Msg("bootstrap admin created")
	return nil
}
