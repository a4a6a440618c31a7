package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/backup"
	"github.com/somagec/quarrystock/internal/config"
	"github.com/somagec/quarrystock/internal/db"
	"github.com/somagec/quarrystock/internal/mailer"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/server"
	"github.com/somagec/quarrystock/internal/services"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	backupFlag      = flag.Bool("backup", false, "Run the scheduled backup check and exit (cron entry point)")
)

func main() {
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	conn, err := db.ConnectAndMigrate(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if *migrateOnlyFlag {
		log.Info().Msg("migrations completed")
		return
	}

	// Cron entry point: check the persisted schedule and exit. MANUAL
	// or not-yet-due invocations do nothing.
	if *backupFlag {
		settingsSvc := services.NewSettingsService(conn)
		sender := mailer.New(cfg.SMTPHost, cfg.SMTPPort)
		runner := backup.NewRunner(conn, settingsSvc, sender, cfg.MediaRoot)
		ran, err := runner.CheckAndRun(time.Now(), false)
		if err != nil {
			log.Fatal().Err(err).Msg("backup failed")
		}
		log.Info().Bool("ran", ran).Msg("backup check completed")
		return
	}

	if err := ensureAdmin(conn); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	handler := server.New(conn, server.Options{
		MediaRoot:         cfg.MediaRoot,
		LowStockThreshold: cfg.LowStockThreshold,
		SMTPHost:          cfg.SMTPHost,
		SMTPPort:          cfg.SMTPPort,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

// ensureAdmin creates the first user from ADMIN_EMAIL/ADMIN_PASSWORD
// when the users table is empty, so a fresh install can log in.
func ensureAdmin(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Warn().Msg("no users exist and ADMIN_EMAIL/ADMIN_PASSWORD are unset; login will be impossible")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{Email: email, Password: string(hash), Name: "Administrator", Admin: true}
	if err := conn.Create(&user).Error; err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("admin user created")
	return nil
}
