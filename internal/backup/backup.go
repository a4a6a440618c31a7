// Package backup implements the scheduled database + media backup:
// snapshot the sqlite file, zip the media directory, email both to the
// configured recipient, and record the outcome. Temporary files are
// removed on every exit path.
package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/mailer"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
)

// Sender is satisfied by mailer.Mailer; tests substitute a recorder.
type Sender interface {
	Send(settings *models.EmailSettings, to, subject, body string, attachments ...mailer.Attachment) error
}

type Runner struct {
	DB        *gorm.DB
	Settings  *services.SettingsService
	Mailer    Sender
	MediaRoot string
}

func NewRunner(db *gorm.DB, settings *services.SettingsService, sender Sender, mediaRoot string) *Runner {
	return &Runner{DB: db, Settings: settings, Mailer: sender, MediaRoot: mediaRoot}
}

// ShouldRun decides whether a scheduled invocation acts, given the
// schedule and the time of the last run (nil = never ran).
// MANUAL never runs on schedule; DAILY runs after 23h; WEEKLY after 6
// days.
func ShouldRun(schedule string, last *time.Time, now time.Time) bool {
	switch schedule {
	case models.ScheduleDaily:
		return last == nil || now.Sub(*last) > 23*time.Hour
	case models.ScheduleWeekly:
		return last == nil || now.Sub(*last) > 6*24*time.Hour
	default:
		return false
	}
}

// CheckAndRun is the entry point the external scheduler (or the admin
// force action) calls. It consults the persisted schedule state, runs
// the backup when due, and records status and last-run time. A gated
// invocation changes nothing.
func (r *Runner) CheckAndRun(now time.Time, force bool) (bool, error) {
	cfg, err := r.Settings.BackupSettings()
	if err != nil {
		return false, err
	}
	if !force && !ShouldRun(cfg.Schedule, cfg.LastBackupTime, now) {
		log.Debug().Str("schedule", cfg.Schedule).Msg("backup not due")
		return false, nil
	}

	runErr := r.run(cfg, now)
	status := "success"
	if runErr != nil {
		status = "failed: " + runErr.Error()
		log.Error().Err(runErr).Msg("backup failed")
	} else {
		log.Info().Str("recipient", cfg.RecipientEmail).Msg("backup sent")
	}
	updates := map[string]any{"last_backup_status": status, "last_backup_time": now}
	if err := r.DB.Model(&models.BackupSettings{}).Where("id = ?", cfg.ID).Updates(updates).Error; err != nil {
		return true, err
	}
	return true, runErr
}

func (r *Runner) run(cfg *models.BackupSettings, now time.Time) (err error) {
	if cfg.RecipientEmail == "" {
		return &services.ConfigurationError{Reason: "backup recipient email is not configured"}
	}
	emailCfg, err := r.Settings.EmailSettings()
	if err != nil {
		return err
	}
	if emailCfg == nil || emailCfg.SenderEmail == "" || emailCfg.SenderPassword == "" {
		return &services.ConfigurationError{Reason: "sender email credentials are not configured"}
	}

	tmpDir, err := os.MkdirTemp("", "quarrystock-backup-*")
	if err != nil {
		return fmt.Errorf("backup: temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", tmpDir).Msg("temp dir cleanup failed")
		}
	}()

	timestamp := now.Format("2006-01-02_15-04-05")
	dbName := fmt.Sprintf("db_backup_%s.sqlite3", timestamp)
	dbPath := filepath.Join(tmpDir, dbName)
	if err := r.snapshotDatabase(dbPath); err != nil {
		return err
	}
	dbData, err := os.ReadFile(dbPath)
	if err != nil {
		return fmt.Errorf("backup: read snapshot: %w", err)
	}
	attachments := []mailer.Attachment{
		{Filename: dbName, ContentType: "application/octet-stream", Data: dbData},
	}

	zipName := fmt.Sprintf("media_backup_%s.zip", timestamp)
	zipPath := filepath.Join(tmpDir, zipName)
	if err := zipDirectory(r.MediaRoot, zipPath); err != nil {
		return err
	}
	zipData, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("backup: read archive: %w", err)
	}
	attachments = append(attachments, mailer.Attachment{Filename: zipName, ContentType: "application/zip", Data: zipData})

	subject := fmt.Sprintf("Automatic system backup - %s", timestamp)
	body := "Attached are the system backup files (database snapshot and media archive)."
	return r.Mailer.Send(emailCfg, cfg.RecipientEmail, subject, body, attachments...)
}

// snapshotDatabase writes a consistent copy of the live sqlite file.
// VACUUM INTO produces a standalone database without stopping writers.
func (r *Runner) snapshotDatabase(dest string) error {
	// VACUUM does not accept bound parameters on every sqlite build, so
	// the path is quoted inline.
	stmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(dest, "'", "''"))
	if err := r.DB.Exec(stmt).Error; err != nil {
		return fmt.Errorf("backup: database snapshot: %w", err)
	}
	return nil
}

// zipDirectory archives root into dest. A missing or empty media
// directory yields an empty archive rather than an error.
func zipDirectory(root, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("backup: create archive: %w", err)
	}
	defer out.Close()
	zw := zip.NewWriter(out)
	defer zw.Close()

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}
