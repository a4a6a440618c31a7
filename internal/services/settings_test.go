package services

import (
	"errors"
	"testing"

	"github.com/somagec/quarrystock/internal/models"
)

func TestCompanyProfileSingleton(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	got, err := svc.CompanyProfile()
	if err != nil || got != nil {
		t.Fatalf("empty table should yield nil, got %v / %v", got, err)
	}

	first := models.CompanyProfile{CompanyName: "Somagec Pedreiras"}
	if err := svc.CreateCompanyProfile(&first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := models.CompanyProfile{CompanyName: "Another"}
	if err := svc.CreateCompanyProfile(&second); !errors.Is(err, ErrAlreadyConfigured) {
		t.Fatalf("want ErrAlreadyConfigured, got %v", err)
	}

	// save goes through the existing row
	first.Phone = "+212 600 000 000"
	if err := svc.SaveCompanyProfile(&first); err != nil {
		t.Fatalf("save: %v", err)
	}
	var count int64
	db.Model(&models.CompanyProfile{}).Count(&count)
	if count != 1 {
		t.Fatalf("profile count = %d, want 1", count)
	}
}

func TestEmailSettingsUpsert(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	if err := svc.SaveEmailSettings(&models.EmailSettings{SenderEmail: "a@test", SenderPassword: "p1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.SaveEmailSettings(&models.EmailSettings{SenderEmail: "b@test", SenderPassword: "p2"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	var count int64
	db.Model(&models.EmailSettings{}).Count(&count)
	if count != 1 {
		t.Fatalf("settings count = %d, want 1", count)
	}
	current, err := svc.EmailSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if current.SenderEmail != "b@test" {
		t.Fatalf("sender = %s, want b@test", current.SenderEmail)
	}
}

func TestBackupSettingsDefaultAndValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	cfg, err := svc.BackupSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Schedule != models.ScheduleManual {
		t.Fatalf("default schedule = %s, want MANUAL", cfg.Schedule)
	}

	if _, err := svc.SaveBackupSettings("HOURLY", "x@test"); err == nil {
		t.Fatalf("invalid schedule accepted")
	}
	saved, err := svc.SaveBackupSettings(models.ScheduleDaily, "backup@test")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Schedule != models.ScheduleDaily || saved.RecipientEmail != "backup@test" {
		t.Fatalf("saved = %+v", saved)
	}
	var count int64
	db.Model(&models.BackupSettings{}).Count(&count)
	if count != 1 {
		t.Fatalf("settings count = %d, want 1", count)
	}
}
