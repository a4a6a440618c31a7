package models

import "time"

// Singleton settings tables. Single-row semantics are enforced at the
// write path by services.Settings, not by the schema.

// CompanyProfile brands the generated documents and the login page.
type CompanyProfile struct {
	ID             uint   `gorm:"primaryKey"`
	CompanyName    string `gorm:"not null"`
	LogoPath       string // relative to MEDIA_ROOT
	Address        string
	TaxID          string
	Phone          string
	Email          string
	PaymentDetails string // IBAN, bank account...
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EmailSettings holds the outbound sender identity. The password is an
// application password for the SMTP account, not a user password.
type EmailSettings struct {
	ID             uint   `gorm:"primaryKey"`
	SenderEmail    string `gorm:"not null"`
	SenderPassword string `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Backup schedules.
const (
	ScheduleManual = "MANUAL"
	ScheduleDaily  = "DAILY"
	ScheduleWeekly = "WEEKLY"
)

// BackupSettings drives the scheduled backup job.
type BackupSettings struct {
	ID               uint   `gorm:"primaryKey"`
	Schedule         string `gorm:"size:10;not null;default:'MANUAL'"`
	RecipientEmail   string
	LastBackupStatus string
	LastBackupTime   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
