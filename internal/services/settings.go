package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/models"
)

// SettingsService guards the singleton tables: company profile, email
// credentials and backup schedule. Creation is rejected when a row
// already exists; updates go through the existing row. Loaded once per
// request or job invocation, never cached process-wide.
type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService { return &SettingsService{DB: db} }

// CompanyProfile returns the singleton profile or nil when not set up.
func (s *SettingsService) CompanyProfile() (*models.CompanyProfile, error) {
	var p models.CompanyProfile
	if err := s.DB.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreateCompanyProfile enforces single-instance at the write path.
func (s *SettingsService) CreateCompanyProfile(p *models.CompanyProfile) error {
	var count int64
	if err := s.DB.Model(&models.CompanyProfile{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyConfigured
	}
	return s.DB.Create(p).Error
}

// SaveCompanyProfile creates the profile or updates the existing row.
func (s *SettingsService) SaveCompanyProfile(p *models.CompanyProfile) error {
	existing, err := s.CompanyProfile()
	if err != nil {
		return err
	}
	if existing == nil {
		return s.CreateCompanyProfile(p)
	}
	p.ID = existing.ID
	return s.DB.Save(p).Error
}

// EmailSettings returns the sender credentials or nil when unset.
func (s *SettingsService) EmailSettings() (*models.EmailSettings, error) {
	var e models.EmailSettings
	if err := s.DB.First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// SaveEmailSettings creates or updates the singleton credentials row.
func (s *SettingsService) SaveEmailSettings(e *models.EmailSettings) error {
	existing, err := s.EmailSettings()
	if err != nil {
		return err
	}
	if existing != nil {
		e.ID = existing.ID
		return s.DB.Save(e).Error
	}
	return s.DB.Create(e).Error
}

// BackupSettings returns the schedule row, creating the MANUAL default
// on first access so the backup job always has a row to update.
func (s *SettingsService) BackupSettings() (*models.BackupSettings, error) {
	var b models.BackupSettings
	if err := s.DB.First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b = models.BackupSettings{Schedule: models.ScheduleManual}
			if err := s.DB.Create(&b).Error; err != nil {
				return nil, err
			}
			return &b, nil
		}
		return nil, err
	}
	return &b, nil
}

// SaveBackupSettings updates the schedule and recipient.
func (s *SettingsService) SaveBackupSettings(schedule, recipient string) (*models.BackupSettings, error) {
	switch schedule {
	case models.ScheduleManual, models.ScheduleDaily, models.ScheduleWeekly:
	default:
		return nil, &ValidationError{Field: "schedule", Reason: "invalid_choice"}
	}
	b, err := s.BackupSettings()
	if err != nil {
		return nil, err
	}
	updates := map[string]any{"schedule": schedule, "recipient_email": recipient}
	if err := s.DB.Model(b).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.BackupSettings()
}
