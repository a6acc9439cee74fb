package database

import (
	"time"

	"gorm.io/gorm"
)

// MonitorSettings controls the health check scheduler (singleton row).
type MonitorSettings struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	Enabled                 bool      `gorm:"default:true" json:"enabled"`
	TickIntervalSeconds     int       `gorm:"default:10" json:"tick_interval_seconds"`
	WorkerPoolSize          int       `gorm:"default:10" json:"worker_pool_size"`
	DefaultFailureThreshold int       `gorm:"default:3" json:"default_failure_threshold"`
	DefaultTimeoutSeconds   int       `gorm:"default:10" json:"default_timeout_seconds"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (MonitorSettings) TableName() string {
	return "monitor_settings"
}

// NewDefaultMonitorSettings returns settings with default values.
func NewDefaultMonitorSettings() *MonitorSettings {
	return &MonitorSettings{
		Enabled:                 true,
		TickIntervalSeconds:     10,
		WorkerPoolSize:          10,
		DefaultFailureThreshold: 3,
		DefaultTimeoutSeconds:   10,
	}
}

// GetOrCreateMonitorSettings retrieves or creates monitor settings.
// Accepts a db parameter to support transaction contexts and testing.
func GetOrCreateMonitorSettings(db *gorm.DB) (*MonitorSettings, error) {
	var settings MonitorSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = *NewDefaultMonitorSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateMonitorSettings saves monitor settings.
func UpdateMonitorSettings(db *gorm.DB, settings *MonitorSettings) error {
	return db.Save(settings).Error
}

// SettingsProvider supplies scheduler settings. The scheduler depends only
// on this interface so it can run against the database-backed singleton or
// against static defaults when no database row exists yet.
type SettingsProvider interface {
	MonitorSettings() (*MonitorSettings, error)
}

// DBSettingsProvider reads settings from the monitor_settings singleton.
type DBSettingsProvider struct {
	db *gorm.DB
}

// NewDBSettingsProvider creates a database-backed settings provider.
func NewDBSettingsProvider(db *gorm.DB) *DBSettingsProvider {
	return &DBSettingsProvider{db: db}
}

// MonitorSettings returns the singleton row, creating it with defaults on
// first access.
func (p *DBSettingsProvider) MonitorSettings() (*MonitorSettings, error) {
	return GetOrCreateMonitorSettings(p.db)
}

// StaticSettingsProvider returns a fixed settings value. Used as the
// fallback when the dynamic store is unavailable, and in tests.
type StaticSettingsProvider struct {
	Settings MonitorSettings
}

// MonitorSettings returns a copy of the static settings.
func (p *StaticSettingsProvider) MonitorSettings() (*MonitorSettings, error) {
	s := p.Settings
	return &s, nil
}
