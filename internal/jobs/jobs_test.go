package jobs

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&database.App{},
		&database.Component{},
		&database.Incident{},
		&database.Subscriber{},
		&database.AlertRule{},
		&database.LogEntry{},
		&database.LogMetric{},
		&database.UptimeRecord{},
		&database.MonitorSettings{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testSettings() database.SettingsProvider {
	return &database.StaticSettingsProvider{
		Settings: *database.NewDefaultMonitorSettings(),
	}
}

func newTestScheduler(db *gorm.DB) *HealthCheckScheduler {
	status := services.NewStatusService(db, services.NewIncidentService(db, nil))
	return NewHealthCheckScheduler(db, testSettings(), status)
}
