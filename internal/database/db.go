package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&App{},
		&Component{},
		&Incident{},
		&Subscriber{},
		// Alerting models
		&AlertRule{},
		&LogEntry{},
		&LogMetric{},
		// Uptime history
		&UptimeRecord{},
		// Settings singleton
		&MonitorSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	log.Println("Initializing default database records...")

	if _, err := GetOrCreateMonitorSettings(DB); err != nil {
		return fmt.Errorf("failed to initialize monitor settings: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenIncidentsForApp returns unresolved automated incidents for an app.
func OpenIncidentsForApp(db *gorm.DB, appID uint) ([]Incident, error) {
	var incidents []Incident
	err := db.Where("app_id = ? AND origin = ? AND status <> ?",
		appID, IncidentOriginAutomated, IncidentStatusResolved).Find(&incidents).Error
	if err != nil {
		return nil, err
	}
	return incidents, nil
}

// PublicIncidentsOverlapping returns public incidents for an entity that
// overlap the [from, to) interval. Unresolved incidents overlap any interval
// that starts before `to`.
func PublicIncidentsOverlapping(db *gorm.DB, entityType EntityType, entityID uint, from, to time.Time) ([]Incident, error) {
	q := db.Where("is_public = ?", true).
		Where("started_at < ?", to).
		Where("resolved_at IS NULL OR resolved_at > ?", from)

	switch entityType {
	case EntityTypeComponent:
		q = q.Where("component_id = ?", entityID)
	default:
		q = q.Where("app_id = ? AND component_id IS NULL", entityID)
	}

	var incidents []Incident
	if err := q.Find(&incidents).Error; err != nil {
		return nil, err
	}
	return incidents, nil
}

// SumLogMetrics sums minute-bucket counts for the given filters over
// [from, to]. Empty service or level matches all values.
func SumLogMetrics(db *gorm.DB, orgID uint, service, level string, from, to time.Time) (int64, error) {
	q := db.Model(&LogMetric{}).
		Where("granularity = ?", GranularityMinute).
		Where("bucket_start >= ? AND bucket_start <= ?", from, to)
	if orgID != 0 {
		q = q.Where("org_id = ?", orgID)
	}
	if service != "" {
		q = q.Where("service = ?", service)
	}
	if level != "" {
		q = q.Where("level = ?", level)
	}

	var total int64
	// COALESCE so an empty window sums to 0 instead of scanning NULL.
	err := q.Select("COALESCE(SUM(count), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
