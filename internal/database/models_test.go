package database

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&App{},
		&Component{},
		&Incident{},
		&Subscriber{},
		&AlertRule{},
		&LogEntry{},
		&LogMetric{},
		&UptimeRecord{},
		&MonitorSettings{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestStatusSeverityRank(t *testing.T) {
	ordered := []Status{
		StatusOperational,
		StatusDegradedPerformance,
		StatusPartialOutage,
		StatusMajorOutage,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].SeverityRank() <= ordered[i-1].SeverityRank() {
			t.Errorf("expected %s to rank above %s", ordered[i], ordered[i-1])
		}
	}

	if StatusUnderMaintenance.SeverityRank() != StatusOperational.SeverityRank() {
		t.Error("UNDER_MAINTENANCE must rank as operational")
	}
}

func TestIncidentIsOpen(t *testing.T) {
	incident := Incident{Status: IncidentStatusInvestigating}
	if !incident.IsOpen() {
		t.Error("investigating incident must be open")
	}

	incident.Status = IncidentStatusResolved
	if incident.IsOpen() {
		t.Error("resolved incident must not be open")
	}
}

func TestIncidentBeforeCreateSetsStartedAt(t *testing.T) {
	db := setupTestDB(t)

	incident := &Incident{UUID: "a-unique-uuid", AppID: 1, Severity: IncidentSeverityMajor}
	if err := db.Create(incident).Error; err != nil {
		t.Fatalf("failed to create incident: %v", err)
	}
	if incident.StartedAt.IsZero() {
		t.Error("expected StartedAt to be defaulted on create")
	}

	explicit := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	incident2 := &Incident{UUID: "another-uuid", AppID: 1, Severity: IncidentSeverityMajor, StartedAt: explicit}
	if err := db.Create(incident2).Error; err != nil {
		t.Fatalf("failed to create incident: %v", err)
	}
	if !incident2.StartedAt.Equal(explicit) {
		t.Errorf("expected explicit StartedAt to be kept, got %s", incident2.StartedAt)
	}
}

func TestAlertRuleInCooldown(t *testing.T) {
	now := time.Now()
	rule := AlertRule{CooldownMinutes: 15}

	if rule.InCooldown(now) {
		t.Error("rule that never fired must not be in cooldown")
	}

	fired := now.Add(-10 * time.Minute)
	rule.LastFiredAt = &fired
	if !rule.InCooldown(now) {
		t.Error("rule fired 10m ago with 15m cooldown must be in cooldown")
	}

	fired = now.Add(-16 * time.Minute)
	rule.LastFiredAt = &fired
	if rule.InCooldown(now) {
		t.Error("rule fired 16m ago with 15m cooldown must not be in cooldown")
	}
}

func TestGetOrCreateMonitorSettings(t *testing.T) {
	db := setupTestDB(t)

	settings, err := GetOrCreateMonitorSettings(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !settings.Enabled {
		t.Error("expected monitoring enabled by default")
	}
	if settings.TickIntervalSeconds != 10 {
		t.Errorf("expected default tick interval 10, got %d", settings.TickIntervalSeconds)
	}
	if settings.DefaultFailureThreshold != 3 {
		t.Errorf("expected default failure threshold 3, got %d", settings.DefaultFailureThreshold)
	}

	settings.WorkerPoolSize = 25
	if err := UpdateMonitorSettings(db, settings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := GetOrCreateMonitorSettings(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != settings.ID {
		t.Error("expected the singleton row to be reused")
	}
	if again.WorkerPoolSize != 25 {
		t.Errorf("expected updated pool size, got %d", again.WorkerPoolSize)
	}

	var count int64
	db.Model(&MonitorSettings{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 settings row, got %d", count)
	}
}

func TestStaticSettingsProviderReturnsCopy(t *testing.T) {
	provider := &StaticSettingsProvider{Settings: *NewDefaultMonitorSettings()}

	first, err := provider.MonitorSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.WorkerPoolSize = 99

	second, _ := provider.MonitorSettings()
	if second.WorkerPoolSize == 99 {
		t.Error("mutating the returned settings must not affect the provider")
	}
}

func TestSumLogMetrics_EmptyFiltersMatchAll(t *testing.T) {
	db := setupTestDB(t)
	bucket := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	rows := []LogMetric{
		{OrgID: 1, Service: "api", Level: "ERROR", BucketStart: bucket, Granularity: GranularityMinute, Count: 3},
		{OrgID: 1, Service: "worker", Level: "WARN", BucketStart: bucket, Granularity: GranularityMinute, Count: 2},
		{OrgID: 2, Service: "api", Level: "ERROR", BucketStart: bucket, Granularity: GranularityMinute, Count: 5},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("failed to create metric: %v", err)
		}
	}

	from := bucket.Add(-time.Minute)
	to := bucket.Add(time.Minute)

	sum, err := SumLogMetrics(db, 0, "", "", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 10 {
		t.Errorf("expected wildcard sum 10, got %d", sum)
	}

	sum, _ = SumLogMetrics(db, 1, "api", "ERROR", from, to)
	if sum != 3 {
		t.Errorf("expected filtered sum 3, got %d", sum)
	}

	sum, _ = SumLogMetrics(db, 1, "api", "ERROR", to.Add(time.Hour), to.Add(2*time.Hour))
	if sum != 0 {
		t.Errorf("expected empty window sum 0, got %d", sum)
	}
}

func TestPublicIncidentsOverlapping(t *testing.T) {
	db := setupTestDB(t)
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	dayEnd := day.AddDate(0, 0, 1)

	resolvedInDay := day.Add(2 * time.Hour)
	resolvedBefore := day.Add(-time.Hour)
	componentID := uint(7)

	incidents := []Incident{
		{UUID: "u1", AppID: 1, Severity: IncidentSeverityMajor, StartedAt: day.Add(time.Hour), ResolvedAt: &resolvedInDay},
		{UUID: "u2", AppID: 1, Severity: IncidentSeverityMajor, StartedAt: day.Add(-2 * time.Hour), ResolvedAt: &resolvedBefore},
		{UUID: "u3", AppID: 1, Severity: IncidentSeverityMajor, StartedAt: dayEnd.Add(time.Hour)},
		{UUID: "u4", AppID: 1, Severity: IncidentSeverityMajor, StartedAt: day.Add(time.Hour)},
		{UUID: "u5", AppID: 1, ComponentID: &componentID, Severity: IncidentSeverityMajor, StartedAt: day.Add(time.Hour)},
	}
	for i := range incidents {
		incidents[i].IsPublic = true
		if err := db.Create(&incidents[i]).Error; err != nil {
			t.Fatalf("failed to create incident: %v", err)
		}
	}
	db.Model(&incidents[3]).Update("is_public", false)

	appMatches, err := PublicIncidentsOverlapping(db, EntityTypeApp, 1, day, dayEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appMatches) != 1 || appMatches[0].UUID != "u1" {
		t.Errorf("expected only u1 for the app, got %d matches", len(appMatches))
	}

	componentMatches, err := PublicIncidentsOverlapping(db, EntityTypeComponent, componentID, day, dayEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(componentMatches) != 1 || componentMatches[0].UUID != "u5" {
		t.Errorf("expected only u5 for the component, got %d matches", len(componentMatches))
	}
}
