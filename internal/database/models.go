package database

import (
	"time"

	"gorm.io/gorm"
)

// Status represents the health status of an app or component,
// ordered by severity.
type Status string

const (
	StatusOperational         Status = "OPERATIONAL"
	StatusDegradedPerformance Status = "DEGRADED_PERFORMANCE"
	StatusPartialOutage       Status = "PARTIAL_OUTAGE"
	StatusMajorOutage         Status = "MAJOR_OUTAGE"
	// StatusUnderMaintenance is set only by the maintenance workflow.
	// The health engine never enters or exits it.
	StatusUnderMaintenance Status = "UNDER_MAINTENANCE"
)

// SeverityRank returns the ordering of a status on the severity axis.
// UNDER_MAINTENANCE is orthogonal and ranks as operational.
func (s Status) SeverityRank() int {
	switch s {
	case StatusDegradedPerformance:
		return 1
	case StatusPartialOutage:
		return 2
	case StatusMajorOutage:
		return 3
	default:
		return 0
	}
}

// CheckType identifies the probe used against a monitored target.
type CheckType string

const (
	CheckTypeNone           CheckType = "NONE"
	CheckTypePing           CheckType = "PING"
	CheckTypeHTTPGet        CheckType = "HTTP_GET"
	CheckTypeHealthEndpoint CheckType = "HEALTH_ENDPOINT"
	CheckTypeTCPPort        CheckType = "TCP_PORT"
)

// CheckConfig is the health check configuration shared by apps and components.
type CheckConfig struct {
	CheckEnabled         bool      `gorm:"default:false" json:"check_enabled"`
	CheckType            CheckType `gorm:"type:varchar(32);default:'NONE'" json:"check_type"`
	CheckTarget          string    `gorm:"type:varchar(512)" json:"check_target"`
	CheckIntervalSeconds int       `gorm:"default:60" json:"check_interval_seconds"`
	CheckTimeoutSeconds  int       `gorm:"default:10" json:"check_timeout_seconds"`
	ExpectedStatus       int       `gorm:"default:200" json:"expected_status"`
	FailureThreshold     int       `gorm:"default:3" json:"failure_threshold"`
}

// CheckState is the runtime state maintained by the status engine.
type CheckState struct {
	LastCheckAt         *time.Time `json:"last_check_at,omitempty"`
	LastCheckSuccess    *bool      `json:"last_check_success,omitempty"`
	LastCheckMessage    string     `gorm:"type:text" json:"last_check_message"`
	ConsecutiveFailures int        `gorm:"default:0" json:"consecutive_failures"`
}

// App is a monitored service shown on the status page.
type App struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	OrgID uint   `gorm:"index" json:"org_id"`
	Name  string `gorm:"size:255;not null" json:"name"`
	Slug  string `gorm:"uniqueIndex;size:255;not null" json:"slug"`

	CheckConfig
	CheckState
	Status Status `gorm:"type:varchar(32);default:'OPERATIONAL'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Components []Component `gorm:"foreignKey:AppID" json:"components,omitempty"`
	Incidents  []Incident  `gorm:"foreignKey:AppID" json:"incidents,omitempty"`
}

func (App) TableName() string {
	return "apps"
}

// Component is a sub-part of an app with its own status. A component may
// inherit its check from the parent app, in which case the scheduler skips
// it and the app's check covers it.
type Component struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	AppID uint   `gorm:"not null;index" json:"app_id"`
	Name  string `gorm:"size:255;not null" json:"name"`

	InheritAppCheck bool `gorm:"default:false" json:"inherit_app_check"`

	CheckConfig
	CheckState
	Status Status `gorm:"type:varchar(32);default:'OPERATIONAL'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	App App `gorm:"foreignKey:AppID" json:"app,omitempty"`
}

func (Component) TableName() string {
	return "components"
}

// IncidentSeverity represents how severe an incident is.
type IncidentSeverity string

const (
	IncidentSeverityMinor    IncidentSeverity = "MINOR"
	IncidentSeverityMajor    IncidentSeverity = "MAJOR"
	IncidentSeverityCritical IncidentSeverity = "CRITICAL"
)

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

const (
	IncidentStatusInvestigating IncidentStatus = "INVESTIGATING"
	IncidentStatusIdentified    IncidentStatus = "IDENTIFIED"
	IncidentStatusMonitoring    IncidentStatus = "MONITORING"
	IncidentStatusResolved      IncidentStatus = "RESOLVED"
)

// IncidentOrigin distinguishes engine-created incidents from operator-created ones.
type IncidentOrigin string

const (
	IncidentOriginAutomated IncidentOrigin = "AUTOMATED"
	IncidentOriginManual    IncidentOrigin = "MANUAL"
)

// Incident is an outage or degradation affecting an app (and optionally a
// single component). Automated incidents are owned by the status engine;
// manual incidents belong to the incident-management surface.
type Incident struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UUID        string           `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	AppID       uint             `gorm:"not null;index" json:"app_id"`
	ComponentID *uint            `gorm:"index" json:"component_id,omitempty"`
	Title       string           `gorm:"size:255" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	Severity    IncidentSeverity `gorm:"type:varchar(32);not null" json:"severity"`
	Status      IncidentStatus   `gorm:"type:varchar(32);not null;default:'INVESTIGATING'" json:"status"`
	Origin      IncidentOrigin   `gorm:"type:varchar(32);not null;default:'MANUAL';index" json:"origin"`
	IsPublic    bool             `gorm:"default:true" json:"is_public"`
	StartedAt   time.Time        `json:"started_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Incident) TableName() string {
	return "incidents"
}

// BeforeCreate sets StartedAt for incidents created without one.
func (i *Incident) BeforeCreate(tx *gorm.DB) error {
	if i.StartedAt.IsZero() {
		i.StartedAt = time.Now()
	}
	return nil
}

// IsOpen reports whether the incident has not been resolved yet.
func (i *Incident) IsOpen() bool {
	return i.Status != IncidentStatusResolved
}

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelTypeEmail   ChannelType = "EMAIL"
	ChannelTypeSlack   ChannelType = "SLACK"
	ChannelTypeWebhook ChannelType = "WEBHOOK"
)

// AlertRule fires a notification when the log volume for a (service, level)
// pair exceeds a threshold within a rolling window. A rule cannot fire again
// until its cooldown has elapsed.
type AlertRule struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	OrgID           uint        `gorm:"index" json:"org_id"`
	Name            string      `gorm:"size:255;not null" json:"name"`
	Service         string      `gorm:"size:255" json:"service"`
	Level           string      `gorm:"size:32" json:"level"`
	ThresholdCount  int64       `gorm:"not null" json:"threshold_count"`
	WindowMinutes   int         `gorm:"default:5" json:"window_minutes"`
	CooldownMinutes int         `gorm:"default:15" json:"cooldown_minutes"`
	ChannelType     ChannelType `gorm:"type:varchar(32);not null" json:"channel_type"`
	TargetAddress   string      `gorm:"size:512;not null" json:"target_address"`
	Active          bool        `gorm:"default:true;index" json:"active"`
	LastFiredAt     *time.Time  `json:"last_fired_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (AlertRule) TableName() string {
	return "alert_rules"
}

// InCooldown reports whether the rule fired recently enough that it must
// not fire again yet.
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.LastFiredAt == nil {
		return false
	}
	return now.Before(r.LastFiredAt.Add(time.Duration(r.CooldownMinutes) * time.Minute))
}

// LogEntry is a raw event record written by collaborators and read by the
// log metric aggregator.
type LogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrgID     uint      `gorm:"index" json:"org_id"`
	Service   string    `gorm:"size:255;index" json:"service"`
	Level     string    `gorm:"size:32;index" json:"level"`
	Message   string    `gorm:"type:text" json:"message"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

func (LogEntry) TableName() string {
	return "log_entries"
}

// MetricGranularity is the bucket width of an aggregated metric.
type MetricGranularity string

const (
	GranularityMinute MetricGranularity = "MINUTE"
	GranularityHour   MetricGranularity = "HOUR"
	GranularityDay    MetricGranularity = "DAY"
)

// LogMetric is a time-bucketed counter of log entries. Exactly one row
// exists per (org, service, level, bucket start, granularity); re-aggregating
// a bucket overwrites the count rather than incrementing it.
type LogMetric struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	OrgID       uint              `gorm:"uniqueIndex:idx_log_metrics_bucket" json:"org_id"`
	Service     string            `gorm:"size:255;uniqueIndex:idx_log_metrics_bucket" json:"service"`
	Level       string            `gorm:"size:32;uniqueIndex:idx_log_metrics_bucket" json:"level"`
	BucketStart time.Time         `gorm:"uniqueIndex:idx_log_metrics_bucket;not null" json:"bucket_start"`
	Granularity MetricGranularity `gorm:"type:varchar(16);uniqueIndex:idx_log_metrics_bucket;default:'MINUTE'" json:"granularity"`
	Count       int64             `gorm:"default:0" json:"count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (LogMetric) TableName() string {
	return "log_metrics"
}

// EntityType distinguishes apps from components in uptime records.
type EntityType string

const (
	EntityTypeApp       EntityType = "app"
	EntityTypeComponent EntityType = "component"
)

// UptimeRecord is one calendar day of computed uptime for one entity.
// Written only by the uptime calculator, upserted per (entity, date).
type UptimeRecord struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	EntityType         EntityType `gorm:"type:varchar(16);uniqueIndex:idx_uptime_entity_date" json:"entity_type"`
	EntityID           uint       `gorm:"uniqueIndex:idx_uptime_entity_date" json:"entity_id"`
	Date               time.Time  `gorm:"uniqueIndex:idx_uptime_entity_date;not null" json:"date"`
	TotalMinutes       int        `gorm:"default:1440" json:"total_minutes"`
	OutageMinutes      int        `gorm:"default:0" json:"outage_minutes"`
	DegradedMinutes    int        `gorm:"default:0" json:"degraded_minutes"`
	OperationalMinutes int        `gorm:"default:1440" json:"operational_minutes"`
	IncidentCount      int        `gorm:"default:0" json:"incident_count"`
	UptimePercent      float64    `json:"uptime_percent"`
	Status             Status     `gorm:"type:varchar(32);default:'OPERATIONAL'" json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (UptimeRecord) TableName() string {
	return "uptime_records"
}

// Subscriber receives an email when a public automated incident opens or
// resolves on an app they follow.
type Subscriber struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AppID     uint      `gorm:"not null;index" json:"app_id"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Confirmed bool      `gorm:"default:false" json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}
