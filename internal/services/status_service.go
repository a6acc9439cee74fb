package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/checker"
	"github.com/statuspulse/statuspulse/internal/database"
)

// DefaultFailureThreshold is used when an entity carries no threshold.
const DefaultFailureThreshold = 3

// StatusService consumes check results and drives the per-entity status
// state machine. It is the only code path allowed to derive entity status,
// apart from the MAJOR_OUTAGE cascade from an app onto its components.
type StatusService struct {
	db        *gorm.DB
	incidents *IncidentService
}

// NewStatusService creates a new StatusService.
func NewStatusService(db *gorm.DB, incidents *IncidentService) *StatusService {
	return &StatusService{db: db, incidents: incidents}
}

// transitionOutcome captures what a check result did to an entity.
type transitionOutcome struct {
	status      database.Status
	wentMajor   bool
	wentDegrade bool
	recovered   bool
}

// nextStatus applies the four-state machine: failures reset on success, and
// climb through DEGRADED_PERFORMANCE at T and MAJOR_OUTAGE at 2T.
// UNDER_MAINTENANCE is externally gated and never touched here.
func nextStatus(current database.Status, success bool, failures, threshold int) transitionOutcome {
	out := transitionOutcome{status: current}
	if current == database.StatusUnderMaintenance {
		return out
	}
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}

	if success {
		if current == database.StatusDegradedPerformance || current == database.StatusMajorOutage {
			out.status = database.StatusOperational
			out.recovered = true
		}
		return out
	}

	switch {
	case failures >= 2*threshold && current != database.StatusMajorOutage:
		out.status = database.StatusMajorOutage
		out.wentMajor = true
	case failures >= threshold && failures < 2*threshold &&
		current != database.StatusDegradedPerformance && current != database.StatusMajorOutage:
		out.status = database.StatusDegradedPerformance
		out.wentDegrade = true
	}
	return out
}

// ApplyAppResult records a check result against an app, runs the state
// machine, and creates/escalates/resolves automated incidents on
// transitions. The counter and status update happen in one transaction so
// concurrent checks of other entities cannot interleave a lost update.
func (s *StatusService) ApplyAppResult(appID uint, result checker.Result) error {
	now := time.Now()
	var app database.App
	var out transitionOutcome

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, appID).Error; err != nil {
			return err
		}

		failures := nextFailureCount(app.ConsecutiveFailures, result.Success)
		out = nextStatus(app.Status, result.Success, failures, app.FailureThreshold)

		updates := map[string]interface{}{
			"last_check_at":        now,
			"last_check_success":   result.Success,
			"last_check_message":   result.Message,
			"consecutive_failures": failures,
		}
		if out.status != app.Status {
			updates["status"] = out.status
		}
		if err := tx.Model(&app).Updates(updates).Error; err != nil {
			return err
		}

		app.ConsecutiveFailures = failures
		app.Status = out.status
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply result for app %d: %w", appID, err)
	}

	switch {
	case out.wentMajor:
		log.Printf("App %s entered MAJOR_OUTAGE after %d consecutive failures", app.Name, app.ConsecutiveFailures)
		s.openOrEscalateIncident(&app, database.IncidentSeverityCritical, result.Message)
		s.cascadeMajorOutage(&app)
	case out.wentDegrade:
		log.Printf("App %s entered DEGRADED_PERFORMANCE after %d consecutive failures", app.Name, app.ConsecutiveFailures)
		s.openOrEscalateIncident(&app, database.IncidentSeverityMajor, result.Message)
	case out.recovered:
		log.Printf("App %s recovered to OPERATIONAL", app.Name)
		s.resolveIncidents(&app)
	}

	return nil
}

// ApplyComponentResult records a check result against a component. Component
// transitions never create incidents; the parent app's check owns those.
func (s *StatusService) ApplyComponentResult(componentID uint, result checker.Result) error {
	now := time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var component database.Component
		if err := tx.First(&component, componentID).Error; err != nil {
			return err
		}

		failures := nextFailureCount(component.ConsecutiveFailures, result.Success)
		out := nextStatus(component.Status, result.Success, failures, component.FailureThreshold)

		updates := map[string]interface{}{
			"last_check_at":        now,
			"last_check_success":   result.Success,
			"last_check_message":   result.Message,
			"consecutive_failures": failures,
		}
		if out.status != component.Status {
			updates["status"] = out.status
		}
		return tx.Model(&component).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("apply result for component %d: %w", componentID, err)
	}
	return nil
}

func nextFailureCount(current int, success bool) int {
	if success {
		return 0
	}
	return current + 1
}

// cascadeMajorOutage projects an app's MAJOR_OUTAGE onto its components.
// One-way only: component recovery is driven by their own checks.
func (s *StatusService) cascadeMajorOutage(app *database.App) {
	err := s.db.Model(&database.Component{}).
		Where("app_id = ? AND status <> ? AND status <> ?",
			app.ID, database.StatusMajorOutage, database.StatusUnderMaintenance).
		Update("status", database.StatusMajorOutage).Error
	if err != nil {
		log.Printf("Failed to cascade outage to components of app %s: %v", app.Name, err)
	}
}

func (s *StatusService) openOrEscalateIncident(app *database.App, severity database.IncidentSeverity, message string) {
	if s.incidents == nil {
		return
	}
	if _, err := s.incidents.OpenOrEscalateAutomated(app, severity, message); err != nil {
		log.Printf("Failed to open automated incident for app %s: %v", app.Name, err)
	}
}

func (s *StatusService) resolveIncidents(app *database.App) {
	if s.incidents == nil {
		return
	}
	if _, err := s.incidents.ResolveAutomated(app); err != nil {
		log.Printf("Failed to resolve automated incidents for app %s: %v", app.Name, err)
	}
}
