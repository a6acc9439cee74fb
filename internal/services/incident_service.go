package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/database"
)

// SubscriberNotifier delivers incident lifecycle notices to an app's
// subscribers. Dispatch failures are the notifier's problem; the incident
// service never fails an incident operation because a notice did not send.
type SubscriberNotifier interface {
	NotifyIncidentOpened(app *database.App, incident *database.Incident)
	NotifyIncidentResolved(app *database.App, incident *database.Incident)
}

// IncidentService owns AUTOMATED incidents: the status engine opens,
// escalates, and resolves them through this service. Manual incidents belong
// to the incident-management surface and are never touched here.
type IncidentService struct {
	db       *gorm.DB
	notifier SubscriberNotifier
}

// NewIncidentService creates a new IncidentService. notifier may be nil.
func NewIncidentService(db *gorm.DB, notifier SubscriberNotifier) *IncidentService {
	return &IncidentService{db: db, notifier: notifier}
}

// OpenOrEscalateAutomated opens an automated incident for the app, or if one
// is already open, raises its severity and refreshes the message. Severity
// only moves upward.
func (s *IncidentService) OpenOrEscalateAutomated(app *database.App, severity database.IncidentSeverity, message string) (*database.Incident, error) {
	var incident database.Incident
	err := s.db.Where("app_id = ? AND origin = ? AND status <> ?",
		app.ID, database.IncidentOriginAutomated, database.IncidentStatusResolved).
		Order("started_at desc").First(&incident).Error

	if err == nil {
		updates := map[string]interface{}{"message": message}
		if severityRank(severity) > severityRank(incident.Severity) {
			updates["severity"] = severity
			log.Printf("Escalated incident %s to %s", incident.UUID, severity)
		}
		if err := s.db.Model(&incident).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("escalate incident %s: %w", incident.UUID, err)
		}
		return &incident, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	incident = database.Incident{
		UUID:      uuid.New().String(),
		AppID:     app.ID,
		Title:     fmt.Sprintf("%s is experiencing issues", app.Name),
		Message:   message,
		Severity:  severity,
		Status:    database.IncidentStatusInvestigating,
		Origin:    database.IncidentOriginAutomated,
		IsPublic:  true,
		StartedAt: time.Now(),
	}
	if err := s.db.Create(&incident).Error; err != nil {
		return nil, fmt.Errorf("create incident for app %s: %w", app.Name, err)
	}
	log.Printf("Opened automated incident %s for app %s (severity %s)", incident.UUID, app.Name, severity)

	if s.notifier != nil {
		s.notifier.NotifyIncidentOpened(app, &incident)
	}
	return &incident, nil
}

// ResolveAutomated marks all open automated incidents of the app as
// resolved and returns how many were closed.
func (s *IncidentService) ResolveAutomated(app *database.App) (int, error) {
	incidents, err := database.OpenIncidentsForApp(s.db, app.ID)
	if err != nil {
		return 0, err
	}

	resolved := 0
	now := time.Now()
	for i := range incidents {
		incident := &incidents[i]
		err := s.db.Model(incident).Updates(map[string]interface{}{
			"status":      database.IncidentStatusResolved,
			"resolved_at": now,
		}).Error
		if err != nil {
			log.Printf("Failed to resolve incident %s: %v", incident.UUID, err)
			continue
		}
		incident.Status = database.IncidentStatusResolved
		incident.ResolvedAt = &now
		resolved++
		log.Printf("Resolved automated incident %s for app %s", incident.UUID, app.Name)

		if s.notifier != nil {
			s.notifier.NotifyIncidentResolved(app, incident)
		}
	}
	return resolved, nil
}

func severityRank(severity database.IncidentSeverity) int {
	switch severity {
	case database.IncidentSeverityCritical:
		return 3
	case database.IncidentSeverityMajor:
		return 2
	case database.IncidentSeverityMinor:
		return 1
	default:
		return 0
	}
}
