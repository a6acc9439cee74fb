package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/database"
)

const subscriberSendTimeout = 30 * time.Second

// SubscriberMailer emails an app's confirmed subscribers when a public
// automated incident opens or resolves. Per-recipient failures are logged
// and never block the remaining recipients.
type SubscriberMailer struct {
	db     *gorm.DB
	sender Sender
}

// NewSubscriberMailer creates a subscriber mailer. sender is normally the
// email sender but any channel works, which keeps tests offline.
func NewSubscriberMailer(db *gorm.DB, sender Sender) *SubscriberMailer {
	return &SubscriberMailer{db: db, sender: sender}
}

// NotifyIncidentOpened emails subscribers that an incident started.
func (m *SubscriberMailer) NotifyIncidentOpened(app *database.App, incident *database.Incident) {
	subject := fmt.Sprintf("[%s] Incident: %s", app.Name, incident.Title)
	body := fmt.Sprintf("An incident was detected on %s at %s.\nSeverity: %s\n\n%s",
		app.Name, incident.StartedAt.Format(time.RFC1123), incident.Severity, incident.Message)
	m.fanOut(app, incident, subject, body)
}

// NotifyIncidentResolved emails subscribers that an incident resolved.
func (m *SubscriberMailer) NotifyIncidentResolved(app *database.App, incident *database.Incident) {
	resolvedAt := time.Now()
	if incident.ResolvedAt != nil {
		resolvedAt = *incident.ResolvedAt
	}
	subject := fmt.Sprintf("[%s] Resolved: %s", app.Name, incident.Title)
	body := fmt.Sprintf("The incident on %s was resolved at %s.",
		app.Name, resolvedAt.Format(time.RFC1123))
	m.fanOut(app, incident, subject, body)
}

func (m *SubscriberMailer) fanOut(app *database.App, incident *database.Incident, subject, body string) {
	if !incident.IsPublic {
		return
	}

	var subscribers []database.Subscriber
	err := m.db.Where("app_id = ? AND confirmed = ?", app.ID, true).Find(&subscribers).Error
	if err != nil {
		log.Printf("Failed to load subscribers for app %s: %v", app.Name, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscriberSendTimeout)
	defer cancel()

	for _, sub := range subscribers {
		n := Notification{Target: sub.Email, Subject: subject, Body: body}
		if err := m.sender.Send(ctx, n); err != nil {
			log.Printf("Failed to notify subscriber %s for app %s: %v", sub.Email, app.Name, err)
		}
	}
}
