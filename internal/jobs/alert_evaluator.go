package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/metrics"
	"github.com/statuspulse/statuspulse/internal/notify"
)

const (
	evaluatorInterval = time.Minute
	dispatchTimeout   = 30 * time.Second
)

// AlertRuleEvaluator periodically checks every active alert rule against the
// aggregated log metrics and dispatches a notification when a rule's rolling
// window sum crosses its threshold. A fired rule stays quiet until its
// cooldown elapses.
type AlertRuleEvaluator struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
}

// NewAlertRuleEvaluator creates a new evaluator.
func NewAlertRuleEvaluator(db *gorm.DB, dispatcher *notify.Dispatcher) *AlertRuleEvaluator {
	return &AlertRuleEvaluator{db: db, dispatcher: dispatcher}
}

// Run evaluates all active rules once and returns how many fired. A failure
// inside one rule is logged and never blocks the remaining rules.
func (e *AlertRuleEvaluator) Run() (int, error) {
	var rules []database.AlertRule
	if err := e.db.Where("active = ?", true).Find(&rules).Error; err != nil {
		return 0, fmt.Errorf("load alert rules: %w", err)
	}

	fired := 0
	for i := range rules {
		didFire, err := e.evaluateRule(&rules[i])
		if err != nil {
			log.Printf("Failed to evaluate alert rule %q: %v", rules[i].Name, err)
			continue
		}
		if didFire {
			fired++
		}
	}
	return fired, nil
}

// evaluateRule checks one rule and fires it when warranted. The rule is
// marked as fired even if the notification dispatch fails; the dispatch
// failure is logged, not retried.
func (e *AlertRuleEvaluator) evaluateRule(rule *database.AlertRule) (bool, error) {
	now := time.Now()
	if rule.InCooldown(now) {
		return false, nil
	}

	from := now.Add(-time.Duration(rule.WindowMinutes) * time.Minute)
	sum, err := database.SumLogMetrics(e.db, rule.OrgID, rule.Service, rule.Level, from, now)
	if err != nil {
		return false, fmt.Errorf("sum metrics: %w", err)
	}
	if sum < rule.ThresholdCount {
		return false, nil
	}

	log.Printf("Alert rule %q fired: %d events in %dm (threshold %d)",
		rule.Name, sum, rule.WindowMinutes, rule.ThresholdCount)
	metrics.AlertFired()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	n := notify.Notification{
		Target:  rule.TargetAddress,
		Subject: fmt.Sprintf("Alert: %s", rule.Name),
		Body: fmt.Sprintf("Rule %q matched %d log events for service=%q level=%q in the last %d minutes (threshold %d).",
			rule.Name, sum, rule.Service, rule.Level, rule.WindowMinutes, rule.ThresholdCount),
	}
	if err := e.dispatcher.Dispatch(ctx, rule.ChannelType, n); err != nil {
		log.Printf("Failed to dispatch notification for rule %q: %v", rule.Name, err)
	}

	if err := e.db.Model(rule).Update("last_fired_at", now).Error; err != nil {
		return true, fmt.Errorf("update last_fired_at: %w", err)
	}
	rule.LastFiredAt = &now
	return true, nil
}

// Start begins the periodic evaluation loop.
func (e *AlertRuleEvaluator) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(evaluatorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fired, err := e.Run()
			if err != nil {
				log.Printf("Alert rule evaluator error: %v", err)
			} else if fired > 0 {
				log.Printf("Alert rule evaluator: %d rules fired", fired)
			}
		case <-stop:
			log.Println("Alert rule evaluator stopped")
			return
		}
	}
}
