package jobs

import (
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/database"
)

const minutesPerDay = 1440

// Daily run time: 00:05 local, after the prior day's incidents have settled.
const (
	dailyRunHour   = 0
	dailyRunMinute = 5
)

// UptimeCalculator computes one uptime record per entity per calendar day
// from the public incidents overlapping that day.
type UptimeCalculator struct {
	db *gorm.DB
}

// NewUptimeCalculator creates a new calculator.
func NewUptimeCalculator(db *gorm.DB) *UptimeCalculator {
	return &UptimeCalculator{db: db}
}

// RunForDate computes and upserts uptime records for every app and component
// for the calendar day containing date. Returns the number of records
// written. Per-entity failures are logged and skipped.
func (c *UptimeCalculator) RunForDate(date time.Time) (int, error) {
	day := truncateToDay(date)
	written := 0

	var apps []database.App
	if err := c.db.Find(&apps).Error; err != nil {
		return 0, fmt.Errorf("load apps: %w", err)
	}
	for i := range apps {
		if err := c.upsertRecord(database.EntityTypeApp, apps[i].ID, day); err != nil {
			log.Printf("Failed to compute uptime for app %s on %s: %v",
				apps[i].Name, day.Format("2006-01-02"), err)
			continue
		}
		written++
	}

	var components []database.Component
	if err := c.db.Find(&components).Error; err != nil {
		return 0, fmt.Errorf("load components: %w", err)
	}
	for i := range components {
		if err := c.upsertRecord(database.EntityTypeComponent, components[i].ID, day); err != nil {
			log.Printf("Failed to compute uptime for component %s on %s: %v",
				components[i].Name, day.Format("2006-01-02"), err)
			continue
		}
		written++
	}

	return written, nil
}

// Backfill recomputes the last N days (yesterday backwards), one day at a
// time. A failing day is logged and does not stop the remaining days.
// Returns the number of days processed successfully.
func (c *UptimeCalculator) Backfill(days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}

	processed := 0
	for i := 1; i <= days; i++ {
		date := time.Now().AddDate(0, 0, -i)
		if _, err := c.RunForDate(date); err != nil {
			log.Printf("Uptime backfill failed for %s: %v", date.Format("2006-01-02"), err)
			continue
		}
		processed++
	}
	return processed, nil
}

// dayTotals holds the classified incident minutes of one day.
type dayTotals struct {
	outageMinutes   int
	degradedMinutes int
	incidentCount   int
}

// upsertRecord computes the day's totals for one entity and writes its
// record, overwriting any existing (entity, date) row.
func (c *UptimeCalculator) upsertRecord(entityType database.EntityType, entityID uint, day time.Time) error {
	dayEnd := day.AddDate(0, 0, 1)

	incidents, err := database.PublicIncidentsOverlapping(c.db, entityType, entityID, day, dayEnd)
	if err != nil {
		return err
	}

	totals := classifyIncidents(incidents, day, dayEnd)
	operational := minutesPerDay - totals.outageMinutes - totals.degradedMinutes
	if operational < 0 {
		operational = 0
	}
	percent := roundTo3(float64(operational) / minutesPerDay * 100)

	status := database.StatusOperational
	switch {
	case totals.outageMinutes > 0:
		status = database.StatusMajorOutage
	case totals.degradedMinutes > 0:
		status = database.StatusDegradedPerformance
	}

	return c.db.Transaction(func(tx *gorm.DB) error {
		var record database.UptimeRecord
		err := tx.Where("entity_type = ? AND entity_id = ? AND date = ?",
			entityType, entityID, day).First(&record).Error

		fields := map[string]interface{}{
			"total_minutes":       minutesPerDay,
			"outage_minutes":      totals.outageMinutes,
			"degraded_minutes":    totals.degradedMinutes,
			"operational_minutes": operational,
			"incident_count":      totals.incidentCount,
			"uptime_percent":      percent,
			"status":              status,
		}

		if err == gorm.ErrRecordNotFound {
			return tx.Create(&database.UptimeRecord{
				EntityType:         entityType,
				EntityID:           entityID,
				Date:               day,
				TotalMinutes:       minutesPerDay,
				OutageMinutes:      totals.outageMinutes,
				DegradedMinutes:    totals.degradedMinutes,
				OperationalMinutes: operational,
				IncidentCount:      totals.incidentCount,
				UptimePercent:      percent,
				Status:             status,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&record).Updates(fields).Error
	})
}

// classifyIncidents clamps each incident to the day boundary and sums its
// minutes as outage (CRITICAL) or degraded (anything else). Minutes are
// capped at one full day.
func classifyIncidents(incidents []database.Incident, day, dayEnd time.Time) dayTotals {
	var totals dayTotals
	for i := range incidents {
		incident := &incidents[i]

		start := incident.StartedAt
		if start.Before(day) {
			start = day
		}
		end := dayEnd
		if incident.ResolvedAt != nil && incident.ResolvedAt.Before(dayEnd) {
			end = *incident.ResolvedAt
		}
		if !end.After(start) {
			continue
		}

		minutes := int(math.Round(end.Sub(start).Minutes()))
		if minutes <= 0 {
			continue
		}
		totals.incidentCount++

		if incident.Severity == database.IncidentSeverityCritical {
			totals.outageMinutes += minutes
		} else {
			totals.degradedMinutes += minutes
		}
	}

	if totals.outageMinutes > minutesPerDay {
		totals.outageMinutes = minutesPerDay
	}
	if totals.outageMinutes+totals.degradedMinutes > minutesPerDay {
		totals.degradedMinutes = minutesPerDay - totals.outageMinutes
	}
	return totals
}

// roundTo3 rounds half-up to 3 decimal places.
func roundTo3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Start runs the calculator daily at 00:05 local time, computing the prior
// day's records.
func (c *UptimeCalculator) Start(stop <-chan struct{}) {
	for {
		timer := time.NewTimer(time.Until(nextDailyRun(time.Now())))
		select {
		case <-timer.C:
			yesterday := time.Now().AddDate(0, 0, -1)
			written, err := c.RunForDate(yesterday)
			if err != nil {
				log.Printf("Uptime calculator error: %v", err)
			} else {
				log.Printf("Uptime calculator: wrote %d records for %s",
					written, yesterday.Format("2006-01-02"))
			}
		case <-stop:
			timer.Stop()
			log.Println("Uptime calculator stopped")
			return
		}
	}
}

// nextDailyRun returns the next 00:05 local strictly after now.
func nextDailyRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), dailyRunHour, dailyRunMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
