package jobs

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/metrics"
)

// aggregatorOffset delays each run past the minute boundary so the bucket
// being folded is fully in the past.
const aggregatorOffset = 5 * time.Second

// LogMetricAggregator folds raw log entries into minute-bucketed counters.
// Re-running the same bucket overwrites the stored count with the freshly
// recomputed total, so a restart can never double-count a minute.
type LogMetricAggregator struct {
	db *gorm.DB
}

// NewLogMetricAggregator creates a new aggregator.
func NewLogMetricAggregator(db *gorm.DB) *LogMetricAggregator {
	return &LogMetricAggregator{db: db}
}

// Run aggregates the most recently completed minute. Returns the number of
// buckets written.
func (a *LogMetricAggregator) Run() (int, error) {
	return a.AggregateBucket(BucketFor(time.Now()))
}

// BucketFor returns the target bucket for a run at the given time: the
// minute before the current one.
func BucketFor(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(-time.Minute)
}

// metricGroup is one (org, service, level) grouping within a bucket.
type metricGroup struct {
	OrgID   uint
	Service string
	Level   string
	Total   int64
}

// AggregateBucket recomputes all counters for one minute bucket.
func (a *LogMetricAggregator) AggregateBucket(bucket time.Time) (int, error) {
	end := bucket.Add(time.Minute)

	var groups []metricGroup
	err := a.db.Model(&database.LogEntry{}).
		Select("org_id, service, level, COUNT(*) as total").
		Where("timestamp >= ? AND timestamp < ?", bucket, end).
		Group("org_id, service, level").
		Scan(&groups).Error
	if err != nil {
		return 0, fmt.Errorf("aggregate log entries: %w", err)
	}

	written := 0
	for _, g := range groups {
		if err := a.writeBucket(g, bucket); err != nil {
			log.Printf("Failed to write metric bucket for %s/%s: %v", g.Service, g.Level, err)
			continue
		}
		written++
	}

	metrics.BucketsAggregated(written)
	return written, nil
}

// writeBucket upserts one counter row, setting the count to the recomputed
// total rather than incrementing it.
func (a *LogMetricAggregator) writeBucket(g metricGroup, bucket time.Time) error {
	return a.db.Transaction(func(tx *gorm.DB) error {
		var existing database.LogMetric
		err := tx.Where("org_id = ? AND service = ? AND level = ? AND bucket_start = ? AND granularity = ?",
			g.OrgID, g.Service, g.Level, bucket, database.GranularityMinute).
			First(&existing).Error

		if err == gorm.ErrRecordNotFound {
			return tx.Create(&database.LogMetric{
				OrgID:       g.OrgID,
				Service:     g.Service,
				Level:       g.Level,
				BucketStart: bucket,
				Granularity: database.GranularityMinute,
				Count:       g.Total,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Update("count", g.Total).Error
	})
}

// Start begins the periodic aggregation loop, aligned to run shortly after
// each minute completes.
func (a *LogMetricAggregator) Start(stop <-chan struct{}) {
	// Sleep to the next minute boundary plus the offset so the first run
	// sees a complete bucket.
	now := time.Now()
	first := now.Truncate(time.Minute).Add(time.Minute + aggregatorOffset)
	timer := time.NewTimer(first.Sub(now))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-stop:
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	a.runAndLog()
	for {
		select {
		case <-ticker.C:
			a.runAndLog()
		case <-stop:
			log.Println("Log metric aggregator stopped")
			return
		}
	}
}

func (a *LogMetricAggregator) runAndLog() {
	written, err := a.Run()
	if err != nil {
		log.Printf("Log metric aggregator error: %v", err)
	} else if written > 0 {
		log.Printf("Log metric aggregator: wrote %d buckets", written)
	}
}
