package jobs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/checker"
	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/metrics"
	"github.com/statuspulse/statuspulse/internal/services"
)

// CheckRunResult is returned by on-demand single-entity checks.
type CheckRunResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms"`
}

// HealthCheckScheduler periodically scans all monitored apps and components,
// dispatches the due ones across a bounded worker pool, and feeds each probe
// result into the status engine. A per-entity single-flight guard ensures no
// entity is ever checked by two workers at once, even when a tick fires
// while a slow check is still in flight.
type HealthCheckScheduler struct {
	db       *gorm.DB
	settings database.SettingsProvider
	status   *services.StatusService

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewHealthCheckScheduler creates a new scheduler.
func NewHealthCheckScheduler(db *gorm.DB, settings database.SettingsProvider, status *services.StatusService) *HealthCheckScheduler {
	return &HealthCheckScheduler{
		db:       db,
		settings: settings,
		status:   status,
		inFlight: make(map[string]struct{}),
	}
}

// entityRef is one schedulable check target.
type entityRef struct {
	kind  database.EntityType
	id    uint
	name  string
	check checker.Check
}

func (r entityRef) key() string {
	return fmt.Sprintf("%s:%d", r.kind, r.id)
}

// Run executes one scheduler tick: collect due entities and check them on
// the worker pool. Returns the number of entities dispatched. The whole tick
// is a no-op while monitoring is globally disabled.
func (s *HealthCheckScheduler) Run() (int, error) {
	settings, err := s.settings.MonitorSettings()
	if err != nil {
		return 0, fmt.Errorf("load monitor settings: %w", err)
	}
	if !settings.Enabled {
		return 0, nil
	}

	refs, err := s.collectEligible(true)
	if err != nil {
		return 0, err
	}
	return s.dispatch(refs, settings.WorkerPoolSize), nil
}

// TriggerAll immediately checks every eligible entity, bypassing the
// due-time filter. Returns the number of entities dispatched.
func (s *HealthCheckScheduler) TriggerAll() (int, error) {
	settings, err := s.settings.MonitorSettings()
	if err != nil {
		return 0, fmt.Errorf("load monitor settings: %w", err)
	}

	refs, err := s.collectEligible(false)
	if err != nil {
		return 0, err
	}
	return s.dispatch(refs, settings.WorkerPoolSize), nil
}

// TriggerEntity checks one app or component immediately and synchronously,
// reporting the probe outcome and timing. Entities with checking disabled or
// no usable configuration get a failed result without any state mutation.
func (s *HealthCheckScheduler) TriggerEntity(kind database.EntityType, id uint) (*CheckRunResult, error) {
	ref, ok, err := s.loadEntity(kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &CheckRunResult{
			Success: false,
			Message: "Checking is not enabled or not configured for this entity",
		}, nil
	}

	if !s.acquire(ref.key()) {
		return &CheckRunResult{
			Success: false,
			Message: "A check for this entity is already in flight",
		}, nil
	}
	defer s.release(ref.key())

	start := time.Now()
	result := s.executeAndApply(ref)
	return &CheckRunResult{
		Success:    result.Success,
		Message:    result.Message,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// collectEligible loads all checkable entities. With dueOnly, entities whose
// interval has not elapsed since their last check are filtered out;
// never-checked entities are always due. Components inheriting their app's
// check are skipped either way.
func (s *HealthCheckScheduler) collectEligible(dueOnly bool) ([]entityRef, error) {
	now := time.Now()
	var refs []entityRef

	var apps []database.App
	if err := s.db.Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("load apps: %w", err)
	}
	for i := range apps {
		app := &apps[i]
		if !checkable(app.CheckConfig) {
			continue
		}
		if dueOnly && !due(app.CheckState, app.CheckConfig, now) {
			continue
		}
		refs = append(refs, entityRef{
			kind:  database.EntityTypeApp,
			id:    app.ID,
			name:  app.Name,
			check: buildCheck(app.CheckConfig),
		})
	}

	var components []database.Component
	if err := s.db.Where("inherit_app_check = ?", false).Find(&components).Error; err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	for i := range components {
		component := &components[i]
		if !checkable(component.CheckConfig) {
			continue
		}
		if dueOnly && !due(component.CheckState, component.CheckConfig, now) {
			continue
		}
		refs = append(refs, entityRef{
			kind:  database.EntityTypeComponent,
			id:    component.ID,
			name:  component.Name,
			check: buildCheck(component.CheckConfig),
		})
	}

	return refs, nil
}

// dispatch fans the refs out over a bounded worker pool and waits for the
// tick to finish. Entities still in flight from a previous tick are skipped.
func (s *HealthCheckScheduler) dispatch(refs []entityRef, poolSize int) int {
	if len(refs) == 0 {
		return 0
	}
	if poolSize <= 0 {
		poolSize = 10
	}

	work := make(chan entityRef)
	var wg sync.WaitGroup
	for w := 0; w < poolSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range work {
				s.runOne(ref)
			}
		}()
	}

	dispatched := 0
	for _, ref := range refs {
		if !s.acquire(ref.key()) {
			log.Printf("Skipping %s %q: previous check still in flight", ref.kind, ref.name)
			continue
		}
		dispatched++
		work <- ref
	}
	close(work)
	wg.Wait()
	return dispatched
}

// runOne executes one check and applies the result. A panic in a probe or
// in persistence is converted into a failed result so one entity cannot
// take down the tick.
func (s *HealthCheckScheduler) runOne(ref entityRef) {
	defer s.release(ref.key())
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Check for %s %q panicked: %v", ref.kind, ref.name, r)
			s.apply(ref, checker.Result{Success: false, Message: fmt.Sprintf("Check error: %v", r)})
		}
	}()

	s.executeAndApply(ref)
}

func (s *HealthCheckScheduler) executeAndApply(ref entityRef) checker.Result {
	start := time.Now()
	result := checker.Execute(ref.check)
	metrics.CheckExecuted(string(ref.check.Type), result.Success, time.Since(start).Seconds())

	s.apply(ref, result)
	return result
}

func (s *HealthCheckScheduler) apply(ref entityRef, result checker.Result) {
	var err error
	if ref.kind == database.EntityTypeApp {
		err = s.status.ApplyAppResult(ref.id, result)
	} else {
		err = s.status.ApplyComponentResult(ref.id, result)
	}
	if err != nil {
		log.Printf("Failed to apply check result for %s %q: %v", ref.kind, ref.name, err)
	}
}

// loadEntity fetches one entity and reports whether it is checkable.
func (s *HealthCheckScheduler) loadEntity(kind database.EntityType, id uint) (entityRef, bool, error) {
	switch kind {
	case database.EntityTypeApp:
		var app database.App
		if err := s.db.First(&app, id).Error; err != nil {
			return entityRef{}, false, err
		}
		ref := entityRef{kind: kind, id: app.ID, name: app.Name, check: buildCheck(app.CheckConfig)}
		return ref, checkable(app.CheckConfig), nil
	case database.EntityTypeComponent:
		var component database.Component
		if err := s.db.First(&component, id).Error; err != nil {
			return entityRef{}, false, err
		}
		ref := entityRef{kind: kind, id: component.ID, name: component.Name, check: buildCheck(component.CheckConfig)}
		return ref, checkable(component.CheckConfig) && !component.InheritAppCheck, nil
	default:
		return entityRef{}, false, fmt.Errorf("unknown entity type %q", kind)
	}
}

func (s *HealthCheckScheduler) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *HealthCheckScheduler) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

func checkable(cfg database.CheckConfig) bool {
	return cfg.CheckEnabled &&
		cfg.CheckType != "" &&
		cfg.CheckType != database.CheckTypeNone &&
		cfg.CheckTarget != ""
}

func due(state database.CheckState, cfg database.CheckConfig, now time.Time) bool {
	if state.LastCheckAt == nil {
		return true
	}
	interval := time.Duration(cfg.CheckIntervalSeconds) * time.Second
	return !now.Before(state.LastCheckAt.Add(interval))
}

func buildCheck(cfg database.CheckConfig) checker.Check {
	return checker.Check{
		Type:           cfg.CheckType,
		Target:         cfg.CheckTarget,
		Timeout:        time.Duration(cfg.CheckTimeoutSeconds) * time.Second,
		ExpectedStatus: cfg.ExpectedStatus,
	}
}

// Start begins the periodic scheduling loop. The tick interval follows the
// monitor settings and is re-read after each tick so changes apply without
// a restart.
func (s *HealthCheckScheduler) Start(stop <-chan struct{}) {
	settings, err := s.settings.MonitorSettings()
	if err != nil {
		log.Printf("Failed to load monitor settings, using defaults: %v", err)
		settings = database.NewDefaultMonitorSettings()
	}

	interval := tickInterval(settings)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			checked, err := s.Run()
			if err != nil {
				log.Printf("Health check scheduler error: %v", err)
			} else if checked > 0 {
				log.Printf("Health check scheduler: checked %d entities", checked)
			}

			newSettings, err := s.settings.MonitorSettings()
			if err == nil && tickInterval(newSettings) != interval {
				interval = tickInterval(newSettings)
				ticker.Reset(interval)
				log.Printf("Health check tick interval updated to %s", interval)
			}
		case <-stop:
			log.Println("Health check scheduler stopped")
			return
		}
	}
}

func tickInterval(settings *database.MonitorSettings) time.Duration {
	if settings.TickIntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(settings.TickIntervalSeconds) * time.Second
}
