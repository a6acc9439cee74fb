package api

// UpdateMonitorSettingsRequest is the PUT /api/monitor/settings body.
// Pointer fields distinguish "not provided" from zero values.
type UpdateMonitorSettingsRequest struct {
	Enabled                 *bool `json:"enabled,omitempty"`
	TickIntervalSeconds     *int  `json:"tick_interval_seconds,omitempty"`
	WorkerPoolSize          *int  `json:"worker_pool_size,omitempty"`
	DefaultFailureThreshold *int  `json:"default_failure_threshold,omitempty"`
	DefaultTimeoutSeconds   *int  `json:"default_timeout_seconds,omitempty"`
}

// BackfillRequest is the POST /api/uptime/backfill body.
type BackfillRequest struct {
	Days int `json:"days"`
}
