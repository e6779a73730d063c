package trail

import "time"

// ConfigDocument is the typed view of config.json. Keys outside this set are
// carried by the config store but never interpreted.
type ConfigDocument struct {
	AnonID                          string `json:"anonId,omitempty"`
	ANSIDisabled                    bool   `json:"ansiDisabled,omitempty"`
	MetricsURL                      string `json:"metricsUrl,omitempty"`
	DisableAnonymisedMetricsLogging bool   `json:"disableAnonymisedMetricsLogging,omitempty"`
	DisableAutoFileLineOpen         bool   `json:"disableAutoFileLineOpen,omitempty"`
}

// TelemetryEvent is an event as sent to the metrics endpoint.
type TelemetryEvent struct {
	Timestamp    int64  `json:"t"`
	Category     string `json:"c"`
	VersionStamp string `json:"v"`
	AnonID       string `json:"i"`
	Message      string `json:"m,omitempty"`
	Hash         string `json:"hash"`
}

type TelemetryBatch struct {
	Events []TelemetryEvent `json:"events"`
}

type StatsReport struct {
	SchemaID        string      `json:"schema_id"`
	SchemaVersion   string      `json:"schema_version"`
	CreatedAt       time.Time   `json:"created_at"`
	ProducerVersion string      `json:"producer_version"`
	SetupDurationMS int64       `json:"setup_duration_ms"`
	TotalDurationMS int64       `json:"total_duration_ms"`
	ScriptCount     int         `json:"script_count"`
	BeginCount      int         `json:"begin_count"`
	EndCount        int         `json:"end_count"`
	ErrorCount      int         `json:"error_count"`
	CompletionRate  *float64    `json:"completion_rate"`
	Steps           []StepStats `json:"steps"`
}

type StepStats struct {
	Name               string `json:"name"`
	BeginCount         int    `json:"begin_count"`
	EndCount           int    `json:"end_count"`
	ErrorCount         int    `json:"error_count"`
	CompleteDurationMS int64  `json:"complete_duration_ms"`
	ErrorDurationMS    int64  `json:"error_duration_ms"`
	AvgCompleteMS      int64  `json:"avg_complete_ms"`
	AvgErrorMS         int64  `json:"avg_error_ms"`
	FirstBeginAt       int64  `json:"first_begin_at,omitempty"`
	LastEndAt          int64  `json:"last_end_at,omitempty"`
}
