package backup

import (
	"time"
)

// RunMetrics collects per-run counters. The pipeline is sequential, so
// no locking is needed.
type RunMetrics struct {
	TargetsCompleted int                     `json:"targets_completed"`
	TargetsFailed    int                     `json:"targets_failed"`
	TargetsSkipped   int                     `json:"targets_skipped"`
	BytesArchived    int64                   `json:"bytes_archived"`
	StageDurations   map[Stage]time.Duration `json:"stage_durations_ns,omitempty"`
	RetentionDeleted int                     `json:"retention_deleted"`
	RetentionErrors  int                     `json:"retention_errors"`
}

// NewRunMetrics creates an empty metrics collector
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		StageDurations: make(map[Stage]time.Duration),
	}
}

// RecordTarget folds one target's result into the counters
func (m *RunMetrics) RecordTarget(result TargetResult) {
	switch result.Outcome {
	case OutcomeCompleted:
		m.TargetsCompleted++
		m.BytesArchived += result.ArchiveBytes
	case OutcomeFailed:
		m.TargetsFailed++
	case OutcomeSkipped:
		m.TargetsSkipped++
	}
}

// RecordStage accumulates time spent in a pipeline stage
func (m *RunMetrics) RecordStage(stage Stage, duration time.Duration) {
	m.StageDurations[stage] += duration
}

// RecordRetention folds the retention sweep into the counters
func (m *RunMetrics) RecordRetention(result *RetentionResult) {
	if result == nil {
		return
	}
	m.RetentionDeleted = result.Deleted()
	m.RetentionErrors = len(result.Errors)
}
