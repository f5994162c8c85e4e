package backup

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunContext carries the per-run state shared across pipeline stages.
// The paused-service set is the single source of truth for which
// services still need a resume directive.
type RunContext struct {
	RunID       string
	DateTag     string
	DryRun      bool
	GracePeriod time.Duration
	SettleDelay time.Duration
	WorkDir     string
	StartedAt   time.Time

	mu     sync.Mutex
	paused []string
	seen   map[string]bool
}

// NewRunContext creates the context for a single backup run. WorkDir is
// a run-scoped subdirectory of the configured working directory.
func NewRunContext(config *SystemConfig, now time.Time) *RunContext {
	runID := uuid.New().String()
	return &RunContext{
		RunID:       runID,
		DateTag:     now.Format("2006-01-02"),
		DryRun:      config.DryRun,
		GracePeriod: config.GracePeriod,
		SettleDelay: config.SettleDelay,
		WorkDir:     filepath.Join(config.WorkDir, "gameserver-backup-"+runID),
		StartedAt:   now,
	}
}

// MarkPaused records a service as paused. The record happens before the
// pause directive is attempted, so an interrupt between the two still
// resumes the service. Duplicate marks are ignored.
func (rc *RunContext) MarkPaused(service string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.seen == nil {
		rc.seen = make(map[string]bool)
	}
	if rc.seen[service] {
		return
	}
	rc.seen[service] = true
	rc.paused = append(rc.paused, service)
}

// DrainPaused empties the paused set and returns the services that
// still need a resume directive. A second drain returns nothing, so the
// deferred finalizer and the normal resume phase never double-send.
func (rc *RunContext) DrainPaused() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	services := rc.paused
	rc.paused = nil
	rc.seen = nil
	return services
}

// PausedServices returns a snapshot of the paused set without draining
func (rc *RunContext) PausedServices() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	services := make([]string, len(rc.paused))
	copy(services, rc.paused)
	return services
}

// TargetOutcome classifies what happened to one target in a run
type TargetOutcome string

const (
	OutcomeCompleted TargetOutcome = "COMPLETED"
	OutcomeSkipped   TargetOutcome = "SKIPPED"
	OutcomeFailed    TargetOutcome = "FAILED"
)

// Stage names the pipeline stage a target failed in
type Stage string

const (
	StageSnapshot Stage = "SNAPSHOT"
	StageArchive  Stage = "ARCHIVE"
	StageUpload   Stage = "UPLOAD"
)

// TargetResult records the outcome of one target's pipeline
type TargetResult struct {
	Target       BackupTarget  `json:"target"`
	Outcome      TargetOutcome `json:"outcome"`
	FailedStage  Stage         `json:"failed_stage,omitempty"`
	Error        string        `json:"error,omitempty"`
	SkipReason   string        `json:"skip_reason,omitempty"`
	ArchiveBytes int64         `json:"archive_bytes,omitempty"`
	RemoteKey    string        `json:"remote_key,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// RunReport summarizes a complete backup run for logging and webhook
// notification
type RunReport struct {
	RunID     string           `json:"run_id"`
	DateTag   string           `json:"date_tag"`
	DryRun    bool             `json:"dry_run"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration_ns"`
	Targets   []TargetResult   `json:"targets"`
	Retention *RetentionResult `json:"retention,omitempty"`
	Metrics   *RunMetrics      `json:"metrics,omitempty"`
	Fatal     string           `json:"fatal,omitempty"`
	Location  string           `json:"location,omitempty"`
}

// Completed returns how many targets finished their full pipeline
func (r *RunReport) Completed() int {
	return r.countOutcome(OutcomeCompleted)
}

// Failed returns how many targets failed at some stage
func (r *RunReport) Failed() int {
	return r.countOutcome(OutcomeFailed)
}

// Skipped returns how many targets the frequency gate skipped
func (r *RunReport) Skipped() int {
	return r.countOutcome(OutcomeSkipped)
}

func (r *RunReport) countOutcome(outcome TargetOutcome) int {
	n := 0
	for _, t := range r.Targets {
		if t.Outcome == outcome {
			n++
		}
	}
	return n
}
