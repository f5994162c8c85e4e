package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"gameserver-backup/internal/logging"
)

// Orchestrator drives one backup run through its phases: preflight,
// player notification, grace period, pause, per-target pipeline,
// resume, retention, cleanup. Whatever happens after a service is
// paused, the deferred finalizer resumes it.
type Orchestrator struct {
	config      *SystemConfig
	targets     []BackupTarget
	controller  ServiceController
	snapshots   SnapshotEngine
	archiver    Archiver
	storage     RemoteStorage
	retention   RetentionManager
	runner      CommandRunner
	notifier    *WebhookNotifier
	compression *CompressionManager
	logger      *logging.Logger
	weeklyDay   time.Weekday

	// now is injectable for frequency-gate tests
	now func() time.Time
}

// NewOrchestrator wires the production components from configuration
func NewOrchestrator(ctx context.Context, config *SystemConfig, logger *logging.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	config.SetDefaults()
	if err := NewValidator().ValidateSystemConfig(config); err != nil {
		return nil, NewConfigurationError("invalid configuration", err)
	}

	targets, err := config.ParseTargets()
	if err != nil {
		return nil, err
	}

	weeklyDay, err := config.WeeklyWeekday()
	if err != nil {
		return nil, err
	}

	storage, err := NewStorageProviderFactory().CreateStorageProvider(ctx, config.Storage)
	if err != nil {
		return nil, err
	}

	runner := NewExecRunner()
	compression := NewCompressionManager()

	return &Orchestrator{
		config:      config,
		targets:     targets,
		controller:  NewScreenController(runner, config.Directives, config.SettleDelay, config.DryRun, logger),
		snapshots:   NewRsyncSnapshotEngine(runner, logger),
		archiver:    NewTarArchiver(compression, config.Compression, logger),
		storage:     storage,
		retention:   NewRetentionManager(storage, config.Prefix, config.DryRun, logger),
		runner:      runner,
		notifier:    NewWebhookNotifier(config.WebhookURL, logger),
		compression: compression,
		logger:      logger,
		weeklyDay:   weeklyDay,
		now:         time.Now,
	}, nil
}

// NewOrchestratorWithDependencies wires an orchestrator from explicit
// components, used by tests
func NewOrchestratorWithDependencies(
	config *SystemConfig,
	targets []BackupTarget,
	controller ServiceController,
	snapshots SnapshotEngine,
	archiver Archiver,
	storage RemoteStorage,
	retention RetentionManager,
	runner CommandRunner,
	logger *logging.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	weeklyDay, _ := config.WeeklyWeekday()
	return &Orchestrator{
		config:      config,
		targets:     targets,
		controller:  controller,
		snapshots:   snapshots,
		archiver:    archiver,
		storage:     storage,
		retention:   retention,
		runner:      runner,
		compression: NewCompressionManager(),
		logger:      logger,
		weeklyDay:   weeklyDay,
		now:         time.Now,
	}
}

// Run executes one complete backup run. A non-nil error means the run
// aborted on a fatal condition; per-target failures are reported in the
// RunReport with a nil error.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	rc := NewRunContext(o.config, o.now())
	metrics := NewRunMetrics()
	report := &RunReport{
		RunID:     rc.RunID,
		DateTag:   rc.DateTag,
		DryRun:    rc.DryRun,
		StartedAt: rc.StartedAt,
		Metrics:   metrics,
		Location:  o.storage.Location(),
	}

	o.logger.Infof("Backup run %s starting (date %s, %d targets, destination %s)",
		rc.RunID, rc.DateTag, len(o.targets), o.storage.Location())
	if rc.DryRun {
		o.logger.Info("Dry run: no directives will be sent and nothing will be written")
	}

	// The one guarantee this tool makes: every service marked paused is
	// resumed on every exit path, including fatal aborts, panics, and
	// interrupts. The detached context keeps resume directives working
	// after ctx is canceled.
	defer func() {
		o.resumeAll(context.WithoutCancel(ctx), rc)
		o.finish(ctx, rc, report)
	}()

	// Preflight
	if err := o.preflight(ctx); err != nil {
		report.Fatal = err.Error()
		return report, err
	}

	// Notify players, then give them the grace period
	for _, service := range o.services() {
		o.controller.Notify(ctx, service, o.config.NotifyMessage)
	}
	if len(o.services()) > 0 && rc.GracePeriod > 0 {
		o.logger.Infof("Waiting %s before pausing saves", rc.GracePeriod)
		if err := o.wait(ctx, rc.GracePeriod); err != nil {
			fatal := NewFatalError(ComponentRun, "run interrupted during grace period", err)
			report.Fatal = fatal.Error()
			return report, fatal
		}
	}

	// Pause every service before touching any files. MarkPaused comes
	// first so an interrupt mid-pause still resumes the service.
	for _, service := range o.services() {
		if rc.DryRun {
			o.logger.Infof("Dry run: would pause saves on %s", service)
			continue
		}
		rc.MarkPaused(service)
		o.controller.PauseWrites(ctx, service)
	}

	// Per-target pipeline; one target's failure never stops the rest
	for _, target := range o.targets {
		if err := ctx.Err(); err != nil {
			fatal := NewFatalError(ComponentRun, "run interrupted", err)
			report.Fatal = fatal.Error()
			return report, fatal
		}
		result := o.processTarget(ctx, rc, target, metrics)
		report.Targets = append(report.Targets, result)
		metrics.RecordTarget(result)
	}

	// Resume as early as possible; the deferred finalizer then drains
	// an empty set
	o.resumeAll(context.WithoutCancel(ctx), rc)

	// Retention failures never undo a successful backup
	retentionResult, err := o.retention.EnforceRetention(ctx, o.config.MaxBackups)
	if err != nil {
		o.logger.Errorf("Retention sweep failed: %v", err)
	}
	report.Retention = retentionResult
	metrics.RecordRetention(retentionResult)

	// Cleanup
	if !rc.DryRun {
		if err := os.RemoveAll(rc.WorkDir); err != nil {
			o.logger.Warnf("Failed to remove working directory %s: %v", rc.WorkDir, err)
		}
	}

	return report, nil
}

// processTarget runs the snapshot, archive, and upload stages for one
// target and tags the outcome
func (o *Orchestrator) processTarget(ctx context.Context, rc *RunContext, target BackupTarget, metrics *RunMetrics) TargetResult {
	start := time.Now()
	result := TargetResult{
		Target:  target,
		Outcome: OutcomeCompleted,
	}
	defer func() {
		result.Duration = time.Since(start)
	}()

	due, recognized := o.frequencyDue(target.Frequency, rc.StartedAt)
	if !recognized {
		o.logger.Warnf("Target %s has unrecognized frequency %q, skipping", target.Name(), target.Frequency)
		result.Outcome = OutcomeSkipped
		result.SkipReason = fmt.Sprintf("unrecognized frequency %q", target.Frequency)
		return result
	}
	if !due {
		o.logger.Infof("Target %s not due (%s), skipping", target.Name(), target.Frequency)
		result.Outcome = OutcomeSkipped
		result.SkipReason = fmt.Sprintf("not due for %s backup", target.Frequency)
		return result
	}

	archiveName := target.Name() + "-" + rc.DateTag + o.compression.Extension(o.config.Compression)
	remoteKey := path.Join(o.config.Prefix, rc.DateTag, archiveName)
	result.RemoteKey = remoteKey

	if rc.DryRun {
		o.logger.Infof("Dry run: would back up %s to %s", target.SourcePath, remoteKey)
		return result
	}

	// Snapshot
	snapshotDir := filepath.Join(rc.WorkDir, target.Name())
	stageStart := time.Now()
	if err := o.snapshots.CreateSnapshot(ctx, target.SourcePath, snapshotDir); err != nil {
		os.RemoveAll(snapshotDir)
		return o.failTarget(result, StageSnapshot, err)
	}
	metrics.RecordStage(StageSnapshot, time.Since(stageStart))

	// Archive. Archives live directly under the configured working
	// directory, outside the run directory, so one that fails to upload
	// survives the end-of-run cleanup for manual recovery.
	archivePath := filepath.Join(o.config.WorkDir, archiveName)
	stageStart = time.Now()
	if err := o.archiver.Compress(ctx, snapshotDir, archivePath); err != nil {
		os.RemoveAll(snapshotDir)
		return o.failTarget(result, StageArchive, err)
	}
	metrics.RecordStage(StageArchive, time.Since(stageStart))
	os.RemoveAll(snapshotDir)

	if info, err := os.Stat(archivePath); err == nil {
		result.ArchiveBytes = info.Size()
	}

	// Upload
	uploadStart := time.Now()
	if err := o.storage.Put(ctx, archivePath, remoteKey); err != nil {
		o.logger.LogUpload(remoteKey, o.storage.Location(), time.Since(uploadStart), err)
		o.logger.Warnf("Archive retained locally at %s for manual recovery", archivePath)
		return o.failTarget(result, StageUpload, NewStorageError(
			fmt.Sprintf("failed to upload %s", archiveName), err))
	}
	o.logger.LogUpload(remoteKey, o.storage.Location(), time.Since(uploadStart), nil)
	metrics.RecordStage(StageUpload, time.Since(uploadStart))

	// The local copy is only needed until the upload is confirmed
	if err := os.Remove(archivePath); err != nil {
		o.logger.Warnf("Failed to remove local archive %s: %v", archivePath, err)
	}

	return result
}

func (o *Orchestrator) failTarget(result TargetResult, stage Stage, err error) TargetResult {
	result.Outcome = OutcomeFailed
	result.FailedStage = stage
	result.Error = err.Error()
	o.logger.Errorf("Target %s failed at %s: %v", result.Target.Name(), stage, err)
	return result
}

// frequencyDue applies the frequency gate against the run date
func (o *Orchestrator) frequencyDue(frequency Frequency, now time.Time) (due bool, recognized bool) {
	switch frequency {
	case FrequencyDaily:
		return true, true
	case FrequencyWeekly:
		return now.Weekday() == o.weeklyDay, true
	case FrequencyMonthly:
		return now.Day() == 1, true
	default:
		return false, false
	}
}

// preflight verifies required tools and storage before anything is
// paused, so a misconfigured run aborts without touching any service
func (o *Orchestrator) preflight(ctx context.Context) error {
	if _, err := o.runner.LookPath("rsync"); err != nil {
		return NewFatalError(ComponentPreflight, "rsync not found on PATH", err)
	}
	if len(o.services()) > 0 {
		if _, err := o.runner.LookPath("screen"); err != nil {
			return NewFatalError(ComponentPreflight, "screen not found on PATH", err)
		}
	}
	if err := o.storage.HealthCheck(ctx); err != nil {
		return NewFatalError(ComponentPreflight, "storage health check failed", err)
	}
	o.logger.Debug("Preflight checks passed")
	return nil
}

// resumeAll drains the paused set and resumes each service. Draining
// makes the call idempotent: the second caller gets an empty set.
func (o *Orchestrator) resumeAll(ctx context.Context, rc *RunContext) {
	for _, service := range rc.DrainPaused() {
		o.logger.Infof("Resuming saves on %s", service)
		o.controller.ResumeWrites(ctx, service)
	}
}

// finish closes out the report, logs the summary, and fires the
// webhook notification
func (o *Orchestrator) finish(ctx context.Context, rc *RunContext, report *RunReport) {
	report.Duration = time.Since(rc.StartedAt)
	o.logger.Info(Summary(report))
	if o.notifier != nil {
		o.notifier.NotifyRunComplete(context.WithoutCancel(ctx), report)
	}
}

// services returns the distinct service names across all targets, in
// target order
func (o *Orchestrator) services() []string {
	seen := make(map[string]bool)
	var services []string
	for _, target := range o.targets {
		if target.ServiceName == "" || seen[target.ServiceName] {
			continue
		}
		seen[target.ServiceName] = true
		services = append(services, target.ServiceName)
	}
	return services
}

// wait blocks for d or until ctx is canceled
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Targets returns the parsed backup targets
func (o *Orchestrator) Targets() []BackupTarget {
	return o.targets
}

// Storage returns the wired remote storage backend
func (o *Orchestrator) Storage() RemoteStorage {
	return o.storage
}

// Retention returns the wired retention manager
func (o *Orchestrator) Retention() RetentionManager {
	return o.retention
}
