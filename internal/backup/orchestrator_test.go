package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRunTime is a Wednesday, so weekly targets (default sunday) are
// not due and monthly targets are not due
var fixedRunTime = time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

type fakeController struct {
	mu     sync.Mutex
	events []string
}

func (c *fakeController) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *fakeController) Notify(ctx context.Context, service string, message string) {
	c.record("notify:" + service)
}

func (c *fakeController) PauseWrites(ctx context.Context, service string) {
	c.record("pause:" + service)
}

func (c *fakeController) ResumeWrites(ctx context.Context, service string) {
	c.record("resume:" + service)
}

type fakeSnapshots struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
	onCall  func()
}

func (s *fakeSnapshots) CreateSnapshot(ctx context.Context, sourceDir string, destDir string) error {
	s.mu.Lock()
	s.calls = append(s.calls, sourceDir)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall()
	}
	if err := s.failFor[sourceDir]; err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "level.dat"), []byte("level data"), 0644)
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (a *fakeArchiver) Compress(ctx context.Context, snapshotDir string, archivePath string) error {
	a.mu.Lock()
	a.calls = append(a.calls, archivePath)
	a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	return os.WriteFile(archivePath, []byte("archive-data"), 0644)
}

type fakeRetention struct {
	result *RetentionResult
	err    error
	called bool
	cap    int
}

func (r *fakeRetention) EnforceRetention(ctx context.Context, maxBackups int) (*RetentionResult, error) {
	r.called = true
	r.cap = maxBackups
	return r.result, r.err
}

type orchestratorFixture struct {
	config     *SystemConfig
	controller *fakeController
	snapshots  *fakeSnapshots
	archiver   *fakeArchiver
	storage    *fakeStorage
	retention  *fakeRetention
	runner     *fakeRunner
	orch       *Orchestrator
}

func newOrchestratorFixture(t *testing.T, targets []BackupTarget) *orchestratorFixture {
	t.Helper()

	config := &SystemConfig{
		Storage: StorageConfig{
			Provider: StorageProviderLocal,
			Local:    &LocalConfig{BasePath: t.TempDir()},
		},
		WorkDir: t.TempDir(),
	}
	config.SetDefaults()
	config.GracePeriod = time.Millisecond
	config.SettleDelay = 0

	f := &orchestratorFixture{
		config:     config,
		controller: &fakeController{},
		snapshots:  &fakeSnapshots{failFor: make(map[string]error)},
		archiver:   &fakeArchiver{},
		storage:    &fakeStorage{},
		retention:  &fakeRetention{result: &RetentionResult{Kept: 1}},
		runner:     &fakeRunner{},
	}
	f.orch = NewOrchestratorWithDependencies(
		config, targets,
		f.controller, f.snapshots, f.archiver, f.storage, f.retention, f.runner,
		newTestLogger(),
	)
	f.orch.now = func() time.Time { return fixedRunTime }
	return f
}

func TestOrchestratorRunCompletes(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/configs", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/creative", ServiceName: "mc-creative", Frequency: FrequencyWeekly},
	}
	f := newOrchestratorFixture(t, targets)

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "2026-03-04", report.DateTag)
	assert.Equal(t, "fake://backups", report.Location)
	assert.Equal(t, 2, report.Completed())
	assert.Equal(t, 1, report.Skipped())
	assert.Zero(t, report.Failed())

	// Every service is notified and paused up front, and resumed after
	// the last target, in target order
	assert.Equal(t, []string{
		"notify:mc-main", "notify:mc-creative",
		"pause:mc-main", "pause:mc-creative",
		"resume:mc-main", "resume:mc-creative",
	}, f.controller.events)

	assert.Equal(t, []string{
		"backups/2026-03-04/mc-main-2026-03-04.tar.gz",
		"backups/2026-03-04/configs-2026-03-04.tar.gz",
	}, f.storage.puts)

	// Uploaded archives are removed from the working directory
	leftovers, globErr := filepath.Glob(filepath.Join(f.config.WorkDir, "*.tar.gz"))
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)

	assert.True(t, f.retention.called)
	assert.Equal(t, 7, f.retention.cap)
	require.NotNil(t, report.Retention)

	require.NotNil(t, report.Metrics)
	assert.Equal(t, 2, report.Metrics.TargetsCompleted)
	assert.Equal(t, 1, report.Metrics.TargetsSkipped)
	assert.Equal(t, int64(2*len("archive-data")), report.Metrics.BytesArchived)
}

func TestOrchestratorSkipsUnrecognizedFrequency(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", Frequency: "hourly"},
	}
	f := newOrchestratorFixture(t, targets)

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Targets, 1)
	assert.Equal(t, OutcomeSkipped, report.Targets[0].Outcome)
	assert.Contains(t, report.Targets[0].SkipReason, "unrecognized frequency")
	assert.Empty(t, f.snapshots.calls)
}

func TestOrchestratorSnapshotFailureContinues(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/configs", Frequency: FrequencyDaily},
	}
	f := newOrchestratorFixture(t, targets)
	f.snapshots.failFor["/srv/mc/world"] = NewSnapshotError("rsync failed", nil)

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Targets, 2)
	assert.Equal(t, OutcomeFailed, report.Targets[0].Outcome)
	assert.Equal(t, StageSnapshot, report.Targets[0].FailedStage)
	assert.Equal(t, OutcomeCompleted, report.Targets[1].Outcome)

	assert.Contains(t, f.controller.events, "resume:mc-main")
	require.Len(t, f.storage.puts, 1)
	assert.Contains(t, f.storage.puts[0], "configs")
}

func TestOrchestratorUploadFailureRetainsArchive(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
	}
	f := newOrchestratorFixture(t, targets)
	f.storage.putErr = NewStorageError("bucket unreachable", nil)

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Targets, 1)
	assert.Equal(t, OutcomeFailed, report.Targets[0].Outcome)
	assert.Equal(t, StageUpload, report.Targets[0].FailedStage)

	// The archive survives for manual recovery
	archivePath := filepath.Join(f.config.WorkDir, "mc-main-2026-03-04.tar.gz")
	assert.FileExists(t, archivePath)

	assert.Contains(t, f.controller.events, "resume:mc-main")
}

func TestOrchestratorPreflightStorageFailure(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
	}
	f := newOrchestratorFixture(t, targets)
	f.storage.healthErr = NewStorageError("bucket unreachable", nil)

	report, err := f.orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.NotEmpty(t, report.Fatal)

	// Nothing was paused, so nothing needs resuming
	assert.Empty(t, f.controller.events)
	assert.Empty(t, f.snapshots.calls)
}

func TestOrchestratorPreflightMissingRsync(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", Frequency: FrequencyDaily},
	}
	f := newOrchestratorFixture(t, targets)
	f.runner.missing = map[string]bool{"rsync": true}

	_, err := f.orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "rsync")
}

func TestOrchestratorPreflightMissingScreen(t *testing.T) {
	f := newOrchestratorFixture(t, []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
	})
	f.runner.missing = map[string]bool{"screen": true}

	_, err := f.orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screen")

	// Without live services, screen is not required
	f = newOrchestratorFixture(t, []BackupTarget{
		{SourcePath: "/srv/mc/configs", Frequency: FrequencyDaily},
	})
	f.runner.missing = map[string]bool{"screen": true}

	_, err = f.orch.Run(context.Background())
	assert.NoError(t, err)
}

func TestOrchestratorInterruptStillResumes(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/creative", ServiceName: "mc-creative", Frequency: FrequencyDaily},
	}
	f := newOrchestratorFixture(t, targets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.snapshots.onCall = cancel

	report, err := f.orch.Run(ctx)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.NotEmpty(t, report.Fatal)

	// Both services were paused before the interrupt; both must be
	// resumed even though the context is canceled
	assert.Contains(t, f.controller.events, "resume:mc-main")
	assert.Contains(t, f.controller.events, "resume:mc-creative")
}

func TestOrchestratorDryRun(t *testing.T) {
	targets := []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/configs", Frequency: FrequencyDaily},
	}
	f := newOrchestratorFixture(t, targets)
	f.config.DryRun = true
	f.retention.result = &RetentionResult{DryRun: true}

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)

	// Players are still warned, but no saves are paused and nothing is
	// written anywhere
	assert.Equal(t, []string{"notify:mc-main"}, f.controller.events)
	assert.Empty(t, f.snapshots.calls)
	assert.Empty(t, f.archiver.calls)
	assert.Empty(t, f.storage.puts)

	assert.Equal(t, 2, report.Completed())
	assert.Equal(t, "backups/2026-03-04/mc-main-2026-03-04.tar.gz", report.Targets[0].RemoteKey)
}

func TestOrchestratorFrequencyGate(t *testing.T) {
	f := newOrchestratorFixture(t, nil)

	sunday := time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC)
	firstOfMonth := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		frequency  Frequency
		now        time.Time
		due        bool
		recognized bool
	}{
		{name: "daily always due", frequency: FrequencyDaily, now: fixedRunTime, due: true, recognized: true},
		{name: "weekly on sunday", frequency: FrequencyWeekly, now: sunday, due: true, recognized: true},
		{name: "weekly on wednesday", frequency: FrequencyWeekly, now: fixedRunTime, due: false, recognized: true},
		{name: "monthly on the first", frequency: FrequencyMonthly, now: firstOfMonth, due: true, recognized: true},
		{name: "monthly mid-month", frequency: FrequencyMonthly, now: fixedRunTime, due: false, recognized: true},
		{name: "unrecognized", frequency: "hourly", now: fixedRunTime, due: false, recognized: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, recognized := f.orch.frequencyDue(tt.frequency, tt.now)
			assert.Equal(t, tt.due, due)
			assert.Equal(t, tt.recognized, recognized)
		})
	}
}

func TestOrchestratorFrequencyGateConfiguredWeekday(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	f.config.WeeklyDay = "wednesday"
	f.orch.weeklyDay = time.Wednesday

	due, recognized := f.orch.frequencyDue(FrequencyWeekly, fixedRunTime)
	assert.True(t, due)
	assert.True(t, recognized)
}

func TestOrchestratorServicesDeduped(t *testing.T) {
	f := newOrchestratorFixture(t, []BackupTarget{
		{SourcePath: "/srv/mc/world", ServiceName: "mc-main", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/nether", ServiceName: "mc-main", Frequency: FrequencyDaily},
		{SourcePath: "/srv/mc/configs", Frequency: FrequencyDaily},
	})

	assert.Equal(t, []string{"mc-main"}, f.orch.services())
}
