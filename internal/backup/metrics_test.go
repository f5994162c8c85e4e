package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunMetricsRecordTarget(t *testing.T) {
	metrics := NewRunMetrics()

	metrics.RecordTarget(TargetResult{Outcome: OutcomeCompleted, ArchiveBytes: 1024})
	metrics.RecordTarget(TargetResult{Outcome: OutcomeCompleted, ArchiveBytes: 2048})
	metrics.RecordTarget(TargetResult{Outcome: OutcomeFailed})
	metrics.RecordTarget(TargetResult{Outcome: OutcomeSkipped})

	assert.Equal(t, 2, metrics.TargetsCompleted)
	assert.Equal(t, 1, metrics.TargetsFailed)
	assert.Equal(t, 1, metrics.TargetsSkipped)
	assert.Equal(t, int64(3072), metrics.BytesArchived)
}

func TestRunMetricsRecordStage(t *testing.T) {
	metrics := NewRunMetrics()

	metrics.RecordStage(StageSnapshot, 2*time.Second)
	metrics.RecordStage(StageSnapshot, 3*time.Second)
	metrics.RecordStage(StageUpload, time.Second)

	assert.Equal(t, 5*time.Second, metrics.StageDurations[StageSnapshot])
	assert.Equal(t, time.Second, metrics.StageDurations[StageUpload])
	assert.Zero(t, metrics.StageDurations[StageArchive])
}

func TestRunMetricsRecordRetention(t *testing.T) {
	metrics := NewRunMetrics()

	metrics.RecordRetention(&RetentionResult{
		DeletedFolders: []string{"2026-03-01", "2026-03-02"},
		Errors:         []string{"2026-02-28: access denied"},
	})

	assert.Equal(t, 2, metrics.RetentionDeleted)
	assert.Equal(t, 1, metrics.RetentionErrors)

	metrics.RecordRetention(nil)
	assert.Equal(t, 2, metrics.RetentionDeleted)
}
