package backup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierDeliversReport(t *testing.T) {
	var received RunReport
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, newTestLogger())
	require.NotNil(t, notifier)

	report := &RunReport{
		RunID:   "run-1",
		DateTag: "2026-03-04",
		Targets: []TargetResult{
			{Target: BackupTarget{SourcePath: "/srv/world"}, Outcome: OutcomeCompleted},
		},
	}
	notifier.NotifyRunComplete(context.Background(), report)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "run-1", received.RunID)
	assert.Equal(t, "2026-03-04", received.DateTag)
	require.Len(t, received.Targets, 1)
	assert.Equal(t, OutcomeCompleted, received.Targets[0].Outcome)
}

func TestWebhookNotifierToleratesEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, newTestLogger())
	notifier.NotifyRunComplete(context.Background(), &RunReport{RunID: "run-1"})

	// Delivery is best-effort; nothing to assert beyond not panicking
	server.Close()
	notifier.NotifyRunComplete(context.Background(), &RunReport{RunID: "run-2"})
}

func TestNewWebhookNotifierEmptyURL(t *testing.T) {
	assert.Nil(t, NewWebhookNotifier("", newTestLogger()))
}

func TestSummary(t *testing.T) {
	report := &RunReport{
		RunID:    "run-1",
		Duration: 1500 * time.Millisecond,
		Targets: []TargetResult{
			{Outcome: OutcomeCompleted},
			{Outcome: OutcomeFailed},
			{Outcome: OutcomeSkipped},
		},
	}
	assert.Equal(t, "run run-1: 1 completed, 1 failed, 1 skipped in 1.5s", Summary(report))

	aborted := &RunReport{RunID: "run-2", Fatal: "storage health check failed"}
	assert.Equal(t, "run run-2 aborted: storage health check failed", Summary(aborted))
}
