package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gameserver-backup/internal/logging"
)

// WebhookNotifier posts run reports to a configured endpoint. Delivery
// is best-effort: failures are logged and never affect the run outcome.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

// NewWebhookNotifier creates a notifier for the given URL. An empty URL
// returns nil, which callers treat as notifications disabled.
func NewWebhookNotifier(url string, logger *logging.Logger) *WebhookNotifier {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NotifyRunComplete posts the run report as JSON
func (n *WebhookNotifier) NotifyRunComplete(ctx context.Context, report *RunReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		n.logger.Warnf("Webhook: failed to encode run report: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warnf("Webhook: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warnf("Webhook: delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warnf("Webhook: endpoint returned %s", resp.Status)
		return
	}
	n.logger.Debugf("Webhook: run report delivered to %s", n.url)
}

// Summary renders a one-line human summary of a run report for logs
func Summary(report *RunReport) string {
	if report.Fatal != "" {
		return fmt.Sprintf("run %s aborted: %s", report.RunID, report.Fatal)
	}
	return fmt.Sprintf("run %s: %d completed, %d failed, %d skipped in %s",
		report.RunID, report.Completed(), report.Failed(), report.Skipped(),
		report.Duration.Round(time.Millisecond))
}
