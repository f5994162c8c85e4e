package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gameserver-backup/internal/logging"
)

// screenController delivers console directives by stuffing them into a
// named screen session (window 0), the way the game servers are
// normally administered by hand.
type screenController struct {
	runner     CommandRunner
	directives DirectiveConfig
	settle     time.Duration
	dryRun     bool
	logger     *logging.Logger
}

// NewScreenController creates a ServiceController backed by screen
// console sessions
func NewScreenController(runner CommandRunner, directives DirectiveConfig, settle time.Duration, dryRun bool, logger *logging.Logger) ServiceController {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &screenController{
		runner:     runner,
		directives: directives,
		settle:     settle,
		dryRun:     dryRun,
		logger:     logger,
	}
}

// Notify broadcasts a message to the service's players
func (c *screenController) Notify(ctx context.Context, service string, message string) {
	directive := fmt.Sprintf(c.directives.NotifyFormat, message)
	c.send(ctx, service, directive)
}

// PauseWrites disables autosaves, flushes pending world data, and waits
// for the flush to settle before the caller snapshots the world
func (c *screenController) PauseWrites(ctx context.Context, service string) {
	c.send(ctx, service, c.directives.PauseSaves)
	c.send(ctx, service, c.directives.FlushSaves)
	if c.dryRun {
		return
	}
	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
	}
}

// ResumeWrites re-enables autosaves. The directive is idempotent on the
// server side, so sending it to an already-resumed service is harmless.
func (c *screenController) ResumeWrites(ctx context.Context, service string) {
	c.send(ctx, service, c.directives.ResumeSaves)
}

// send stuffs one directive into the service's console session. Screen
// exits non-zero when the session does not exist; that is logged and
// swallowed, matching the fire-and-forget contract.
func (c *screenController) send(ctx context.Context, service string, directive string) {
	if c.dryRun {
		c.logger.LogDirective(service, directive, true, nil)
		return
	}

	args := []string{"-S", service, "-p", "0", "-X", "stuff", directive + "\r"}
	output, err := c.runner.Run(ctx, "screen", args...)
	if err != nil && len(output) > 0 {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	c.logger.LogDirective(service, directive, false, err)
}
