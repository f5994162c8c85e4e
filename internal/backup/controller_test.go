package backup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirectives() DirectiveConfig {
	return DirectiveConfig{
		PauseSaves:   "save-off",
		FlushSaves:   "save-all",
		ResumeSaves:  "save-on",
		NotifyFormat: "say %s",
	}
}

func TestScreenControllerPauseWrites(t *testing.T) {
	runner := &fakeRunner{}
	controller := NewScreenController(runner, testDirectives(), 0, false, newTestLogger())

	controller.PauseWrites(context.Background(), "mc-main")

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "screen", runner.calls[0].name)
	assert.Equal(t, []string{"-S", "mc-main", "-p", "0", "-X", "stuff", "save-off\r"}, runner.calls[0].args)
	assert.Equal(t, []string{"-S", "mc-main", "-p", "0", "-X", "stuff", "save-all\r"}, runner.calls[1].args)
}

func TestScreenControllerResumeWrites(t *testing.T) {
	runner := &fakeRunner{}
	controller := NewScreenController(runner, testDirectives(), 0, false, newTestLogger())

	controller.ResumeWrites(context.Background(), "mc-main")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"-S", "mc-main", "-p", "0", "-X", "stuff", "save-on\r"}, runner.calls[0].args)
}

func TestScreenControllerNotify(t *testing.T) {
	runner := &fakeRunner{}
	controller := NewScreenController(runner, testDirectives(), 0, false, newTestLogger())

	controller.Notify(context.Background(), "mc-main", "Backup starting soon")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"-S", "mc-main", "-p", "0", "-X", "stuff", "say Backup starting soon\r"}, runner.calls[0].args)
}

func TestScreenControllerSwallowsMissingSession(t *testing.T) {
	runner := &fakeRunner{
		output: []byte("No screen session found."),
		err:    errors.New("exit status 1"),
	}
	controller := NewScreenController(runner, testDirectives(), 0, false, newTestLogger())

	// Fire-and-forget: a dead session must not abort the run
	controller.PauseWrites(context.Background(), "mc-gone")
	controller.ResumeWrites(context.Background(), "mc-gone")

	assert.Equal(t, 3, runner.callCount())
}

func TestScreenControllerDryRun(t *testing.T) {
	runner := &fakeRunner{}
	controller := NewScreenController(runner, testDirectives(), 0, true, newTestLogger())

	controller.Notify(context.Background(), "mc-main", "hello")
	controller.PauseWrites(context.Background(), "mc-main")
	controller.ResumeWrites(context.Background(), "mc-main")

	assert.Zero(t, runner.callCount())
}
