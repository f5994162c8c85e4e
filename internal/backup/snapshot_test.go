package backup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRsyncSnapshotEngineArgs(t *testing.T) {
	runner := &fakeRunner{}
	engine := NewRsyncSnapshotEngine(runner, newTestLogger())
	destDir := filepath.Join(t.TempDir(), "world")

	err := engine.CreateSnapshot(context.Background(), "/srv/minecraft/world", destDir)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "rsync", runner.calls[0].name)
	assert.Equal(t, []string{"-a", "--delete", "/srv/minecraft/world/", destDir + "/"}, runner.calls[0].args)

	assert.DirExists(t, destDir)
}

func TestRsyncSnapshotEngineNormalizesTrailingSlash(t *testing.T) {
	runner := &fakeRunner{}
	engine := NewRsyncSnapshotEngine(runner, newTestLogger())
	destDir := filepath.Join(t.TempDir(), "world")

	err := engine.CreateSnapshot(context.Background(), "/srv/minecraft/world/", destDir+"/")
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"-a", "--delete", "/srv/minecraft/world/", destDir + "/"}, runner.calls[0].args)
}

func TestRsyncSnapshotEngineFailure(t *testing.T) {
	runner := &fakeRunner{
		output: []byte("rsync: link_stat failed"),
		err:    errors.New("exit status 23"),
	}
	engine := NewRsyncSnapshotEngine(runner, newTestLogger())

	err := engine.CreateSnapshot(context.Background(), "/srv/missing", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, IsTargetError(err))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, ComponentSnapshot, runErr.Component)
	assert.Equal(t, "rsync: link_stat failed", runErr.Context["output"])
}
