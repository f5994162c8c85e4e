package backup

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gameserver-backup/internal/logging"
)

func newTestLogger() *logging.Logger {
	logger, _ := logging.NewLogger(logging.Config{
		Level:  logging.LogLevelQuiet,
		Output: io.Discard,
	})
	return logger
}

type runnerCall struct {
	name string
	args []string
}

// fakeRunner records every command invocation and returns canned results
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runnerCall
	output  []byte
	err     error
	missing map[string]bool
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runnerCall{name: name, args: args})
	return r.output, r.err
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", fmt.Errorf("%s: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeStorage is an in-memory RemoteStorage for pipeline tests
type fakeStorage struct {
	mu        sync.Mutex
	entries   []string
	listErr   error
	putErr    error
	deleteErr map[string]error
	healthErr error

	puts    []string
	deletes []string
}

func (s *fakeStorage) List(ctx context.Context, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.entries, nil
}

func (s *fakeStorage) Put(ctx context.Context, localPath string, remoteKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts = append(s.puts, remoteKey)
	return nil
}

func (s *fakeStorage) Delete(ctx context.Context, remoteKey string, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[remoteKey]; err != nil {
		return err
	}
	s.deletes = append(s.deletes, remoteKey)
	return nil
}

func (s *fakeStorage) HealthCheck(ctx context.Context) error {
	return s.healthErr
}

func (s *fakeStorage) Location() string {
	return "fake://backups"
}
