package mcp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
)

func startReloader(t *testing.T, s *Server, load LoadFunc) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  key: old\n"), 0o600))

	r, err := NewReloader(s, path, load)
	require.NoError(t, err)
	r.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return path
}

func TestReloaderReconfiguresOnWrite(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	before := s.Dispatcher()

	next := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	var loads atomic.Int32
	path := startReloader(t, s, func() (activecampaign.Config, error) {
		loads.Add(1)
		return next, nil
	})

	require.NoError(t, os.WriteFile(path, []byte("api:\n  key: new\n"), 0o600))

	require.Eventually(t, func() bool {
		return s.Dispatcher() != before
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, loads.Load(), int32(1))
}

func TestReloaderKeepsClientWhenLoadFails(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	before := s.Dispatcher()

	var loads atomic.Int32
	path := startReloader(t, s, func() (activecampaign.Config, error) {
		loads.Add(1)
		return activecampaign.Config{}, errors.New("broken config")
	})

	require.NoError(t, os.WriteFile(path, []byte("api: [\n"), 0o600))

	require.Eventually(t, func() bool { return loads.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, before, s.Dispatcher())
}

func TestNewReloaderMissingFile(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := NewReloader(s, filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}
