package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
)

// LoadFunc produces the client configuration to switch to after the watched
// file changes.
type LoadFunc func() (activecampaign.Config, error)

// Reloader watches the config file and reconfigures the server when it changes.
type Reloader struct {
	watcher *fsnotify.Watcher
	server  *Server
	load    LoadFunc
	path    string
	delay   time.Duration
}

// NewReloader creates a file watcher for path.
func NewReloader(server *Server, path string, load LoadFunc) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Reloader{
		watcher: watcher,
		server:  server,
		load:    load,
		path:    path,
		delay:   500 * time.Millisecond,
	}, nil
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait after the last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(r.delay, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.server.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := r.load()
	if err == nil {
		err = r.server.Reconfigure(cfg)
	}
	if err != nil {
		r.server.logger.Error("hot-reload failed, keeping previous client",
			slog.String("path", r.path), slog.String("error", err.Error()))
		return
	}
	r.server.logger.Info("hot-reload: configuration reloaded", slog.String("path", r.path))
}
