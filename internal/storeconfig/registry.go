package storeconfig

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/phillip-england/clockboard/internal/security"
)

// Registry serves the current store config and can swap it in place when
// the backing file changes.
type Registry struct {
	mu     sync.RWMutex
	cfg    *Config
	path   string
	logger *slog.Logger
}

func NewRegistry(cfg *Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{cfg: cfg, logger: logger}
}

// Open loads path and returns a registry that Reload and Watch re-read from.
func Open(path string, logger *slog.Logger) (*Registry, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	r := NewRegistry(cfg, logger)
	r.path = path
	return r, nil
}

func (r *Registry) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func (r *Registry) Replace(cfg *Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Registry) Lookup(id string) (Store, bool) {
	return r.Current().Lookup(id)
}

// Authorize returns the store when pin matches. The two failure modes are
// distinguishable for logging but render the same page.
func (r *Registry) Authorize(id, pin string) (Store, error) {
	store, ok := r.Lookup(id)
	if !ok {
		return Store{}, ErrUnknownStore
	}
	if !security.ComparePIN(store.PIN, pin) {
		return Store{}, ErrPINMismatch
	}
	return store, nil
}

// Reload re-reads the backing file. On failure the previous config stays.
func (r *Registry) Reload() error {
	if r.path == "" {
		return fmt.Errorf("registry has no backing file")
	}
	cfg, err := Load(r.path)
	if err != nil {
		return err
	}
	r.Replace(cfg)
	return nil
}

// Watch reloads the config whenever its file is written or replaced. It
// blocks until ctx is done. The parent directory is watched so that editors
// that save via rename are picked up.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		return fmt.Errorf("registry has no backing file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(r.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn("store config reload failed; keeping previous config", "path", r.path, "error", err)
				continue
			}
			r.logger.Info("store config reloaded", "path", r.path, "stores", len(r.Current().Stores))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("store config watcher error", "error", err)
		}
	}
}
