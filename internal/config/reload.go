package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// ReloadDebounce is how long the Reloader waits after the last write
// before reloading.
const ReloadDebounce = 500 * time.Millisecond

// Reloader watches the config file and hands each successfully loaded
// version to a callback. Invalid edits are logged and ignored.
type Reloader struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(cfg *Config, hash string)
	debounce time.Duration

	mu       sync.Mutex
	lastHash string
}

// NewReloader watches the directory containing path so that editors
// that replace the file on save are handled.
func NewReloader(path, currentHash string, onChange func(*Config, string)) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Reloader{
		watcher:  watcher,
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: ReloadDebounce,
		lastHash: currentHash,
	}, nil
}

// Run watches for changes. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(r.debounce, r.reload)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			klog.ErrorS(err, "config watcher error")
		}
	}
}

func (r *Reloader) reload() {
	cfg, hash, err := Load(r.path)
	if err != nil {
		klog.ErrorS(err, "hot-reload failed", "path", r.path)
		return
	}

	r.mu.Lock()
	unchanged := hash == r.lastHash
	r.lastHash = hash
	r.mu.Unlock()
	if unchanged {
		return
	}

	klog.InfoS("hot-reload: config reloaded", "path", r.path, "hash", hash)
	r.onChange(cfg, hash)
}
