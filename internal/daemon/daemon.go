// Package daemon provides watch mode for directory-backed archives.
//
// When the archive is a local folder mirrored by an external sync
// client, another device's pushes eventually appear as file changes in
// that folder. The daemon watches it with fsnotify, debounces change
// bursts, and triggers a full sync cycle so the local store adopts the
// new blobs without waiting for a manual sync.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sitewerk/sitesync/internal/syncer"
)

// Config holds daemon settings.
type Config struct {
	// DebounceInterval is how long to wait after the last change
	// before triggering a cycle. Batches rapid sync-client writes.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches an archive directory and drives sync cycles.
type Daemon struct {
	syncer     *syncer.Syncer
	archiveDir string
	config     *Config

	watcher *fsnotify.Watcher

	mu            sync.Mutex
	lastChange    time.Time
	pendingSync   bool
	suppressUntil time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon over a connected syncer and the archive's
// backing directory.
func New(s *syncer.Syncer, archiveDir string, config *Config) (*Daemon, error) {
	if s == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if archiveDir == "" {
		return nil, fmt.Errorf("archiveDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		syncer:     s,
		archiveDir: archiveDir,
		config:     config,
		watcher:    watcher,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins watching. Blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.watcher.Add(d.archiveDir); err != nil {
		return fmt.Errorf("failed to watch archive directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.archiveDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processPending()

	select {
	case <-ctx.Done():
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for its goroutines.
func (d *Daemon) Stop() error {
	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}
	d.wg.Wait()
	d.config.Logger.Println("Daemon stopped")
	return nil
}

// watchFileEvents marks blob changes for the debounced processor.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			// Ignore in-flight temp files and non-blob noise.
			if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
				continue
			}
			d.markChanged()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) markChanged() {
	d.mu.Lock()
	if time.Now().After(d.suppressUntil) {
		d.lastChange = time.Now()
		d.pendingSync = true
	}
	d.mu.Unlock()
}

// processPending runs a sync cycle once changes settle.
func (d *Daemon) processPending() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.mu.Lock()
			due := d.pendingSync && time.Since(d.lastChange) >= d.config.DebounceInterval
			if due {
				d.pendingSync = false
			}
			d.mu.Unlock()
			if !due {
				continue
			}

			d.config.Logger.Printf("Archive changed, running sync cycle")
			if _, err := d.syncer.RunSyncCycle(d.ctx); err != nil {
				// A cycle already in flight covers the change; other
				// failures wait for the next change or manual sync.
				d.config.Logger.Printf("WARNING: sync cycle failed: %v", err)
			}

			// The cycle's own push phase writes into the watched
			// folder; discard the events it generated (including
			// stragglers still in flight) so it doesn't retrigger
			// itself.
			d.mu.Lock()
			d.pendingSync = false
			d.suppressUntil = time.Now().Add(2 * d.config.DebounceInterval)
			d.mu.Unlock()
		}
	}
}
