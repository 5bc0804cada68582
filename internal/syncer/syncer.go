// Package syncer drives full sync cycles between the local record store
// and the remote blob archive, and owns the connection state machine.
//
// A cycle has four phases: pull the remote snapshot, merge it into the
// local store (last-write-wins per record), re-read the merged store,
// and push every record back so the archive also reflects purely-local
// records and edits. Individual record failures are skipped; only total
// archive unreachability aborts a cycle, before any local write.
//
// Local mutations made through this package additionally enqueue a
// fire-and-forget push on the outbox while connected, keeping the
// archive close to current between cycles.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sitewerk/sitesync/internal/archive"
	"github.com/sitewerk/sitesync/internal/reconcile"
	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/store"
)

var (
	// ErrNotConnected is returned when a sync cycle is requested
	// without a connected archive session.
	ErrNotConnected = errors.New("not connected to remote archive")

	// ErrSyncInProgress is returned when a cycle is requested while
	// another cycle is still running. Cycles never overlap.
	ErrSyncInProgress = errors.New("sync cycle already in progress")

	// ErrAlreadyConnected is returned by Connect on a live session.
	ErrAlreadyConnected = errors.New("already connected")
)

// Syncer orchestrates sync cycles and mediates local mutations.
type Syncer struct {
	store   *store.Store
	archive archive.Archive
	logger  *log.Logger

	reconciler *reconcile.Reconciler
	outbox     *Outbox

	mu       sync.Mutex
	state    ConnState
	syncing  bool
	lastSync time.Time
	lastErr  error
}

// New creates a Syncer over the given store and archive.
// If logger is nil, a default logger writing to stderr is used.
func New(st *store.Store, arc archive.Archive, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	s := &Syncer{
		store:      st,
		archive:    arc,
		logger:     logger,
		reconciler: reconcile.New(st, logger),
		state:      Disconnected,
	}
	s.outbox = NewOutbox(s, logger)
	return s
}

// Status returns a snapshot of the engine state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:    s.state,
		Syncing:  s.syncing,
		LastSync: s.lastSync,
		LastErr:  s.lastErr,
	}
}

// Connect performs the archive handshake and, on success, runs one full
// sync cycle. On failure the state returns to Disconnected and the
// error is surfaced; no retry is scheduled, the caller reconnects
// manually.
func (s *Syncer) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = Connecting
	s.mu.Unlock()

	if err := s.archive.Ping(ctx); err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("archive handshake failed: %w", err)
	}

	s.mu.Lock()
	s.state = Connected
	s.mu.Unlock()
	s.outbox.Start()
	s.logger.Printf("Connected to remote archive")

	if _, err := s.RunSyncCycle(ctx); err != nil {
		// The session stays up; the cycle can be retried.
		s.logger.Printf("WARNING: initial sync cycle failed: %v", err)
		return fmt.Errorf("initial sync cycle failed: %w", err)
	}
	return nil
}

// Disconnect tears down the session. Pending outbox pushes are drained
// before the worker stops. The local store is unaffected.
func (s *Syncer) Disconnect() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	s.state = Disconnected
	s.mu.Unlock()

	s.outbox.Stop()
	s.logger.Printf("Disconnected from remote archive")
}

// RunSyncCycle executes one full pull-merge-push cycle.
//
// Callable only while Connected; a cycle already in flight yields
// ErrSyncInProgress. The busy flag is cleared on every exit path.
func (s *Syncer) RunSyncCycle(ctx context.Context) (CycleStats, error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return CycleStats{}, ErrNotConnected
	}
	if s.syncing {
		s.mu.Unlock()
		return CycleStats{}, ErrSyncInProgress
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	stats, err := s.runCycle(ctx)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.lastSync = time.Now()
	}
	s.mu.Unlock()

	return stats, err
}

func (s *Syncer) runCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	s.logger.Printf("Starting sync cycle")

	// Pull phase. A failure to enumerate the archive is a transient
	// connectivity failure: abort before touching the local store.
	remoteModules, err := s.pullModules(ctx)
	if err != nil {
		return stats, fmt.Errorf("pull phase failed: %w", err)
	}
	remoteReports, pullFailed, err := s.pullReports(ctx)
	if err != nil {
		return stats, fmt.Errorf("pull phase failed: %w", err)
	}
	stats.PulledReports = len(remoteReports)
	stats.PullFailed = pullFailed

	// Merge phase.
	repStats := s.reconciler.MergeReports(ctx, remoteReports)
	modStats := s.reconciler.MergeModules(ctx, remoteModules)
	stats.ReportsAdopted = repStats.Adopted
	stats.ModulesAdopted = modStats.Adopted

	// Read-back: the local store now holds the merged result.
	reports, err := s.store.ListReportsContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("read-back failed: %w", err)
	}
	modules, err := s.store.ListModulesContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("read-back failed: %w", err)
	}

	// Push phase: one blob per report plus the modules blob. Individual
	// failures are logged and skipped.
	for _, r := range reports {
		if err := s.pushReport(ctx, r); err != nil {
			s.logger.Printf("WARNING: failed to push report %s: %v", r.ID, err)
			stats.PushFailed++
			continue
		}
		stats.PushedBlobs++
	}
	if err := s.pushModules(ctx, modules); err != nil {
		s.logger.Printf("WARNING: failed to push modules blob: %v", err)
		stats.PushFailed++
	} else {
		stats.PushedBlobs++
	}

	s.logger.Printf("Sync cycle complete: pulled=%d (failed=%d), adopted=%d reports + %d modules, pushed=%d (failed=%d)",
		stats.PulledReports, stats.PullFailed,
		stats.ReportsAdopted, stats.ModulesAdopted,
		stats.PushedBlobs, stats.PushFailed)
	return stats, nil
}

// pullModules fetches the modules collection blob. An absent blob is an
// empty collection, not an error.
func (s *Syncer) pullModules(ctx context.Context) ([]*record.Module, error) {
	data, err := s.archive.Get(ctx, archive.ModulesBlobName)
	if errors.Is(err, archive.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch modules blob: %w", err)
	}

	mods, err := record.DecodeModules(data)
	if err != nil {
		// A corrupt blob is skipped, not fatal: the push phase will
		// rewrite it from the local collection.
		s.logger.Printf("WARNING: skipping corrupt modules blob: %v", err)
		return nil, nil
	}
	return mods, nil
}

// pullReports enumerates and fetches every report blob. Individual
// fetch failures are logged and skipped; an enumeration failure aborts.
func (s *Syncer) pullReports(ctx context.Context) ([]*record.Report, int, error) {
	names, err := s.archive.List(ctx, archive.ReportBlobPrefix)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list report blobs: %w", err)
	}

	var reports []*record.Report
	failed := 0
	for _, name := range names {
		if _, err := archive.ReportIDFromBlobName(name); err != nil {
			continue
		}
		data, err := s.archive.Get(ctx, name)
		if err != nil {
			s.logger.Printf("WARNING: failed to fetch %s: %v", name, err)
			failed++
			continue
		}
		r, err := record.DecodeReport(data)
		if err != nil {
			s.logger.Printf("WARNING: skipping corrupt blob %s: %v", name, err)
			failed++
			continue
		}
		reports = append(reports, r)
	}
	return reports, failed, nil
}

func (s *Syncer) pushReport(ctx context.Context, r *record.Report) error {
	data, err := record.EncodeReport(r)
	if err != nil {
		return err
	}
	return s.archive.Put(ctx, archive.ReportBlobName(r.ID), data)
}

func (s *Syncer) pushModules(ctx context.Context, mods []*record.Module) error {
	data, err := record.EncodeModules(mods)
	if err != nil {
		return err
	}
	return s.archive.Put(ctx, archive.ModulesBlobName, data)
}

// connected reports whether a session is live.
func (s *Syncer) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Connected
}

// SaveReport persists a local report edit and stages a push.
func (s *Syncer) SaveReport(ctx context.Context, r *record.Report) error {
	if err := s.store.SaveReportContext(ctx, r); err != nil {
		return err
	}
	if s.connected() {
		s.outbox.EnqueueReport(r.ID)
	}
	return nil
}

// DeleteReport removes a report locally. No tombstone reaches the
// archive: the remote copy survives and a later cycle re-adopts it if
// it is still newer there.
func (s *Syncer) DeleteReport(ctx context.Context, id string) error {
	return s.store.DeleteReportContext(ctx, id)
}

// SaveModule persists a local module edit and stages a modules push.
func (s *Syncer) SaveModule(ctx context.Context, m *record.Module) error {
	if err := s.store.SaveModuleContext(ctx, m); err != nil {
		return err
	}
	if s.connected() {
		s.outbox.EnqueueModules()
	}
	return nil
}

// DeleteModule removes a module locally and stages a modules push so
// the collection blob stops carrying the deleted entry.
func (s *Syncer) DeleteModule(ctx context.Context, id string) error {
	if err := s.store.DeleteModuleContext(ctx, id); err != nil {
		return err
	}
	if s.connected() {
		s.outbox.EnqueueModules()
	}
	return nil
}
