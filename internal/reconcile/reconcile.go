// Package reconcile implements the merge engine that reconciles a
// pulled remote snapshot against the local record store.
//
// The policy is record-level last-write-wins keyed by each record's
// lastUpdated timestamp (milliseconds since epoch):
//
//   - absent locally            -> adopt the remote record
//   - remote newer than local   -> adopt (full replacement, no field merge)
//   - tie or local newer        -> keep local, no write
//
// A missing timestamp on either side compares as 0, so any timestamped
// record beats an untimestamped one. Each record's outcome depends only
// on its own id's pair of timestamps, never on siblings, so processing
// order is irrelevant and an interrupted merge can simply be re-run:
// already-adopted records tie on the retry and become no-ops.
//
// Records present only locally are not touched here; the orchestrator's
// push phase copies them to the archive.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/store"
)

// Store is the slice of the local store the reconciler needs.
// Upsert must preserve the record's lastUpdated as given.
type Store interface {
	GetReportContext(ctx context.Context, id string) (*record.Report, error)
	UpsertReportContext(ctx context.Context, r *record.Report) error
	GetModuleContext(ctx context.Context, id string) (*record.Module, error)
	UpsertModuleContext(ctx context.Context, m *record.Module) error
}

// Stats summarizes one collection's merge pass.
type Stats struct {
	// Adopted counts remote records written into the local store.
	Adopted int

	// Kept counts records where the local copy won (newer or tie).
	Kept int

	// Failed counts records that could not be compared or written.
	// Failures never abort the pass.
	Failed int
}

// Reconciler merges remote snapshots into the local store.
type Reconciler struct {
	store  Store
	logger *log.Logger
}

// New creates a Reconciler. If logger is nil, a default logger writing
// to stderr is used.
func New(st Store, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	return &Reconciler{store: st, logger: logger}
}

// MergeReports merges a remote report snapshot into the local store.
// Individual record failures are logged and counted but do not stop
// the pass.
func (rc *Reconciler) MergeReports(ctx context.Context, remote []*record.Report) Stats {
	var stats Stats
	for _, rr := range remote {
		if rr == nil {
			continue
		}
		adopted, err := rc.mergeReport(ctx, rr)
		if err != nil {
			rc.logger.Printf("WARNING: failed to merge report %s: %v", rr.ID, err)
			stats.Failed++
			continue
		}
		if adopted {
			stats.Adopted++
		} else {
			stats.Kept++
		}
	}
	return stats
}

// mergeReport decides adopt-or-keep for one remote report.
// The local read happens before the write decision for the same id;
// there is no other mutator during a sync cycle.
func (rc *Reconciler) mergeReport(ctx context.Context, remote *record.Report) (bool, error) {
	local, err := rc.store.GetReportContext(ctx, remote.ID)
	if errors.Is(err, store.ErrNotFound) {
		if err := rc.store.UpsertReportContext(ctx, remote); err != nil {
			return false, fmt.Errorf("adopt failed: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("local lookup failed: %w", err)
	}

	if !remoteWins(remote.LastUpdated, local.LastUpdated) {
		return false, nil
	}
	if err := rc.store.UpsertReportContext(ctx, remote); err != nil {
		return false, fmt.Errorf("adopt failed: %w", err)
	}
	return true, nil
}

// MergeModules merges a remote modules snapshot into the local store.
func (rc *Reconciler) MergeModules(ctx context.Context, remote []*record.Module) Stats {
	var stats Stats
	for _, rm := range remote {
		if rm == nil {
			continue
		}
		adopted, err := rc.mergeModule(ctx, rm)
		if err != nil {
			rc.logger.Printf("WARNING: failed to merge module %s: %v", rm.ID, err)
			stats.Failed++
			continue
		}
		if adopted {
			stats.Adopted++
		} else {
			stats.Kept++
		}
	}
	return stats
}

func (rc *Reconciler) mergeModule(ctx context.Context, remote *record.Module) (bool, error) {
	local, err := rc.store.GetModuleContext(ctx, remote.ID)
	if errors.Is(err, store.ErrNotFound) {
		if err := rc.store.UpsertModuleContext(ctx, remote); err != nil {
			return false, fmt.Errorf("adopt failed: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("local lookup failed: %w", err)
	}

	if !remoteWins(remote.LastUpdated, local.LastUpdated) {
		return false, nil
	}
	if err := rc.store.UpsertModuleContext(ctx, remote); err != nil {
		return false, fmt.Errorf("adopt failed: %w", err)
	}
	return true, nil
}

// remoteWins applies the last-write-wins rule. Ties keep local: the
// local copy is the one the current session is editing, and a tie write
// would be redundant.
func remoteWins(remoteMillis, localMillis int64) bool {
	return remoteMillis > localMillis
}
