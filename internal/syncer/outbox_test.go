package syncer

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/sitewerk/sitesync/internal/archive"
	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/store"
)

func setupOutbox(t *testing.T) (*Outbox, *store.Store, *archive.MemoryArchive) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	arc := archive.NewMemory()
	s := New(st, arc, log.New(io.Discard, "", 0))
	return s.outbox, st, arc
}

func TestStopDrainsStagedPushes(t *testing.T) {
	o, st, arc := setupOutbox(t)

	var ids []string
	for i := 0; i < 5; i++ {
		r := record.NewReport("Drained")
		if err := st.SaveReport(r); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
		ids = append(ids, r.ID)
	}

	o.Start()
	for _, id := range ids {
		o.EnqueueReport(id)
	}
	o.Stop()

	for _, id := range ids {
		if _, err := arc.Get(context.Background(), archive.ReportBlobName(id)); err != nil {
			t.Errorf("staged push for %s not drained before Stop returned: %v", id, err)
		}
	}
}

func TestEnqueueAfterStopIsDropped(t *testing.T) {
	o, st, arc := setupOutbox(t)

	r := record.NewReport("Dropped")
	if err := st.SaveReport(r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	o.Start()
	o.Stop()

	// Must not panic or push.
	o.EnqueueReport(r.ID)
	if arc.Len() != 0 {
		t.Error("enqueue after Stop still pushed")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	o, _, _ := setupOutbox(t)

	o.Start()
	o.Start()
	o.Stop()
	o.Stop()
}

func TestEnqueueDeletedReportIsNoop(t *testing.T) {
	o, _, arc := setupOutbox(t)

	o.Start()
	o.EnqueueReport("never-existed")
	o.Stop()

	if arc.Len() != 0 {
		t.Error("push of a missing record should be skipped")
	}
}

func TestModulesPushWritesWholeCollection(t *testing.T) {
	o, st, arc := setupOutbox(t)

	for _, cat := range []string{"Safety", "Quality"} {
		if err := st.SaveModule(record.NewModule(cat, "text")); err != nil {
			t.Fatalf("SaveModule failed: %v", err)
		}
	}

	o.Start()
	o.EnqueueModules()
	o.Stop()

	data, err := arc.Get(context.Background(), archive.ModulesBlobName)
	if err != nil {
		t.Fatalf("modules blob missing: %v", err)
	}
	mods, err := record.DecodeModules(data)
	if err != nil {
		t.Fatalf("modules blob corrupt: %v", err)
	}
	if len(mods) != 2 {
		t.Errorf("expected 2 modules in blob, got %d", len(mods))
	}
}
