package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitewerk/sitesync/internal/archive"
	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/store"
)

func setupTest(t *testing.T) (*Syncer, *store.Store, *archive.MemoryArchive) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	arc := archive.NewMemory()
	s := New(st, arc, log.New(io.Discard, "", 0))
	t.Cleanup(s.Disconnect)
	return s, st, arc
}

func connect(t *testing.T, s *Syncer) {
	t.Helper()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
}

func putRemoteReport(t *testing.T, arc *archive.MemoryArchive, r *record.Report) {
	t.Helper()
	data, err := record.EncodeReport(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := arc.Put(context.Background(), archive.ReportBlobName(r.ID), data); err != nil {
		t.Fatalf("archive put failed: %v", err)
	}
}

func remoteReport(t *testing.T, arc *archive.MemoryArchive, id string) *record.Report {
	t.Helper()
	data, err := arc.Get(context.Background(), archive.ReportBlobName(id))
	if err != nil {
		t.Fatalf("archive get failed: %v", err)
	}
	r, err := record.DecodeReport(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return r
}

func TestConnectHandshakeFailure(t *testing.T) {
	s, _, arc := setupTest(t)
	arc.FailPing = fmt.Errorf("unauthorized")

	err := s.Connect(context.Background())
	if err == nil {
		t.Fatal("expected handshake failure")
	}

	st := s.Status()
	if st.State != Disconnected {
		t.Errorf("state after failed connect: %v", st.State)
	}

	// Manual retry works after the fault clears; no automatic retry ran.
	arc.FailPing = nil
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if s.Status().State != Connected {
		t.Error("expected Connected after manual retry")
	}
}

func TestSyncCycleRequiresConnection(t *testing.T) {
	s, _, _ := setupTest(t)

	if _, err := s.RunSyncCycle(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectRunsInitialCycle(t *testing.T) {
	s, st, arc := setupTest(t)

	remote := &record.Report{ID: "r1", ProjectName: "From Remote", Status: record.StatusDraft, LastUpdated: 1000}
	putRemoteReport(t, arc, remote)

	connect(t, s)

	if _, err := st.GetReport("r1"); err != nil {
		t.Errorf("initial cycle did not adopt remote report: %v", err)
	}
}

func TestLastWriteWinsEndToEnd(t *testing.T) {
	s, st, arc := setupTest(t)

	local := &record.Report{ID: "r1", ProjectName: "P", Status: record.StatusDraft, LastUpdated: 1000}
	if err := st.UpsertReport(local); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	remote := &record.Report{ID: "r1", ProjectName: "P", Status: record.StatusFinal, LastUpdated: 2000}
	putRemoteReport(t, arc, remote)

	connect(t, s)

	got, err := st.GetReport("r1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Status != record.StatusFinal {
		t.Errorf("expected Final, got %q", got.Status)
	}
	if got.LastUpdated != 2000 {
		t.Errorf("expected lastUpdated 2000, got %d", got.LastUpdated)
	}
}

func TestLocalOnlyRecordsReachRemote(t *testing.T) {
	s, st, arc := setupTest(t)

	m := record.NewModule("Safety", "Check scaffolding anchors.")
	if err := st.SaveModule(m); err != nil {
		t.Fatalf("SaveModule failed: %v", err)
	}

	connect(t, s)

	data, err := arc.Get(context.Background(), archive.ModulesBlobName)
	if err != nil {
		t.Fatalf("modules blob missing after cycle: %v", err)
	}
	var mods []*record.Module
	if err := json.Unmarshal(data, &mods); err != nil {
		t.Fatalf("modules blob corrupt: %v", err)
	}
	if len(mods) != 1 || mods[0].ID != m.ID {
		t.Errorf("modules blob does not contain m1: %+v", mods)
	}
}

func TestIdempotentResync(t *testing.T) {
	s, st, arc := setupTest(t)

	r := record.NewReport("Stable")
	if err := st.SaveReport(r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	putRemoteReport(t, arc, &record.Report{ID: "r2", ProjectName: "Remote", Status: record.StatusDraft, LastUpdated: 500})

	connect(t, s)

	stats, err := s.RunSyncCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if stats.ReportsAdopted != 0 || stats.ModulesAdopted != 0 {
		t.Errorf("second cycle adopted records: %+v", stats)
	}

	// A third run is equally a no-op.
	stats, err = s.RunSyncCycle(context.Background())
	if err != nil {
		t.Fatalf("third cycle failed: %v", err)
	}
	if stats.ReportsAdopted != 0 {
		t.Errorf("third cycle adopted records: %+v", stats)
	}
}

func TestPartialPullFailureIsolation(t *testing.T) {
	s, st, arc := setupTest(t)

	for _, id := range []string{"a", "b", "c"} {
		putRemoteReport(t, arc, &record.Report{ID: id, ProjectName: "P-" + id, Status: record.StatusDraft, LastUpdated: 100})
	}
	arc.FailGet = func(name string) error {
		if name == archive.ReportBlobName("b") {
			return fmt.Errorf("injected fetch failure")
		}
		return nil
	}

	connect(t, s)

	for _, id := range []string{"a", "c"} {
		if _, err := st.GetReport(id); err != nil {
			t.Errorf("report %s should have merged despite b failing: %v", id, err)
		}
	}
	if _, err := st.GetReport("b"); !errors.Is(err, store.ErrNotFound) {
		t.Error("failed report must not appear locally")
	}
}

func TestTotalUnreachabilityAbortsCycle(t *testing.T) {
	s, st, arc := setupTest(t)
	connect(t, s)

	putRemoteReport(t, arc, &record.Report{ID: "r9", ProjectName: "Late", Status: record.StatusDraft, LastUpdated: 100})
	arc.FailList = fmt.Errorf("network down")

	if _, err := s.RunSyncCycle(context.Background()); err == nil {
		t.Fatal("expected cycle abort on list failure")
	}
	// Local store untouched by the aborted cycle.
	if _, err := st.GetReport("r9"); !errors.Is(err, store.ErrNotFound) {
		t.Error("aborted cycle wrote to the local store")
	}

	// Busy flag is clear; the next cycle runs once the fault clears.
	arc.FailList = nil
	if _, err := s.RunSyncCycle(context.Background()); err != nil {
		t.Errorf("cycle after recovery failed: %v", err)
	}
}

func TestReentrancyGuard(t *testing.T) {
	s, _, arc := setupTest(t)
	connect(t, s)

	gate := make(chan struct{})
	arc.FailGet = func(name string) error {
		<-gate
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.RunSyncCycle(context.Background())
		done <- err
	}()

	// Wait for the first cycle to reach the blocked pull.
	deadline := time.After(2 * time.Second)
	for {
		if s.Status().Syncing {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first cycle never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := s.RunSyncCycle(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Errorf("first cycle failed: %v", err)
	}
	if s.Status().Syncing {
		t.Error("busy flag not cleared after cycle")
	}
}

func TestDeletedReportReappears(t *testing.T) {
	// Documents the accepted limitation: local delete pushes no
	// tombstone, so a newer remote copy is re-adopted.
	s, st, arc := setupTest(t)

	r2 := &record.Report{ID: "r2", ProjectName: "Comes Back", Status: record.StatusDraft, LastUpdated: 1000}
	if err := st.UpsertReport(r2); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	newer := &record.Report{ID: "r2", ProjectName: "Comes Back", Status: record.StatusFinal, LastUpdated: record.NowMillis() + 60_000}
	putRemoteReport(t, arc, newer)

	connect(t, s)

	if err := s.DeleteReport(context.Background(), "r2"); err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}
	if _, err := st.GetReport("r2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("report should be gone locally before the cycle")
	}

	if _, err := s.RunSyncCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	got, err := st.GetReport("r2")
	if err != nil {
		t.Fatalf("expected r2 to reappear from the archive: %v", err)
	}
	if got.Status != record.StatusFinal {
		t.Errorf("reappeared copy should be the remote one: %+v", got)
	}
}

func TestMutationPushesViaOutbox(t *testing.T) {
	s, _, arc := setupTest(t)
	connect(t, s)

	r := record.NewReport("Outbox Push")
	if err := s.SaveReport(context.Background(), r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	waitFor(t, func() bool {
		_, err := arc.Get(context.Background(), archive.ReportBlobName(r.ID))
		return err == nil
	}, "report blob never reached the archive")

	got := remoteReport(t, arc, r.ID)
	if got.ProjectName != "Outbox Push" {
		t.Errorf("pushed content differs: %+v", got)
	}
}

func TestMutationWhileDisconnectedStaysLocal(t *testing.T) {
	s, st, arc := setupTest(t)

	r := record.NewReport("Offline Edit")
	if err := s.SaveReport(context.Background(), r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	if _, err := st.GetReport(r.ID); err != nil {
		t.Errorf("offline save must hit the local store: %v", err)
	}
	if arc.Len() != 0 {
		t.Error("disconnected mutation must not touch the archive")
	}
}

func TestOutboxSwallowsPushFailures(t *testing.T) {
	s, st, arc := setupTest(t)
	connect(t, s)

	arc.FailPut = func(name string) error { return fmt.Errorf("injected push failure") }

	r := record.NewReport("Unpushable")
	if err := s.SaveReport(context.Background(), r); err != nil {
		t.Fatalf("SaveReport must succeed despite push failure: %v", err)
	}
	if _, err := st.GetReport(r.ID); err != nil {
		t.Errorf("local save must survive the push failure: %v", err)
	}

	// Once the archive recovers, a full cycle pushes the record.
	arc.FailPut = nil
	if _, err := s.RunSyncCycle(context.Background()); err != nil {
		t.Fatalf("recovery cycle failed: %v", err)
	}
	if _, err := arc.Get(context.Background(), archive.ReportBlobName(r.ID)); err != nil {
		t.Errorf("recovery cycle did not push the record: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
