package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestReportBlobNames(t *testing.T) {
	name := ReportBlobName("abc-123")
	if name != "report_abc-123.json" {
		t.Errorf("unexpected blob name: %s", name)
	}

	id, err := ReportIDFromBlobName(name)
	if err != nil {
		t.Fatalf("ReportIDFromBlobName failed: %v", err)
	}
	if id != "abc-123" {
		t.Errorf("round trip lost the id: %s", id)
	}

	bad := []string{"modules_v1.json", "report_.json", "report_abc", "abc.json"}
	for _, name := range bad {
		if _, err := ReportIDFromBlobName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestDirArchiveRoundTrip(t *testing.T) {
	a, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	ctx := context.Background()

	if err := a.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if _, err := a.Get(ctx, "missing.json"); !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	payload := []byte(`{"id":"r1"}`)
	if err := a.Put(ctx, ReportBlobName("r1"), payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := a.Get(ctx, ReportBlobName("r1"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("content differs: %s", got)
	}

	// Put is create-or-update.
	if err := a.Put(ctx, ReportBlobName("r1"), []byte(`{"id":"r1","v":2}`)); err != nil {
		t.Fatalf("overwrite Put failed: %v", err)
	}
	got, _ = a.Get(ctx, ReportBlobName("r1"))
	if string(got) != `{"id":"r1","v":2}` {
		t.Error("overwrite did not replace content")
	}
}

func TestDirArchiveList(t *testing.T) {
	a, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := a.Put(ctx, ReportBlobName(id), []byte("{}")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := a.Put(ctx, ModulesBlobName, []byte("[]")); err != nil {
		t.Fatalf("Put modules failed: %v", err)
	}

	names, err := a.List(ctx, ReportBlobPrefix)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("expected 3 report blobs, got %v", names)
	}
	for _, name := range names {
		if _, err := ReportIDFromBlobName(name); err != nil {
			t.Errorf("listed non-report blob %q under report prefix", name)
		}
	}
}

func TestMemoryArchiveFailureInjection(t *testing.T) {
	a := NewMemory()
	ctx := context.Background()

	if err := a.Put(ctx, "x.json", []byte("1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	boom := fmt.Errorf("injected failure")
	a.FailGet = func(name string) error {
		if name == "x.json" {
			return boom
		}
		return nil
	}
	if _, err := a.Get(ctx, "x.json"); !errors.Is(err, boom) {
		t.Errorf("expected injected failure, got %v", err)
	}

	a.FailGet = nil
	if _, err := a.Get(ctx, "x.json"); err != nil {
		t.Errorf("Get should succeed after clearing hook: %v", err)
	}

	a.FailPut = func(name string) error { return boom }
	if err := a.Put(ctx, "y.json", []byte("2")); !errors.Is(err, boom) {
		t.Errorf("expected injected put failure, got %v", err)
	}
	if a.Len() != 1 {
		t.Errorf("failed Put must not store the blob, have %d", a.Len())
	}
}
