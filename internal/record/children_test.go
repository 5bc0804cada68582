package record

import "testing"

func sampleReport() *Report {
	r := NewReport("Test Project")
	r.Deviations = []Deviation{
		{ID: "d1", Text: "first", Severity: SeverityLow},
		{ID: "d2", Text: "second", Severity: SeverityHigh},
		{ID: "d3", Text: "third", Severity: SeverityMedium},
	}
	r.Distribution = []Recipient{
		{ID: "p1", Name: "Anna"},
		{ID: "p2", Name: "Ben"},
	}
	return r
}

func TestReplaceDeviationKeepsPosition(t *testing.T) {
	r := sampleReport()

	if err := r.ReplaceDeviation(Deviation{ID: "d2", Text: "patched", Severity: SeverityCritical}); err != nil {
		t.Fatalf("ReplaceDeviation failed: %v", err)
	}
	if r.Deviations[1].Text != "patched" || r.Deviations[1].Severity != SeverityCritical {
		t.Errorf("deviation not replaced in place: %+v", r.Deviations[1])
	}
	if r.Deviations[0].ID != "d1" || r.Deviations[2].ID != "d3" {
		t.Error("siblings were disturbed")
	}

	if err := r.ReplaceDeviation(Deviation{ID: "missing"}); err == nil {
		t.Error("expected error replacing unknown deviation")
	}
}

func TestRemoveDeviation(t *testing.T) {
	r := sampleReport()

	r.RemoveDeviation("d2")
	if len(r.Deviations) != 2 {
		t.Fatalf("expected 2 deviations, got %d", len(r.Deviations))
	}
	if r.Deviations[0].ID != "d1" || r.Deviations[1].ID != "d3" {
		t.Errorf("wrong deviations remain: %+v", r.Deviations)
	}

	// Absent id is a no-op.
	r.RemoveDeviation("d2")
	if len(r.Deviations) != 2 {
		t.Error("removing an absent deviation changed the list")
	}
}

func TestAppendDeviationAssignsID(t *testing.T) {
	r := sampleReport()
	r.AppendDeviation(Deviation{Text: "new finding"})

	last := r.Deviations[len(r.Deviations)-1]
	if last.ID == "" {
		t.Error("appended deviation got no id")
	}
	if r.Deviation(last.ID) == nil {
		t.Error("appended deviation not addressable by id")
	}
}

func TestRecipientOperations(t *testing.T) {
	r := sampleReport()

	if err := r.ReplaceRecipient(Recipient{ID: "p1", Name: "Anna K.", IsPresent: true}); err != nil {
		t.Fatalf("ReplaceRecipient failed: %v", err)
	}
	if got := r.Recipient("p1"); got == nil || got.Name != "Anna K." || !got.IsPresent {
		t.Errorf("recipient not replaced: %+v", got)
	}

	r.RemoveRecipient("p2")
	if len(r.Distribution) != 1 {
		t.Fatalf("expected 1 recipient, got %d", len(r.Distribution))
	}

	r.AppendRecipient(Recipient{Name: "Clara"})
	if r.Distribution[1].ID == "" {
		t.Error("appended recipient got no id")
	}
}

func TestReportPatchApply(t *testing.T) {
	r := sampleReport()
	orig := r.ProjectNumber

	ReportPatch{
		ProjectName: String("Renamed"),
		Status:      Status(StatusFinal),
	}.Apply(r)

	if r.ProjectName != "Renamed" {
		t.Errorf("projectName not patched: %q", r.ProjectName)
	}
	if r.Status != StatusFinal {
		t.Errorf("status not patched: %q", r.Status)
	}
	if r.ProjectNumber != orig {
		t.Error("unset patch field overwrote projectNumber")
	}
}

func TestModulePatchApply(t *testing.T) {
	m := NewModule("Safety", "old")
	ModulePatch{Content: String("new")}.Apply(m)
	if m.Content != "new" || m.Category != "Safety" {
		t.Errorf("module patch wrong: %+v", m)
	}
}
