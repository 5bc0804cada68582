package render

import (
	"context"
	"strings"
	"testing"

	"github.com/sitewerk/sitesync/internal/record"
)

func TestTextRender(t *testing.T) {
	r := record.NewReport("Harbor Pier")
	r.ReportNumber = "2026-014"
	r.VisitDate = "2026-08-28"
	r.Inspector = "K. Larsen"
	r.AppendRecipient(record.Recipient{Name: "J. Meyer", Company: "Meyer Bau", IsPresent: true})
	r.AppendDeviation(record.Deviation{
		Text:        "Corrosion on support beam",
		Severity:    record.SeverityHigh,
		Responsible: "Meyer Bau",
		Photo:       []byte{1, 2, 3},
	})

	out, err := NewText().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	for _, want := range []string{
		"SITE INSPECTION REPORT 2026-014",
		"Harbor Pier",
		"J. Meyer, Meyer Bau",
		"[present]",
		"[High] Corrosion on support beam",
		"Photo: attached (3 bytes)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered output missing %q:\n%s", want, text)
		}
	}
}

func TestTextRenderEmptySections(t *testing.T) {
	r := record.NewReport("Minimal")
	out, err := NewText().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(string(out), "(none)") {
		t.Error("empty sections should render a placeholder")
	}
}

func TestTextRenderRejectsInvalid(t *testing.T) {
	r := &record.Report{ID: "", ProjectName: "x", Status: record.StatusDraft}
	if _, err := NewText().Render(context.Background(), r); err == nil {
		t.Error("expected error for invalid report")
	}
}
