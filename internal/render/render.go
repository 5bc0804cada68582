// Package render produces downloadable documents from fully-resolved
// reports. Rendering consumes a report and never modifies it; it has no
// sync involvement.
package render

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/sitewerk/sitesync/internal/record"
)

// Renderer turns one report into a file's contents.
type Renderer interface {
	// Render produces the document bytes for the report.
	Render(ctx context.Context, r *record.Report) ([]byte, error)

	// Extension returns the file extension for rendered output,
	// without the dot.
	Extension() string
}

// Text renders a plain-text summary of a report.
type Text struct{}

// NewText creates a plain-text renderer.
func NewText() *Text {
	return &Text{}
}

// Extension implements Renderer.
func (t *Text) Extension() string {
	return "txt"
}

var textTemplate = template.Must(template.New("report").Parse(`SITE INSPECTION REPORT {{.ReportNumber}}
Project: {{.ProjectName}}{{if .ProjectNumber}} ({{.ProjectNumber}}){{end}}
Status: {{.Status}}
Visit: {{.VisitDate}} {{.VisitTime}}
Location: {{.Location}}
Author: {{.Author}}
Inspector: {{.Inspector}}

DISTRIBUTION
{{- range .Distribution}}
- {{.Name}}{{if .Company}}, {{.Company}}{{end}}{{if .Role}} ({{.Role}}){{end}}{{if .IsPresent}} [present]{{end}}
{{- else}}
(none)
{{- end}}

DEVIATIONS
{{- range $i, $d := .Deviations}}
{{$i}}. [{{$d.Severity}}] {{$d.Text}}
{{- if $d.Location}}
   Location: {{$d.Location}}
{{- end}}
{{- if $d.Responsible}}
   Responsible: {{$d.Responsible}}
{{- end}}
{{- if $d.ActionStatus}}
   Action: {{$d.ActionStatus}}
{{- end}}
{{- if $d.Photo}}
   Photo: attached ({{len $d.Photo}} bytes)
{{- end}}
{{- else}}
(none)
{{- end}}
`))

// Render implements Renderer.
func (t *Text) Render(ctx context.Context, r *record.Report) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("cannot render invalid report: %w", err)
	}

	var buf bytes.Buffer
	if err := textTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("failed to render report %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}
