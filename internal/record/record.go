// Package record provides the data structures for sitesync collections.
//
// Two independent collections exist: site reports and reusable text
// modules. Every record carries an id assigned at creation time and a
// lastUpdated timestamp in milliseconds since epoch. The timestamp is
// the sole conflict-resolution signal during sync: the copy with the
// greater lastUpdated fully replaces the other.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	StatusDraft ReportStatus = "Draft"
	StatusFinal ReportStatus = "Final"
)

// Severity classifies a deviation.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ActionStatus indicates how a deviation is being handled.
type ActionStatus string

const (
	ActionOngoing   ActionStatus = "laufend"
	ActionImmediate ActionStatus = "sofort"
)

// Recipient is a member of a report's distribution list.
// Recipients are owned by their parent report and are not independently
// addressable in storage or sync.
type Recipient struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	IsPresent bool   `json:"isPresent"`
}

// Deviation is a single finding within a report. The id is unique within
// the parent report only. Photo holds raw image bytes and rides inline
// in the report document (base64 in JSON).
type Deviation struct {
	ID           string       `json:"id"`
	Photo        []byte       `json:"photo,omitempty"`
	Text         string       `json:"textModule"`
	Location     string       `json:"location,omitempty"`
	Severity     Severity     `json:"severity"`
	Responsible  string       `json:"responsible,omitempty"`
	ActionStatus ActionStatus `json:"actionStatus,omitempty"`
}

// Report is a site inspection report.
//
// LastUpdated is refreshed on every local write, including writes that
// only touch a nested deviation or recipient. The parent's timestamp
// is what sync compares, never per-child timestamps.
type Report struct {
	ID            string       `json:"id"`
	ProjectName   string       `json:"projectName"`
	ProjectNumber string       `json:"projectNumber,omitempty"`
	ReportNumber  string       `json:"reportNumber,omitempty"`
	VisitDate     string       `json:"visitDate,omitempty"`
	VisitTime     string       `json:"visitTime,omitempty"`
	Location      string       `json:"location,omitempty"`
	Author        string       `json:"author,omitempty"`
	Inspector     string       `json:"inspector,omitempty"`
	Distribution  []Recipient  `json:"distributionList,omitempty"`
	Deviations    []Deviation  `json:"deviations,omitempty"`
	Status        ReportStatus `json:"status"`
	LastUpdated   int64        `json:"lastUpdated"`
}

// Module is a reusable text snippet. Reports never hold a live reference
// to a module; inserting one copies its content into a deviation's text.
type Module struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Content     string `json:"content"`
	LastUpdated int64  `json:"lastUpdated"`
}

// NewReport creates a draft report with a fresh id and current timestamp.
func NewReport(projectName string) *Report {
	return &Report{
		ID:          uuid.NewString(),
		ProjectName: projectName,
		Status:      StatusDraft,
		LastUpdated: NowMillis(),
	}
}

// NewModule creates a module with a fresh id and current timestamp.
func NewModule(category, content string) *Module {
	return &Module{
		ID:          uuid.NewString(),
		Category:    category,
		Content:     content,
		LastUpdated: NowMillis(),
	}
}

// newChildID generates an id for an embedded child entity.
func newChildID() string {
	return uuid.NewString()
}

// NowMillis returns the current wall-clock time in milliseconds since epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Touch refreshes the report's lastUpdated to the current time.
// Call it on every local mutation, including child edits.
func (r *Report) Touch() {
	r.LastUpdated = NowMillis()
}

// Touch refreshes the module's lastUpdated to the current time.
func (m *Module) Touch() {
	m.LastUpdated = NowMillis()
}

// Validate checks the report for required fields.
func (r *Report) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.ProjectName == "" {
		return fmt.Errorf("projectName is required")
	}
	switch r.Status {
	case StatusDraft, StatusFinal:
	default:
		return fmt.Errorf("status must be %q or %q (got %q)", StatusDraft, StatusFinal, r.Status)
	}
	for i, d := range r.Deviations {
		if d.ID == "" {
			return fmt.Errorf("deviation %d: id is required", i)
		}
	}
	for i, rcpt := range r.Distribution {
		if rcpt.ID == "" {
			return fmt.Errorf("recipient %d: id is required", i)
		}
	}
	return nil
}

// Validate checks the module for required fields.
func (m *Module) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.Category == "" {
		return fmt.Errorf("category is required")
	}
	return nil
}

// EncodeReport marshals a report for blob storage.
func EncodeReport(r *Report) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report %s: %w", r.ID, err)
	}
	return data, nil
}

// DecodeReport parses a report blob and validates it.
func DecodeReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report blob: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report blob: %w", err)
	}
	return &r, nil
}

// EncodeModules marshals the whole modules collection for blob storage.
// The modules collection travels as a single blob, mirroring its small size.
func EncodeModules(mods []*Module) ([]byte, error) {
	if mods == nil {
		mods = []*Module{}
	}
	data, err := json.Marshal(mods)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal modules: %w", err)
	}
	return data, nil
}

// DecodeModules parses a modules collection blob. Invalid entries are
// dropped rather than failing the whole blob.
func DecodeModules(data []byte) ([]*Module, error) {
	var mods []*Module
	if err := json.Unmarshal(data, &mods); err != nil {
		return nil, fmt.Errorf("failed to parse modules blob: %w", err)
	}
	valid := mods[:0]
	for _, m := range mods {
		if m == nil || m.Validate() != nil {
			continue
		}
		valid = append(valid, m)
	}
	return valid, nil
}
