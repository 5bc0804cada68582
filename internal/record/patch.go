package record

// ReportPatch is a tagged set of field updates applied atomically to a
// report. Nil fields are left untouched. This replaces implicit
// object-merge updates: every updatable field is named here.
type ReportPatch struct {
	ProjectName   *string
	ProjectNumber *string
	ReportNumber  *string
	VisitDate     *string
	VisitTime     *string
	Location      *string
	Author        *string
	Inspector     *string
	Status        *ReportStatus
}

// Apply writes the set fields onto the report. The caller is responsible
// for persisting and for refreshing lastUpdated (Touch).
func (p ReportPatch) Apply(r *Report) {
	if p.ProjectName != nil {
		r.ProjectName = *p.ProjectName
	}
	if p.ProjectNumber != nil {
		r.ProjectNumber = *p.ProjectNumber
	}
	if p.ReportNumber != nil {
		r.ReportNumber = *p.ReportNumber
	}
	if p.VisitDate != nil {
		r.VisitDate = *p.VisitDate
	}
	if p.VisitTime != nil {
		r.VisitTime = *p.VisitTime
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	if p.Author != nil {
		r.Author = *p.Author
	}
	if p.Inspector != nil {
		r.Inspector = *p.Inspector
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

// ModulePatch is a tagged set of field updates for a text module.
type ModulePatch struct {
	Category *string
	Content  *string
}

// Apply writes the set fields onto the module.
func (p ModulePatch) Apply(m *Module) {
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// Status returns a pointer to st, for building patches.
func Status(st ReportStatus) *ReportStatus {
	return &st
}
