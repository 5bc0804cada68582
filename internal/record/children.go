package record

import "fmt"

// Child mutation is always addressed by child id, never by position.
// Concurrent UI edits may reorder the list; positional surgery would
// target the wrong element after a reorder.

// AppendDeviation adds a deviation to the end of the report's list.
// An empty deviation id gets a fresh one assigned.
func (r *Report) AppendDeviation(d Deviation) {
	if d.ID == "" {
		d.ID = newChildID()
	}
	r.Deviations = append(r.Deviations, d)
}

// ReplaceDeviation swaps the deviation with the same id for the given
// one, keeping its position in the sequence.
func (r *Report) ReplaceDeviation(d Deviation) error {
	for i := range r.Deviations {
		if r.Deviations[i].ID == d.ID {
			r.Deviations[i] = d
			return nil
		}
	}
	return fmt.Errorf("deviation %s not found in report %s", d.ID, r.ID)
}

// RemoveDeviation deletes the deviation with the given id.
// Removing an absent id is a no-op.
func (r *Report) RemoveDeviation(id string) {
	for i := range r.Deviations {
		if r.Deviations[i].ID == id {
			r.Deviations = append(r.Deviations[:i], r.Deviations[i+1:]...)
			return
		}
	}
}

// Deviation returns the deviation with the given id, or nil.
func (r *Report) Deviation(id string) *Deviation {
	for i := range r.Deviations {
		if r.Deviations[i].ID == id {
			return &r.Deviations[i]
		}
	}
	return nil
}

// AppendRecipient adds a recipient to the end of the distribution list.
// An empty recipient id gets a fresh one assigned.
func (r *Report) AppendRecipient(rcpt Recipient) {
	if rcpt.ID == "" {
		rcpt.ID = newChildID()
	}
	r.Distribution = append(r.Distribution, rcpt)
}

// ReplaceRecipient swaps the recipient with the same id for the given
// one, keeping its position in the sequence.
func (r *Report) ReplaceRecipient(rcpt Recipient) error {
	for i := range r.Distribution {
		if r.Distribution[i].ID == rcpt.ID {
			r.Distribution[i] = rcpt
			return nil
		}
	}
	return fmt.Errorf("recipient %s not found in report %s", rcpt.ID, r.ID)
}

// RemoveRecipient deletes the recipient with the given id.
// Removing an absent id is a no-op.
func (r *Report) RemoveRecipient(id string) {
	for i := range r.Distribution {
		if r.Distribution[i].ID == id {
			r.Distribution = append(r.Distribution[:i], r.Distribution[i+1:]...)
			return
		}
	}
}

// Recipient returns the recipient with the given id, or nil.
func (r *Report) Recipient(id string) *Recipient {
	for i := range r.Distribution {
		if r.Distribution[i].ID == id {
			return &r.Distribution[i]
		}
	}
	return nil
}
