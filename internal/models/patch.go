package models

import (
	"time"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// AllocationPatch is a save-allocation request. Only set fields are sent.
// An empty AllocationID creates a new allocation.
type AllocationPatch struct {
	AllocationID string  `json:"allocation_id,omitempty"`
	ResourceID   string  `json:"resource_id,omitempty"`
	ProjectID    *string `json:"project_id,omitempty"`
	Status       *Status `json:"status,omitempty"`
	Effort       *Effort `json:"effort,omitempty"`
	Role         *string `json:"role,omitempty"`
	StartDate    *int64  `json:"start_date,omitempty"`
	EndDate      *int64  `json:"end_date,omitempty"`
}

// IsCreate reports whether the patch creates a new allocation.
func (p AllocationPatch) IsCreate() bool {
	return p.AllocationID == ""
}

// DatePatch builds the patch for a moved or resized allocation.
func DatePatch(allocationID string, start, end time.Time, loc *time.Location) AllocationPatch {
	s, e := EncodeDate(start, loc), EncodeDate(end, loc)
	return AllocationPatch{AllocationID: allocationID, StartDate: &s, EndDate: &e}
}

// Dates decodes the patch dates. Unset dates are returned as the zero time.
func (p AllocationPatch) Dates(loc *time.Location) (start, end time.Time) {
	if p.StartDate != nil {
		start = DecodeDate(*p.StartDate, loc)
	}
	if p.EndDate != nil {
		end = DecodeDate(*p.EndDate, loc)
	}
	return start, end
}

// Apply returns a with the patch fields written over it.
func (p AllocationPatch) Apply(a Allocation, loc *time.Location) Allocation {
	if p.ResourceID != "" {
		a.ResourceID = p.ResourceID
	}
	if p.ProjectID != nil {
		a.ProjectID = StringPtr(*p.ProjectID)
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Effort != nil {
		a.Effort = *p.Effort
	}
	if p.Role != nil {
		a.Role = *p.Role
	}
	start, end := p.Dates(loc)
	if !start.IsZero() {
		a.StartDate = start
	}
	if !end.IsZero() {
		a.EndDate = end
	}
	return a
}

// ValidateCreate checks the fields a new allocation needs.
func (p AllocationPatch) ValidateCreate() error {
	if p.ResourceID == "" {
		return perrors.Invalid("resource_id is required to create an allocation")
	}
	if p.StartDate == nil || p.EndDate == nil {
		return perrors.Invalid("start_date and end_date are required to create an allocation")
	}
	if p.ProjectID == nil && (p.Status == nil || !p.Status.AllowsNoProject()) {
		return perrors.Invalid("project_id or a Hold/Unavailable status is required")
	}
	return nil
}
