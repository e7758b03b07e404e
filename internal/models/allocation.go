// Package models defines the resources, projects and allocations shown on the timeline.
package models

import (
	"encoding/json"
	"time"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// Status is the state of an allocation.
type Status string

const (
	StatusActive      Status = "Active"
	StatusHold        Status = "Hold"
	StatusUnavailable Status = "Unavailable"
)

// ValidStatuses contains all valid allocation statuses.
var ValidStatuses = []Status{StatusActive, StatusHold, StatusUnavailable}

// IsValidStatus checks if s is a valid Status.
func IsValidStatus(s string) bool {
	for _, status := range ValidStatuses {
		if string(status) == s {
			return true
		}
	}
	return false
}

// AllowsNoProject reports whether an allocation in this status may omit its project.
func (s Status) AllowsNoProject() bool {
	return s == StatusHold || s == StatusUnavailable
}

// Effort is the relative load an allocation puts on its resource.
type Effort string

const (
	EffortLow    Effort = "Low"
	EffortMedium Effort = "Medium"
	EffortHigh   Effort = "High"
)

// ValidEfforts contains all valid effort levels.
var ValidEfforts = []Effort{EffortLow, EffortMedium, EffortHigh}

// IsValidEffort checks if s is a valid Effort.
func IsValidEffort(s string) bool {
	for _, effort := range ValidEfforts {
		if string(effort) == s {
			return true
		}
	}
	return false
}

// Allocation books a resource for a contiguous, inclusive range of calendar days.
type Allocation struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	ProjectID  *string   `json:"project_id,omitempty"`
	StartDate  time.Time `json:"-"`
	EndDate    time.Time `json:"-"`
	Status     Status    `json:"status"`
	Effort     Effort    `json:"effort"`
	Role       string    `json:"role"`
}

// Project returns the allocation's project id, or "" when it has none.
func (a Allocation) Project() string {
	if a.ProjectID == nil {
		return NoProject
	}
	return *a.ProjectID
}

// Days returns the inclusive length of the allocation in days.
func (a Allocation) Days() int {
	return DaysBetween(a.StartDate, a.EndDate) + 1
}

// Validate checks the allocation invariants.
func (a Allocation) Validate() error {
	if a.StartDate.IsZero() || a.EndDate.IsZero() {
		return perrors.Invalid("allocation %q is missing a start or end date", a.ID)
	}
	if a.EndDate.Before(a.StartDate) {
		return perrors.Invalid("allocation %q ends (%s) before it starts (%s)",
			a.ID, FormatDate(a.EndDate), FormatDate(a.StartDate))
	}
	if !IsValidStatus(string(a.Status)) {
		return perrors.Invalid("allocation %q has unknown status %q", a.ID, a.Status)
	}
	if a.Effort != "" && !IsValidEffort(string(a.Effort)) {
		return perrors.Invalid("allocation %q has unknown effort %q", a.ID, a.Effort)
	}
	if a.ProjectID == nil && !a.Status.AllowsNoProject() {
		return perrors.Invalid("allocation %q needs a project unless it is on hold or unavailable", a.ID)
	}
	return nil
}

type allocationJSON struct {
	ID         string  `json:"id"`
	ResourceID string  `json:"resource_id"`
	ProjectID  *string `json:"project_id,omitempty"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Status     Status  `json:"status"`
	Effort     Effort  `json:"effort,omitempty"`
	Role       string  `json:"role"`
}

// MarshalJSON writes dates as YYYY-MM-DD.
func (a Allocation) MarshalJSON() ([]byte, error) {
	return json.Marshal(allocationJSON{
		ID:         a.ID,
		ResourceID: a.ResourceID,
		ProjectID:  a.ProjectID,
		StartDate:  FormatDate(a.StartDate),
		EndDate:    FormatDate(a.EndDate),
		Status:     a.Status,
		Effort:     a.Effort,
		Role:       a.Role,
	})
}

// UnmarshalJSON reads dates as YYYY-MM-DD.
func (a *Allocation) UnmarshalJSON(data []byte) error {
	var raw allocationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return err
	}
	*a = Allocation{
		ID:         raw.ID,
		ResourceID: raw.ResourceID,
		ProjectID:  raw.ProjectID,
		StartDate:  start,
		EndDate:    end,
		Status:     raw.Status,
		Effort:     raw.Effort,
		Role:       raw.Role,
	}
	return nil
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
