// Package drag implements the pointer gesture state machine that turns a
// drag over grid slots into a single allocation mutation.
package drag

import (
	"fmt"
	"time"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Direction is what part of a bar the gesture grabbed.
type Direction string

const (
	Move        Direction = "move"
	ResizeLeft  Direction = "resizeLeft"
	ResizeRight Direction = "resizeRight"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Move, ResizeLeft, ResizeRight:
		return d, nil
	}
	return "", perrors.Invalid("unknown drag direction %q", s)
}

// State tracks a machine's gesture lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateDragging   State = "dragging"
	StateCommitting State = "committing"
	StateCancelled  State = "cancelled"
)

// Session is the ephemeral record of one gesture. Original is the snapshot
// taken at pointer-down; Candidate is the working copy shown while dragging.
type Session struct {
	AllocationID string            `json:"allocation_id,omitempty"`
	Direction    Direction         `json:"direction"`
	AnchorSlot   int               `json:"anchor_slot"`
	CurrentSlot  int               `json:"current_slot"`
	Original     models.Allocation `json:"original"`
	Candidate    models.Allocation `json:"candidate"`
	// Create marks a click-to-create gesture, which has no allocation id
	// and is routed through a creation form instead of being saved directly.
	Create    bool      `json:"create"`
	StartedAt time.Time `json:"started_at"`
}

// Changed reports whether the candidate dates differ from the original.
func (s Session) Changed() bool {
	return !s.Candidate.StartDate.Equal(s.Original.StartDate) ||
		!s.Candidate.EndDate.Equal(s.Original.EndDate)
}

// apply recomputes the candidate for the pointer being over slot. The delta
// is always taken against the anchor and applied to the original, so the
// result depends only on the current slot. It reports whether the candidate
// was updated.
func (s *Session) apply(slot, slotSize int) bool {
	days := (slot - s.AnchorSlot) * slotSize
	s.CurrentSlot = slot

	switch s.Direction {
	case ResizeLeft:
		start := models.AddDays(s.Original.StartDate, days)
		if start.After(s.Candidate.EndDate) {
			return false
		}
		s.Candidate.StartDate = start
	case ResizeRight:
		end := models.AddDays(s.Original.EndDate, days)
		if end.Before(s.Candidate.StartDate) {
			return false
		}
		s.Candidate.EndDate = end
	default:
		// duration is preserved so the range cannot invert
		s.Candidate.StartDate = models.AddDays(s.Original.StartDate, days)
		s.Candidate.EndDate = models.AddDays(s.Original.EndDate, days)
	}
	return true
}

// Patch builds the save-allocation request for the candidate. Existing
// allocations carry only id and dates; a created allocation carries the
// resource and dates, with project, status and role left to the form.
func (s Session) Patch(loc *time.Location) models.AllocationPatch {
	p := models.DatePatch(s.AllocationID, s.Candidate.StartDate, s.Candidate.EndDate, loc)
	if s.Create {
		p.ResourceID = s.Candidate.ResourceID
	}
	return p
}

func (s Session) String() string {
	id := s.AllocationID
	if s.Create {
		id = "new"
	}
	return fmt.Sprintf("%s %s anchor=%d slot=%d", s.Direction, id, s.AnchorSlot, s.CurrentSlot)
}
