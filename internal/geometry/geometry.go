// Package geometry maps allocation date ranges onto a calendar window as
// fractional horizontal offsets plus a vertical lane.
package geometry

import (
	"time"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Bar is the rendered extent of one allocation. Left + Width + Right == 1.
type Bar struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
	Right float64 `json:"right"`
	Lane  int     `json:"lane"`

	StartSlot int `json:"start_slot"`
	EndSlot   int `json:"end_slot"`

	// Clipped reports whether the allocation extends past either window edge.
	ClippedStart bool `json:"clipped_start"`
	ClippedEnd   bool `json:"clipped_end"`
}

// Map computes the bar for the inclusive range [start, end] within w. ok is
// false when the range does not intersect the window; such allocations are
// not drawn.
func Map(w calendar.Window, start, end time.Time) (Bar, bool) {
	winStart, winEnd := w.Start, w.End()

	clippedStart := start
	if clippedStart.Before(winStart) {
		clippedStart = winStart
	}
	clippedEnd := end
	if clippedEnd.After(winEnd) {
		clippedEnd = winEnd
	}
	if clippedEnd.Before(clippedStart) {
		return Bar{}, false
	}

	total := float64(w.View.SlotCount)
	first := w.SlotIndexOf(clippedStart)
	last := w.SlotIndexOf(clippedEnd)

	b := Bar{
		Left:         float64(first) / total,
		Right:        float64(w.View.SlotCount-1-last) / total,
		StartSlot:    first,
		EndSlot:      last,
		ClippedStart: start.Before(winStart),
		ClippedEnd:   end.After(winEnd),
	}
	b.Width = float64(last-first+1) / total
	return b, true
}

// MapAllocation maps a single allocation in lane 0.
func MapAllocation(w calendar.Window, a models.Allocation) (Bar, bool) {
	return Map(w, a.StartDate, a.EndDate)
}

// Require is MapAllocation for callers that need a bar, returning
// ErrOutOfWindow when there is none.
func Require(w calendar.Window, a models.Allocation) (Bar, error) {
	b, ok := MapAllocation(w, a)
	if !ok {
		return Bar{}, perrors.ErrOutOfWindow
	}
	return b, nil
}

// Placed pairs an allocation with its bar.
type Placed struct {
	Allocation models.Allocation `json:"allocation"`
	Bar        Bar               `json:"bar"`
	Style      Style             `json:"style"`
}

// Lanes maps one resource-project group. Lanes follow input order: the i-th
// allocation gets lane i whether or not it overlaps the others. Allocations
// outside the window are dropped but still consume their lane so stacking
// does not shift as the window moves.
func Lanes(w calendar.Window, project *models.Project, allocs []models.Allocation) []Placed {
	out := make([]Placed, 0, len(allocs))
	for i, a := range allocs {
		b, ok := MapAllocation(w, a)
		if !ok {
			continue
		}
		b.Lane = i
		out = append(out, Placed{Allocation: a, Bar: b, Style: StyleFor(a, project)})
	}
	return out
}
