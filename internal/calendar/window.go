// Package calendar builds the date-bucketed grid the timeline is drawn on.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// View is the grid granularity: SlotCount columns of SlotSize days each.
type View struct {
	SlotSize  int `json:"slot_size" yaml:"slot_size"`
	SlotCount int `json:"slot_count" yaml:"slot_count"`
}

// Built-in views.
var (
	DayView  = View{SlotSize: 1, SlotCount: 14}
	WeekView = View{SlotSize: 7, SlotCount: 10}
)

// ParseView parses a "<slotSize>/<slotCount>" view value such as "7/10".
func ParseView(value string) (View, error) {
	parts := strings.SplitN(strings.TrimSpace(value), "/", 2)
	if len(parts) != 2 {
		return View{}, perrors.Invalid("view %q must look like <days per slot>/<slots>", value)
	}
	size, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return View{}, perrors.Invalid("view %q has a non-numeric slot size", value)
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return View{}, perrors.Invalid("view %q has a non-numeric slot count", value)
	}
	v := View{SlotSize: size, SlotCount: count}
	return v, v.Validate()
}

// String returns the "<slotSize>/<slotCount>" form of v.
func (v View) String() string {
	return fmt.Sprintf("%d/%d", v.SlotSize, v.SlotCount)
}

// Validate checks both dimensions are at least one.
func (v View) Validate() error {
	if v.SlotSize < 1 {
		return perrors.Invalid("slot size must be >= 1, got %d", v.SlotSize)
	}
	if v.SlotCount < 1 {
		return perrors.Invalid("slot count must be >= 1, got %d", v.SlotCount)
	}
	return nil
}

// Days is the number of calendar days a window of this view covers.
func (v View) Days() int {
	return v.SlotSize * v.SlotCount
}

// Window is the contiguous date range currently rendered. Start is always
// the first day of a week. Windows are values; navigation returns a new one.
type Window struct {
	Start     time.Time    `json:"-"`
	View      View         `json:"view"`
	WeekStart time.Weekday `json:"-"`
}

// WeekStartOf returns the first day of the week containing d.
func WeekStartOf(d time.Time, weekStart time.Weekday) time.Time {
	d = models.Day(d)
	back := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return models.AddDays(d, -back)
}

// NewWindow normalizes pivot to its week start and sizes the window by view.
func NewWindow(pivot time.Time, view View, weekStart time.Weekday) (Window, error) {
	if pivot.IsZero() {
		return Window{}, perrors.Invalid("pivot date is not set")
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return Window{}, perrors.Invalid("week start %d is not a weekday", weekStart)
	}
	if err := view.Validate(); err != nil {
		return Window{}, err
	}
	return Window{
		Start:     WeekStartOf(pivot, weekStart),
		View:      view,
		WeekStart: weekStart,
	}, nil
}

// ParsePivot parses a YYYY-MM-DD pivot date.
func ParsePivot(s string) (time.Time, error) {
	d, err := models.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("pivot: %w", err)
	}
	return d, nil
}

// End is the last day inside the window (inclusive).
func (w Window) End() time.Time {
	return models.AddDays(w.Start, w.View.Days()-1)
}

// Days is the number of calendar days covered.
func (w Window) Days() int {
	return w.View.Days()
}

// SlotIndexOf returns the slot d falls in. The result is negative or
// >= SlotCount when d lies outside the window.
func (w Window) SlotIndexOf(d time.Time) int {
	days := models.DaysBetween(w.Start, d)
	if days < 0 {
		// floor division so days just before the window map to -1
		return (days - w.View.SlotSize + 1) / w.View.SlotSize
	}
	return days / w.View.SlotSize
}

// SlotStart returns the first day of slot i.
func (w Window) SlotStart(i int) time.Time {
	return models.AddDays(w.Start, i*w.View.SlotSize)
}

// SlotEnd returns the last day of slot i.
func (w Window) SlotEnd(i int) time.Time {
	return models.AddDays(w.SlotStart(i), w.View.SlotSize-1)
}

// ValidSlot reports whether i addresses a slot of the window.
func (w Window) ValidSlot(i int) bool {
	return i >= 0 && i < w.View.SlotCount
}

// Contains reports whether d is inside the window.
func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Start) && !d.After(w.End())
}

// Shift returns the window pivoted days away from the current start.
func (w Window) Shift(days int) Window {
	next, _ := NewWindow(models.AddDays(w.Start, days), w.View, w.WeekStart)
	return next
}

// WithView keeps the start and changes the granularity.
func (w Window) WithView(v View) (Window, error) {
	if err := v.Validate(); err != nil {
		return Window{}, err
	}
	w.View = v
	return w, nil
}

// Title is the window's date range, e.g. "3/10/2024-3/23/2024".
func (w Window) Title() string {
	return w.Start.Format("1/2/2006") + "-" + w.End().Format("1/2/2006")
}
