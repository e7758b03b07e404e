package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// MonthKey identifies the month a slot belongs to.
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// Slot is one addressable timeline column.
type Slot struct {
	Index          int       `json:"index"`
	Start          time.Time `json:"-"`
	End            time.Time `json:"-"`
	Month          MonthKey  `json:"month"`
	Label          string    `json:"label"`
	DayName        string    `json:"day_name,omitempty"`
	IsToday        bool      `json:"is_today"`
	IsWeekBoundary bool      `json:"is_week_boundary"`
}

// Contains reports whether d falls inside the slot.
func (s Slot) Contains(d time.Time) bool {
	return !d.Before(s.Start) && !d.After(s.End)
}

// MonthGroup is a run of consecutive slots starting in the same month.
type MonthGroup struct {
	Key   MonthKey `json:"key"`
	Name  string   `json:"name"`
	Slots []Slot   `json:"slots"`
	Days  int      `json:"days"`
	// Width is this group's share of the grid width, Days/total days.
	Width float64 `json:"width"`
}

// Grid is the built calendar for one window.
type Grid struct {
	Window Window       `json:"window"`
	Today  time.Time    `json:"-"`
	Slots  []Slot       `json:"-"`
	Months []MonthGroup `json:"months"`
}

// Build normalizes pivot and builds its grid. today marks the current slot.
func Build(pivot time.Time, view View, weekStart time.Weekday, today time.Time) (*Grid, error) {
	w, err := NewWindow(pivot, view, weekStart)
	if err != nil {
		return nil, err
	}
	return BuildWindow(w, today), nil
}

// BuildWindow builds the slots and month groups of w. It is a pure function
// of w and today.
func BuildWindow(w Window, today time.Time) *Grid {
	today = models.Day(today)
	lastDayOfWeek := (w.WeekStart + 6) % 7
	total := w.Days()

	g := &Grid{
		Window: w,
		Today:  today,
		Slots:  make([]Slot, 0, w.View.SlotCount),
	}

	for i := 0; i < w.View.SlotCount; i++ {
		start := w.SlotStart(i)
		slot := Slot{
			Index: i,
			Start: start,
			End:   w.SlotEnd(i),
			Month: MonthKey{Year: start.Year(), Month: start.Month()},
			Label: fmt.Sprintf("%d/%d", int(start.Month()), start.Day()),
		}
		if w.View.SlotSize == 1 {
			slot.DayName = strings.ToUpper(start.Weekday().String()[:3])
			slot.IsWeekBoundary = start.Weekday() == lastDayOfWeek
		}
		slot.IsToday = !today.IsZero() && slot.Contains(today)
		g.Slots = append(g.Slots, slot)

		n := len(g.Months)
		if n == 0 || g.Months[n-1].Key != slot.Month {
			g.Months = append(g.Months, MonthGroup{Key: slot.Month, Name: start.Month().String()})
			n++
		}
		group := &g.Months[n-1]
		group.Slots = append(group.Slots, slot)
		group.Days += w.View.SlotSize
		group.Width = float64(group.Days) / float64(total)
	}

	return g
}

// Slot returns slot i of the grid.
func (g *Grid) Slot(i int) (Slot, bool) {
	if !g.Window.ValidSlot(i) {
		return Slot{}, false
	}
	return g.Slots[i], true
}

// TodaySlot returns the index of the slot containing today, or -1.
func (g *Grid) TodaySlot() int {
	for _, s := range g.Slots {
		if s.IsToday {
			return s.Index
		}
	}
	return -1
}

type slotJSON struct {
	Index          int      `json:"index"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Month          MonthKey `json:"month"`
	Label          string   `json:"label"`
	DayName        string   `json:"day_name,omitempty"`
	IsToday        bool     `json:"is_today"`
	IsWeekBoundary bool     `json:"is_week_boundary"`
}

// MarshalJSON writes slot dates as YYYY-MM-DD.
func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(slotJSON{
		Index:          s.Index,
		Start:          models.FormatDate(s.Start),
		End:            models.FormatDate(s.End),
		Month:          s.Month,
		Label:          s.Label,
		DayName:        s.DayName,
		IsToday:        s.IsToday,
		IsWeekBoundary: s.IsWeekBoundary,
	})
}

// MarshalJSON writes the window with its derived end date and title.
func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start     string `json:"start"`
		End       string `json:"end"`
		SlotSize  int    `json:"slot_size"`
		SlotCount int    `json:"slot_count"`
		WeekStart string `json:"week_start"`
		Title     string `json:"title"`
	}{
		Start:     models.FormatDate(w.Start),
		End:       models.FormatDate(w.End()),
		SlotSize:  w.View.SlotSize,
		SlotCount: w.View.SlotCount,
		WeekStart: w.WeekStart.String(),
		Title:     w.Title(),
	})
}
