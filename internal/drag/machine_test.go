package drag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

// dayWindow is the 14 day window 2024-03-10..2024-03-23.
func dayWindow(t *testing.T) calendar.Window {
	t.Helper()
	w, err := calendar.NewWindow(day(t, "2024-03-13"), calendar.DayView, time.Sunday)
	require.NoError(t, err)
	return w
}

func allocation(t *testing.T, start, end string) models.Allocation {
	return models.Allocation{
		ID:         "a1",
		ResourceID: "r1",
		ProjectID:  models.StringPtr("p1"),
		StartDate:  day(t, start),
		EndDate:    day(t, end),
		Status:     models.StatusActive,
		Effort:     models.EffortHigh,
		Role:       "Developer",
	}
}

func TestParseDirection(t *testing.T) {
	for _, s := range []string{"move", "resizeLeft", "resizeRight"} {
		d, err := ParseDirection(s)
		require.NoError(t, err)
		assert.Equal(t, Direction(s), d)
	}
	_, err := ParseDirection("spin")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestMachine_ResizeLeftPastEndIsRejected(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	// day 5 .. day 10 of the window
	a := allocation(t, "2024-03-15", "2024-03-20")

	_, err := m.Begin(w, a, ResizeLeft, 5)
	require.NoError(t, err)

	p, err := m.Enter(12)
	require.NoError(t, err)
	assert.False(t, p.Accepted)
	assert.Equal(t, a.StartDate, p.Candidate.StartDate)
	assert.False(t, p.Candidate.StartDate.After(p.Candidate.EndDate))

	// the gesture continues and a valid slot is still accepted
	p, err = m.Enter(10)
	require.NoError(t, err)
	assert.True(t, p.Accepted)
	assert.Equal(t, day(t, "2024-03-20"), p.Candidate.StartDate)
	assert.Equal(t, StateDragging, m.State())
}

func TestMachine_ResizeRightPastStartIsRejected(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	// a single-slot allocation on slot 2
	a := allocation(t, "2024-03-12", "2024-03-12")

	_, err := m.Begin(w, a, ResizeRight, 2)
	require.NoError(t, err)

	p, err := m.Enter(1)
	require.NoError(t, err)
	assert.False(t, p.Accepted)
	assert.Equal(t, a.EndDate, p.Candidate.EndDate)

	p, err = m.Enter(4)
	require.NoError(t, err)
	assert.True(t, p.Accepted)
	assert.Equal(t, day(t, "2024-03-14"), p.Candidate.EndDate)
	assert.Equal(t, a.StartDate, p.Candidate.StartDate)
}

func TestMachine_MovePreservesDuration(t *testing.T) {
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-15")
	duration := a.EndDate.Sub(a.StartDate)

	for target := 0; target < w.View.SlotCount; target++ {
		m := NewMachine(time.UTC)
		_, err := m.Begin(w, a, Move, 3)
		require.NoError(t, err)
		p, err := m.Enter(target)
		require.NoError(t, err)
		assert.True(t, p.Accepted)
		assert.Equal(t, duration, p.Candidate.EndDate.Sub(p.Candidate.StartDate))
		assert.Equal(t, models.AddDays(a.StartDate, target-3), p.Candidate.StartDate)
	}
}

func TestMachine_DeltaIsAbsoluteFromAnchor(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, Move, 2)
	require.NoError(t, err)
	for _, slot := range []int{3, 4, 5, 6, 5, 4} {
		_, err := m.Enter(slot)
		require.NoError(t, err)
	}
	s, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, day(t, "2024-03-14"), s.Candidate.StartDate)
	assert.Equal(t, day(t, "2024-03-15"), s.Candidate.EndDate)
	assert.Equal(t, a, s.Original)
}

func TestMachine_WeekViewStepsBySlotSize(t *testing.T) {
	m := NewMachine(time.UTC)
	w, err := calendar.NewWindow(day(t, "2024-03-13"), calendar.WeekView, time.Sunday)
	require.NoError(t, err)
	a := allocation(t, "2024-03-13", "2024-03-20")

	_, err = m.Begin(w, a, ResizeRight, 1)
	require.NoError(t, err)
	p, err := m.Enter(3)
	require.NoError(t, err)
	assert.Equal(t, day(t, "2024-04-03"), p.Candidate.EndDate)
	assert.Equal(t, 3, p.Bar.EndSlot)
}

func TestMachine_DropProducesOneAbsolutePatch(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	m := NewMachine(loc)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, Move, 2)
	require.NoError(t, err)
	_, err = m.Enter(4)
	require.NoError(t, err)

	c, err := m.Drop()
	require.NoError(t, err)
	assert.Equal(t, StateCommitting, m.State())
	assert.True(t, c.Session.Changed())

	p := c.Patch
	assert.Equal(t, "a1", p.AllocationID)
	assert.Empty(t, p.ResourceID)
	assert.Nil(t, p.ProjectID)
	assert.Nil(t, p.Status)
	require.NotNil(t, p.StartDate)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, models.EncodeDate(day(t, "2024-03-14"), loc), *p.StartDate)
	assert.Equal(t, models.EncodeDate(day(t, "2024-03-15"), loc), *p.EndDate)

	// a second drop in the same gesture is not possible
	_, err = m.Drop()
	assert.ErrorIs(t, err, perrors.ErrNoGesture)

	// a new gesture cannot start before the save settles
	_, err = m.Begin(w, a, Move, 2)
	assert.ErrorIs(t, err, perrors.ErrGestureActive)

	m.Settle()
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, StateCommitting, m.LastOutcome())
	_, ok := m.Session()
	assert.False(t, ok)
}

func TestMachine_UnchangedDropIsIdempotent(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	var patches []models.AllocationPatch
	for i := 0; i < 2; i++ {
		_, err := m.Begin(w, a, Move, 2)
		require.NoError(t, err)
		c, err := m.Drop()
		require.NoError(t, err)
		assert.False(t, c.Session.Changed())
		patches = append(patches, c.Patch)
		m.Settle()
	}
	assert.Equal(t, patches[0], patches[1])
	assert.Equal(t, a, patches[0].Apply(a, time.UTC))
}

func TestMachine_SingleActiveGesture(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, Move, 2)
	require.NoError(t, err)
	_, err = m.Begin(w, a, ResizeLeft, 2)
	assert.ErrorIs(t, err, perrors.ErrGestureActive)
	_, err = m.BeginCreate(w, "r1", 5)
	assert.ErrorIs(t, err, perrors.ErrGestureActive)

	s, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, Move, s.Direction)
}

func TestMachine_CancelRestoresOriginal(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, Move, 2)
	require.NoError(t, err)
	_, err = m.Enter(9)
	require.NoError(t, err)

	p, ok := m.Cancel()
	require.True(t, ok)
	assert.Equal(t, a, p.Candidate)
	assert.Equal(t, 2, p.Bar.StartSlot)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, StateCancelled, m.LastOutcome())

	_, err = m.Drop()
	assert.ErrorIs(t, err, perrors.ErrNoGesture)
	_, ok = m.Cancel()
	assert.False(t, ok)
}

func TestMachine_DropOutsideWindowCancels(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, Move, 2)
	require.NoError(t, err)
	_, err = m.DropAt(20)
	assert.ErrorIs(t, err, perrors.ErrOutOfWindow)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, StateCancelled, m.LastOutcome())
}

func TestMachine_DropAtAppliesFinalSlot(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, ResizeRight, 3)
	require.NoError(t, err)
	c, err := m.DropAt(6)
	require.NoError(t, err)
	assert.Equal(t, day(t, "2024-03-16"), c.Session.Candidate.EndDate)
}

func TestMachine_InvalidInputLeavesStateUnchanged(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-12", "2024-03-13")

	_, err := m.Begin(w, a, Move, 14)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	_, err = m.Begin(w, a, Direction("spin"), 1)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	noID := a
	noID.ID = ""
	_, err = m.Begin(w, noID, Move, 1)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	assert.Equal(t, StateIdle, m.State())

	_, err = m.Enter(3)
	assert.ErrorIs(t, err, perrors.ErrNoGesture)

	_, err = m.Begin(w, a, Move, 2)
	require.NoError(t, err)
	_, err = m.Enter(-1)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	s, _ := m.Session()
	assert.Equal(t, a, s.Candidate)
}

func TestMachine_ClickToCreate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	m := NewMachine(loc)
	w, err := calendar.NewWindow(day(t, "2024-03-13"), calendar.WeekView, time.Sunday)
	require.NoError(t, err)

	p, err := m.BeginCreate(w, "r7", 2)
	require.NoError(t, err)
	assert.Equal(t, day(t, "2024-03-24"), p.Candidate.StartDate)
	assert.Equal(t, day(t, "2024-03-30"), p.Candidate.EndDate)
	assert.InDelta(t, 0.1, p.Bar.Width, 1e-9)

	c, err := m.Drop()
	require.NoError(t, err)
	assert.True(t, c.Session.Create)
	assert.True(t, c.Patch.IsCreate())
	assert.Equal(t, "r7", c.Patch.ResourceID)
	start, end := c.Patch.Dates(loc)
	assert.Equal(t, day(t, "2024-03-24"), start)
	assert.Equal(t, day(t, "2024-03-30"), end)
}

func TestMachine_PreviewLeavesWindow(t *testing.T) {
	m := NewMachine(time.UTC)
	w := dayWindow(t)
	a := allocation(t, "2024-03-10", "2024-03-10")

	_, err := m.Begin(w, a, Move, 13)
	require.NoError(t, err)
	p, err := m.Enter(0)
	require.NoError(t, err)
	assert.True(t, p.Accepted)
	assert.False(t, p.Visible)
	assert.Equal(t, day(t, "2024-02-26"), p.Candidate.StartDate)
}
