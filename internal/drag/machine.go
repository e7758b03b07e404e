package drag

import (
	"fmt"
	"time"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/geometry"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Preview is the local, unsaved rendering of a candidate.
type Preview struct {
	Candidate models.Allocation `json:"candidate"`
	Bar       geometry.Bar      `json:"bar"`
	// Visible is false when the candidate has left the window.
	Visible bool `json:"visible"`
	// Accepted is false when the last slot was rejected and the candidate
	// kept its previous dates.
	Accepted bool `json:"accepted"`
}

// Commit is a completed gesture ready to be saved.
type Commit struct {
	Session Session                `json:"session"`
	Patch   models.AllocationPatch `json:"patch"`
}

// Machine owns at most one active gesture for a view. It never talks to
// the data service; callers save the Commit returned by Drop and then call
// Settle. A Machine is not safe for concurrent use.
type Machine struct {
	loc     *time.Location
	now     func() time.Time
	state   State
	window  calendar.Window
	session *Session
	ended   State
}

// NewMachine creates an idle machine. loc is the zone dates are encoded in.
func NewMachine(loc *time.Location) *Machine {
	if loc == nil {
		loc = time.Local
	}
	return &Machine{loc: loc, now: time.Now, state: StateIdle}
}

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Active reports whether a gesture holds the machine.
func (m *Machine) Active() bool {
	return m.state == StateDragging || m.state == StateCommitting
}

// Session returns a copy of the active session.
func (m *Machine) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Begin starts a gesture on an existing allocation with the pointer over
// slot of window w.
func (m *Machine) Begin(w calendar.Window, a models.Allocation, dir Direction, slot int) (Preview, error) {
	if m.Active() {
		return Preview{}, perrors.ErrGestureActive
	}
	if _, err := ParseDirection(string(dir)); err != nil {
		return Preview{}, err
	}
	if a.ID == "" {
		return Preview{}, perrors.Invalid("cannot drag an allocation without an id")
	}
	if !w.ValidSlot(slot) {
		return Preview{}, perrors.Invalid("slot %d is outside the window", slot)
	}
	if a.EndDate.Before(a.StartDate) {
		return Preview{}, perrors.Invalid("allocation %s ends before it starts", a.ID)
	}
	m.start(w, &Session{
		AllocationID: a.ID,
		Direction:    dir,
		AnchorSlot:   slot,
		CurrentSlot:  slot,
		Original:     a,
		Candidate:    a,
	})
	return m.preview(true), nil
}

// BeginCreate starts a click-to-create gesture on an empty cell: a move
// whose anchor is the clicked slot and whose candidate spans that one slot.
func (m *Machine) BeginCreate(w calendar.Window, resourceID string, slot int) (Preview, error) {
	if m.Active() {
		return Preview{}, perrors.ErrGestureActive
	}
	if resourceID == "" {
		return Preview{}, perrors.Invalid("resource id is required")
	}
	if !w.ValidSlot(slot) {
		return Preview{}, perrors.Invalid("slot %d is outside the window", slot)
	}
	a := models.Allocation{
		ResourceID: resourceID,
		StartDate:  w.SlotStart(slot),
		EndDate:    w.SlotEnd(slot),
		Status:     models.StatusActive,
		Effort:     models.EffortMedium,
	}
	m.start(w, &Session{
		Direction:   Move,
		AnchorSlot:  slot,
		CurrentSlot: slot,
		Original:    a,
		Candidate:   a,
		Create:      true,
	})
	return m.preview(true), nil
}

func (m *Machine) start(w calendar.Window, s *Session) {
	s.StartedAt = m.now()
	m.window = w
	m.session = s
	m.state = StateDragging
}

// Enter moves the pointer over slot and recomputes the preview. A rejected
// resize leaves the candidate unchanged and the gesture continues.
func (m *Machine) Enter(slot int) (Preview, error) {
	if m.state != StateDragging {
		return Preview{}, perrors.ErrNoGesture
	}
	if !m.window.ValidSlot(slot) {
		return Preview{}, perrors.Invalid("slot %d is outside the window", slot)
	}
	accepted := m.session.apply(slot, m.window.View.SlotSize)
	return m.preview(accepted), nil
}

// Drop ends the gesture with the current candidate. The machine moves to
// Committing until Settle is called.
func (m *Machine) Drop() (Commit, error) {
	if m.state != StateDragging {
		return Commit{}, perrors.ErrNoGesture
	}
	m.state = StateCommitting
	return Commit{Session: *m.session, Patch: m.session.Patch(m.loc)}, nil
}

// DropAt enters slot and drops. Dropping outside the window cancels the
// gesture and returns ErrOutOfWindow.
func (m *Machine) DropAt(slot int) (Commit, error) {
	if m.state != StateDragging {
		return Commit{}, perrors.ErrNoGesture
	}
	if !m.window.ValidSlot(slot) {
		m.Cancel()
		return Commit{}, fmt.Errorf("drop on slot %d: %w", slot, perrors.ErrOutOfWindow)
	}
	m.session.apply(slot, m.window.View.SlotSize)
	return m.Drop()
}

// Cancel aborts a dragging gesture. The returned preview shows the original
// allocation. Cancelling an idle machine is a no-op.
func (m *Machine) Cancel() (Preview, bool) {
	if m.state != StateDragging {
		return Preview{}, false
	}
	s := *m.session
	m.session = nil
	m.ended = StateCancelled
	m.state = StateIdle
	bar, ok := geometry.MapAllocation(m.window, s.Original)
	return Preview{Candidate: s.Original, Bar: bar, Visible: ok, Accepted: true}, true
}

// Settle returns a committing machine to idle once the save has finished,
// successfully or not.
func (m *Machine) Settle() {
	if m.state != StateCommitting {
		return
	}
	m.session = nil
	m.ended = StateCommitting
	m.state = StateIdle
}

// LastOutcome reports how the previous gesture ended: StateCommitting,
// StateCancelled, or "" before any gesture ended.
func (m *Machine) LastOutcome() State { return m.ended }

func (m *Machine) preview(accepted bool) Preview {
	c := m.session.Candidate
	bar, ok := geometry.MapAllocation(m.window, c)
	return Preview{Candidate: c, Bar: bar, Visible: ok, Accepted: accepted}
}
