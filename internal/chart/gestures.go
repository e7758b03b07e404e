package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/p-blackswan/allocation-timeline/internal/drag"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Gesture outcomes recorded per drag direction.
const (
	outcomeCommitted = "committed"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
	outcomeForm      = "form"
)

// Commit kinds.
const (
	commitUpdate = "update"
	commitCreate = "create"
	commitEdit   = "edit"
	commitDelete = "delete"
)

// DropResult reports what a drop did.
type DropResult struct {
	Commit drag.Commit `json:"commit"`
	// AllocationID is the saved allocation; empty when the drop opened the
	// create dialog instead.
	AllocationID string       `json:"allocation_id,omitempty"`
	Dialog       *DialogState `json:"dialog,omitempty"`
	// RefreshFailed marks a saved drop whose reload failed; the layout is
	// stale until the next successful refresh.
	RefreshFailed bool `json:"refresh_failed,omitempty"`
}

// BeginGesture starts dragging an allocation with the pointer over slot.
func (c *Chart) BeginGesture(allocationID string, dir drag.Direction, slot int) (drag.Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, _, ok := c.findAllocation(allocationID)
	if !ok {
		return drag.Preview{}, fmt.Errorf("allocation %q: %w", allocationID, perrors.ErrNotFound)
	}
	p, err := c.drag.Begin(c.window, a, dir, slot)
	if err != nil {
		return drag.Preview{}, err
	}
	c.logger.Debug().Str("allocation_id", a.ID).Str("direction", string(dir)).Int("slot", slot).Msg("Gesture started")
	return p, nil
}

// BeginCreate starts a click-to-create gesture on an empty cell of a
// resource row.
func (c *Chart) BeginCreate(resourceID string, slot int) (drag.Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginCreate(resourceID, slot)
}

func (c *Chart) beginCreate(resourceID string, slot int) (drag.Preview, error) {
	if _, ok := c.findResource(resourceID); !ok {
		return drag.Preview{}, fmt.Errorf("resource %q: %w", resourceID, perrors.ErrNotFound)
	}
	return c.drag.BeginCreate(c.window, resourceID, slot)
}

// Enter moves the pointer over slot.
func (c *Chart) Enter(slot int) (drag.Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.drag.Enter(slot)
	if err == nil && !p.Accepted {
		c.logger.Debug().Int("slot", slot).Msg("Candidate update rejected")
	}
	return p, err
}

// Drop ends the gesture over slot. A dragged allocation is saved with one
// patch and the chart refreshed after the save; a create gesture opens the
// create dialog. Dropping outside the window cancels the gesture.
func (c *Chart) Drop(ctx context.Context, slot int) (*DropResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drop(ctx, slot)
}

func (c *Chart) drop(ctx context.Context, slot int) (*DropResult, error) {
	dir := drag.Move
	if s, ok := c.drag.Session(); ok {
		dir = s.Direction
	}
	commit, err := c.drag.DropAt(slot)
	if err != nil {
		if errors.Is(err, perrors.ErrOutOfWindow) {
			c.recordGesture(dir, outcomeCancelled)
			c.logger.Debug().Int("slot", slot).Msg("Gesture dropped outside the window")
		}
		return nil, err
	}
	defer c.drag.Settle()

	if commit.Session.Create {
		c.recordGesture(dir, outcomeForm)
		state := c.openCreate(commit)
		return &DropResult{Commit: commit, Dialog: state}, nil
	}

	res, err := c.svc.SaveAllocation(ctx, commit.Patch)
	c.recordCommit(commitUpdate, err)
	if err != nil {
		c.recordGesture(dir, outcomeFailed)
		return nil, c.remoteFailure(ctx, err)
	}
	c.recordGesture(dir, outcomeCommitted)
	c.logger.Info().
		Str("gesture", commit.Session.String()).
		Str("start", models.FormatDate(commit.Session.Candidate.StartDate)).
		Str("end", models.FormatDate(commit.Session.Candidate.EndDate)).
		Bool("changed", commit.Session.Changed()).
		Msg("Gesture committed")

	out := &DropResult{Commit: commit, AllocationID: res.AllocationID}
	out.RefreshFailed = !c.refreshAfterWrite(ctx)
	return out, nil
}

// Click is click-to-create: a one-slot gesture dropped where it began.
func (c *Chart) Click(ctx context.Context, resourceID string, slot int) (*DropResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.beginCreate(resourceID, slot); err != nil {
		return nil, err
	}
	return c.drop(ctx, slot)
}

// CancelGesture aborts the active gesture. The preview shows the original
// allocation again.
func (c *Chart) CancelGesture() (drag.Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelGesture("aborted")
}

func (c *Chart) cancelGesture(reason string) (drag.Preview, bool) {
	s, ok := c.drag.Session()
	if !ok {
		return drag.Preview{}, false
	}
	p, ok := c.drag.Cancel()
	if ok {
		c.recordGesture(s.Direction, outcomeCancelled)
		c.logger.Debug().Str("gesture", s.String()).Str("reason", reason).Msg("Gesture cancelled")
	}
	return p, ok
}
