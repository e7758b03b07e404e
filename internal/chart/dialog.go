package chart

import (
	"context"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// DialogKind names a dialog variant.
type DialogKind string

const (
	DialogCreate      DialogKind = "create"
	DialogEdit        DialogKind = "edit"
	DialogDelete      DialogKind = "delete"
	DialogFilter      DialogKind = "filter"
	DialogAddResource DialogKind = "add_resource"
)

// Dialog is the capability every dialog variant offers. In is what the
// dialog is opened with; Out is what it hands back on confirm.
type Dialog[In, Out any] struct {
	kind    DialogKind
	open    bool
	data    In
	handler func(ctx context.Context, out Out) error
}

func newDialog[In, Out any](kind DialogKind) *Dialog[In, Out] {
	return &Dialog[In, Out]{kind: kind}
}

// Kind returns the dialog variant.
func (d *Dialog[In, Out]) Kind() DialogKind { return d.kind }

// IsOpen reports whether the dialog is showing.
func (d *Dialog[In, Out]) IsOpen() bool { return d.open }

// Open shows the dialog with data.
func (d *Dialog[In, Out]) Open(data In) {
	d.data = data
	d.open = true
}

// Close hides the dialog and drops its data.
func (d *Dialog[In, Out]) Close() {
	var zero In
	d.data = zero
	d.open = false
}

// OnConfirm sets the handler run by Confirm.
func (d *Dialog[In, Out]) OnConfirm(handler func(ctx context.Context, out Out) error) {
	d.handler = handler
}

// Data returns what the dialog was opened with.
func (d *Dialog[In, Out]) Data() In { return d.data }

// Confirm runs the handler with out. The dialog closes only when the
// handler succeeds, so a failed save can be retried from the same form.
func (d *Dialog[In, Out]) Confirm(ctx context.Context, out Out) error {
	if !d.open {
		return errDialogClosed(d.kind)
	}
	if d.handler != nil {
		if err := d.handler(ctx, out); err != nil {
			return err
		}
	}
	d.Close()
	return nil
}

func (d *Dialog[In, Out]) state() *DialogState {
	return &DialogState{Kind: d.kind, Data: d.data}
}

// openDialog is the type-erased view of a Dialog the chart tracks.
type openDialog interface {
	Kind() DialogKind
	IsOpen() bool
	Close()
	state() *DialogState
}

func errDialogClosed(kind DialogKind) error {
	return perrors.Invalid("the %s dialog is not open", kind)
}

// CreateForm opens the create dialog for a click-to-create candidate.
type CreateForm struct {
	ResourceID  string           `json:"resource_id"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	DefaultRole string           `json:"default_role"`
	ProjectID   *string          `json:"project_id,omitempty"`
	Projects    []models.Project `json:"projects"`
	Statuses    []models.Status  `json:"statuses"`
	Efforts     []models.Effort  `json:"efforts"`
	patch       models.AllocationPatch
}

// AllocationInput is what the create and edit dialogs return. Empty fields
// keep their defaults.
type AllocationInput struct {
	ProjectID *string        `json:"project_id,omitempty"`
	Status    *models.Status `json:"status,omitempty"`
	Effort    *models.Effort `json:"effort,omitempty"`
	Role      *string        `json:"role,omitempty"`
}

// EditForm opens the edit dialog on an existing allocation.
type EditForm struct {
	Allocation models.Allocation `json:"allocation"`
	Projects   []models.Project  `json:"projects"`
	Statuses   []models.Status   `json:"statuses"`
	Efforts    []models.Effort   `json:"efforts"`
}

// DeleteForm asks to confirm removing an allocation.
type DeleteForm struct {
	Allocation models.Allocation `json:"allocation"`
	Resource   string            `json:"resource"`
}

// FilterForm carries the current selection and the option lists the
// dialog searches.
type FilterForm struct {
	Selection filter.Selection         `json:"selection"`
	Projects  []models.Project         `json:"projects"`
	Resources []models.ResourceSummary `json:"resources"`
	Statuses  []models.Status          `json:"statuses"`
}

// AddResourceForm lists resources not yet on the chart.
type AddResourceForm struct {
	Resources []models.ResourceSummary `json:"resources"`
}

// DialogState is the open dialog as seen by a renderer.
type DialogState struct {
	Kind DialogKind `json:"kind"`
	Data any        `json:"data"`
}
