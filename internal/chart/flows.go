package chart

import (
	"context"
	"fmt"

	"github.com/p-blackswan/allocation-timeline/internal/drag"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Dialog returns the open dialog, or nil.
func (c *Chart) Dialog() *DialogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialogState()
}

func (c *Chart) dialogState() *DialogState {
	if c.dialog == nil || !c.dialog.IsOpen() {
		return nil
	}
	return c.dialog.state()
}

// CloseDialog dismisses the open dialog without confirming it.
func (c *Chart) CloseDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeDialog()
}

func (c *Chart) closeDialog() {
	if c.dialog != nil {
		c.dialog.Close()
		c.dialog = nil
	}
}

// show makes d the one open dialog.
func (c *Chart) show(d openDialog) *DialogState {
	if c.dialog != nil && c.dialog != d {
		c.dialog.Close()
	}
	c.dialog = d
	return d.state()
}

func (c *Chart) requireOpen(kind DialogKind) error {
	if c.dialog == nil || c.dialog.Kind() != kind || !c.dialog.IsOpen() {
		return errDialogClosed(kind)
	}
	return nil
}

func (c *Chart) openCreate(commit drag.Commit) *DialogState {
	cand := commit.Session.Candidate
	form := CreateForm{
		ResourceID: cand.ResourceID,
		StartDate:  models.FormatDate(cand.StartDate),
		EndDate:    models.FormatDate(cand.EndDate),
		ProjectID:  c.projectID,
		Projects:   c.projects,
		Statuses:   models.ValidStatuses,
		Efforts:    models.ValidEfforts,
		patch:      commit.Patch,
	}
	if r, ok := c.findResource(cand.ResourceID); ok {
		form.DefaultRole = r.DefaultRole
	}
	c.createDialog.Open(form)
	return c.show(c.createDialog)
}

// ConfirmCreate saves the allocation the create dialog was opened for.
func (c *Chart) ConfirmCreate(ctx context.Context, in AllocationInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogCreate); err != nil {
		return err
	}
	return c.createDialog.Confirm(ctx, in)
}

func (c *Chart) confirmCreate(ctx context.Context, in AllocationInput) error {
	form := c.createDialog.Data()
	p := form.patch
	if p.ResourceID == "" {
		p.ResourceID = form.ResourceID
	}
	status := models.StatusActive
	if in.Status != nil {
		status = *in.Status
	}
	p.Status = &status
	role := form.DefaultRole
	if in.Role != nil && *in.Role != "" {
		role = *in.Role
	}
	if role != "" {
		p.Role = &role
	}
	p.Effort = in.Effort
	if in.ProjectID != nil && *in.ProjectID != "" {
		p.ProjectID = in.ProjectID
	}

	base := models.Allocation{ResourceID: p.ResourceID, Effort: models.EffortMedium}
	p, err := c.withDefaults(p, base)
	if err != nil {
		return err
	}
	if err := p.ValidateCreate(); err != nil {
		return err
	}
	return c.save(ctx, commitCreate, p)
}

// OpenEdit opens the edit dialog on an allocation.
func (c *Chart) OpenEdit(allocationID string) (*DialogState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, _, ok := c.findAllocation(allocationID)
	if !ok {
		return nil, fmt.Errorf("allocation %q: %w", allocationID, perrors.ErrNotFound)
	}
	c.editDialog.Open(EditForm{
		Allocation: a,
		Projects:   c.projects,
		Statuses:   models.ValidStatuses,
		Efforts:    models.ValidEfforts,
	})
	return c.show(c.editDialog), nil
}

// ConfirmEdit saves the fields of the edit dialog that changed.
func (c *Chart) ConfirmEdit(ctx context.Context, in AllocationInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogEdit); err != nil {
		return err
	}
	return c.editDialog.Confirm(ctx, in)
}

func (c *Chart) confirmEdit(ctx context.Context, in AllocationInput) error {
	a := c.editDialog.Data().Allocation
	p := models.AllocationPatch{AllocationID: a.ID}
	if in.ProjectID != nil && *in.ProjectID != a.Project() {
		p.ProjectID = in.ProjectID
	}
	if in.Status != nil && *in.Status != a.Status {
		p.Status = in.Status
	}
	if in.Effort != nil && *in.Effort != a.Effort {
		p.Effort = in.Effort
	}
	if in.Role != nil && *in.Role != a.Role {
		p.Role = in.Role
	}
	p, err := c.withDefaults(p, a)
	if err != nil {
		return err
	}
	return c.save(ctx, commitEdit, p)
}

// withDefaults gives a patch that would leave an allocation without a
// project the chart's project, unless the resulting status allows none,
// and validates the result.
func (c *Chart) withDefaults(p models.AllocationPatch, base models.Allocation) (models.AllocationPatch, error) {
	result := p.Apply(base, c.opts.Location)
	if result.ProjectID == nil && c.projectID != nil && !result.Status.AllowsNoProject() {
		p.ProjectID = models.StringPtr(*c.projectID)
		result = p.Apply(base, c.opts.Location)
	}
	if err := result.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// save sends p and refreshes once the save succeeded. A failed refresh
// does not fail the save.
func (c *Chart) save(ctx context.Context, kind string, p models.AllocationPatch) error {
	res, err := c.svc.SaveAllocation(ctx, p)
	c.recordCommit(kind, err)
	if err != nil {
		return c.remoteFailure(ctx, err)
	}
	c.logger.Info().Str("allocation_id", res.AllocationID).Str("kind", kind).Msg("Allocation saved")
	c.refreshAfterWrite(ctx)
	return nil
}

// OpenDelete asks to confirm deleting an allocation.
func (c *Chart) OpenDelete(allocationID string) (*DialogState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, r, ok := c.findAllocation(allocationID)
	if !ok {
		return nil, fmt.Errorf("allocation %q: %w", allocationID, perrors.ErrNotFound)
	}
	c.deleteDialog.Open(DeleteForm{Allocation: a, Resource: r.Name})
	return c.show(c.deleteDialog), nil
}

// ConfirmDelete deletes the allocation of the delete dialog.
func (c *Chart) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogDelete); err != nil {
		return err
	}
	return c.deleteDialog.Confirm(ctx, struct{}{})
}

func (c *Chart) confirmDelete(ctx context.Context, _ struct{}) error {
	id := c.deleteDialog.Data().Allocation.ID
	err := c.svc.DeleteAllocation(ctx, id)
	c.recordCommit(commitDelete, err)
	if err != nil {
		return c.remoteFailure(ctx, err)
	}
	c.logger.Info().Str("allocation_id", id).Msg("Allocation deleted")
	c.refreshAfterWrite(ctx)
	return nil
}

// OpenFilter opens the filter dialog with the current selection and the
// projects and resources it can search.
func (c *Chart) OpenFilter(ctx context.Context) (*DialogState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	projects, err := c.svc.FetchProjects(ctx)
	if err != nil {
		return nil, c.remoteFailure(ctx, err)
	}
	resources, err := c.svc.FetchResources(ctx)
	if err != nil {
		return nil, c.remoteFailure(ctx, err)
	}
	c.filterDialog.Open(FilterForm{
		Selection: c.selection,
		Projects:  projects,
		Resources: resources,
		Statuses:  models.ValidStatuses,
	})
	return c.show(c.filterDialog), nil
}

// ProjectOptions searches the filter dialog's projects by name.
func (c *Chart) ProjectOptions(text string, selected filter.Selection) ([]models.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogFilter); err != nil {
		return nil, err
	}
	return selected.ProjectOptions(c.filterDialog.Data().Projects, text), nil
}

// RoleOptions searches the filter dialog's resource roles.
func (c *Chart) RoleOptions(text string, selected filter.Selection) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogFilter); err != nil {
		return nil, err
	}
	return selected.RoleOptions(c.filterDialog.Data().Resources, text), nil
}

// ConfirmFilter applies a selection and refetches.
func (c *Chart) ConfirmFilter(ctx context.Context, sel filter.Selection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogFilter); err != nil {
		return err
	}
	return c.filterDialog.Confirm(ctx, sel)
}

func (c *Chart) confirmFilter(ctx context.Context, sel filter.Selection) error {
	if err := sel.Criteria().Validate(); err != nil {
		return err
	}
	prev := c.selection
	c.selection = sel
	if err := c.refresh(ctx); err != nil {
		c.selection = prev
		return err
	}
	c.logger.Debug().Str("filters", sel.Message()).Msg("Filters applied")
	return nil
}

// Selection returns the applied filter selection.
func (c *Chart) Selection() filter.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// OpenAddResource lists the resources that are not on the chart yet.
func (c *Chart) OpenAddResource(ctx context.Context) (*DialogState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all, err := c.svc.FetchResources(ctx)
	if err != nil {
		return nil, c.remoteFailure(ctx, err)
	}
	var missing []models.ResourceSummary
	for _, r := range all {
		if _, ok := c.findResource(r.ID); !ok {
			missing = append(missing, r)
		}
	}
	c.addResDialog.Open(AddResourceForm{Resources: missing})
	return c.show(c.addResDialog), nil
}

// ConfirmAddResource appends the chosen resource with no allocations.
func (c *Chart) ConfirmAddResource(ctx context.Context, resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpen(DialogAddResource); err != nil {
		return err
	}
	return c.addResDialog.Confirm(ctx, resourceID)
}

func (c *Chart) confirmAddResource(_ context.Context, resourceID string) error {
	for _, s := range c.addResDialog.Data().Resources {
		if s.ID == resourceID {
			c.resources = append(c.resources, models.NewResource(s))
			c.logger.Info().Str("resource_id", s.ID).Msg("Resource added to chart")
			return nil
		}
	}
	return perrors.Invalid("resource %q cannot be added", resourceID)
}
