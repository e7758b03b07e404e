// Package chart is the timeline controller for one view: it owns the
// window, the fetched resources, the single drag gesture and the open
// dialog, and chains saves before refreshes.
package chart

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	"github.com/p-blackswan/allocation-timeline/internal/dataservice"
	"github.com/p-blackswan/allocation-timeline/internal/drag"
	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/models"
	"github.com/p-blackswan/allocation-timeline/internal/notify"
)

// DefaultShiftDays is how far previous/next move the window.
const DefaultShiftDays = 7

// Recorder receives gesture and commit outcomes.
type Recorder interface {
	RecordGesture(direction, outcome string)
	RecordCommit(kind, result string)
}

// Options configures a chart.
type Options struct {
	// ID names the chart in logs and notices.
	ID string
	// OwnerID scopes the chart to a project or a resource.
	OwnerID   string
	View      calendar.View
	WeekStart time.Weekday
	ShiftDays int
	Location  *time.Location
	Grids     *calendar.GridCache
	Notifier  notify.Notifier
	Recorder  Recorder
	Now       func() time.Time
}

func (o *Options) applyDefaults() {
	if o.View == (calendar.View{}) {
		o.View = calendar.WeekView
	}
	if o.ShiftDays == 0 {
		o.ShiftDays = DefaultShiftDays
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Chart is safe for concurrent use; calls are processed one at a time.
type Chart struct {
	mu     sync.Mutex
	svc    dataservice.Service
	opts   Options
	logger zerolog.Logger

	window    calendar.Window
	grid      *calendar.Grid
	projectID *string
	projects  []models.Project
	roles     []string
	resources []models.Resource
	selection filter.Selection
	loaded    bool
	stale     bool

	drag *drag.Machine

	dialog       openDialog
	createDialog *Dialog[CreateForm, AllocationInput]
	editDialog   *Dialog[EditForm, AllocationInput]
	deleteDialog *Dialog[DeleteForm, struct{}]
	filterDialog *Dialog[FilterForm, filter.Selection]
	addResDialog *Dialog[AddResourceForm, string]
}

// New creates a chart showing the week of today. Nothing is fetched until
// Refresh.
func New(svc dataservice.Service, opts Options, logger zerolog.Logger) (*Chart, error) {
	opts.applyDefaults()
	today := models.Today(opts.Now(), opts.Location)
	w, err := calendar.NewWindow(today, opts.View, opts.WeekStart)
	if err != nil {
		return nil, err
	}

	c := &Chart{
		svc:          svc,
		opts:         opts,
		logger:       logger.With().Str("component", "chart").Str("view_id", opts.ID).Logger(),
		drag:         drag.NewMachine(opts.Location),
		createDialog: newDialog[CreateForm, AllocationInput](DialogCreate),
		editDialog:   newDialog[EditForm, AllocationInput](DialogEdit),
		deleteDialog: newDialog[DeleteForm, struct{}](DialogDelete),
		filterDialog: newDialog[FilterForm, filter.Selection](DialogFilter),
		addResDialog: newDialog[AddResourceForm, string](DialogAddResource),
	}
	c.createDialog.OnConfirm(c.confirmCreate)
	c.editDialog.OnConfirm(c.confirmEdit)
	c.deleteDialog.OnConfirm(c.confirmDelete)
	c.filterDialog.OnConfirm(c.confirmFilter)
	c.addResDialog.OnConfirm(c.confirmAddResource)
	c.setWindow(w)
	return c, nil
}

// ID returns the chart id.
func (c *Chart) ID() string { return c.opts.ID }

// Window returns the visible window.
func (c *Chart) Window() calendar.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Refresh refetches the window's data and merges it into the chart.
func (c *Chart) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx)
}

// Today moves the window to the week of today.
func (c *Chart) Today(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, err := calendar.NewWindow(c.today(), c.window.View, c.window.WeekStart)
	if err != nil {
		return err
	}
	return c.navigate(ctx, w)
}

// Previous moves the window back by the shift.
func (c *Chart) Previous(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigate(ctx, c.window.Shift(-c.opts.ShiftDays))
}

// Next moves the window forward by the shift.
func (c *Chart) Next(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigate(ctx, c.window.Shift(c.opts.ShiftDays))
}

// GoTo moves the window to the week containing date (YYYY-MM-DD). An
// invalid date leaves the chart unchanged.
func (c *Chart) GoTo(ctx context.Context, date string) error {
	pivot, err := calendar.ParsePivot(date)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w, err := calendar.NewWindow(pivot, c.window.View, c.window.WeekStart)
	if err != nil {
		return err
	}
	return c.navigate(ctx, w)
}

// SetView changes the granularity to a "<slotSize>/<slotCount>" value,
// keeping the window start.
func (c *Chart) SetView(ctx context.Context, value string) error {
	v, err := calendar.ParseView(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w, err := c.window.WithView(v)
	if err != nil {
		return err
	}
	return c.navigate(ctx, w)
}

// Close cancels any active gesture and closes the open dialog.
func (c *Chart) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelGesture("closed")
	c.closeDialog()
}

// navigate cancels the gesture before the grid is rebuilt so no preview
// computed against the old window survives into the new one.
func (c *Chart) navigate(ctx context.Context, w calendar.Window) error {
	c.cancelGesture("navigated")
	c.setWindow(w)
	return c.refresh(ctx)
}

func (c *Chart) setWindow(w calendar.Window) {
	c.window = w
	if c.opts.Grids != nil {
		c.grid = c.opts.Grids.Get(w, c.today())
	} else {
		c.grid = calendar.BuildWindow(w, c.today())
	}
	c.logger.Debug().
		Str("start", models.FormatDate(w.Start)).
		Str("view", w.View.String()).
		Msg("Grid rebuilt")
}

func (c *Chart) today() time.Time {
	return models.Today(c.opts.Now(), c.opts.Location)
}

func (c *Chart) refresh(ctx context.Context) error {
	q := dataservice.NewChartQuery(c.opts.OwnerID, c.window.Start, c.window.End(),
		c.window.View.SlotSize, c.selection.Criteria(), c.opts.Location)
	data, err := c.svc.FetchChartData(ctx, q)
	if err != nil {
		return c.remoteFailure(ctx, err)
	}

	c.projectID = data.ProjectID
	c.projects = data.Projects
	c.roles = data.Roles
	before := len(c.resources)
	c.resources = Merge(c.resources, data.Resources)
	c.loaded = true
	c.stale = false

	c.logger.Debug().
		Int("incoming", len(data.Resources)).
		Int("before", before).
		Int("after", len(c.resources)).
		Msg("Chart data merged")
	return nil
}

// Merge applies incoming resources to local: every local resource is
// emptied, then incoming resources replace the local entry with the same id
// in place or are appended.
func Merge(local, incoming []models.Resource) []models.Resource {
	out := make([]models.Resource, len(local), len(local)+len(incoming))
	index := make(map[string]int, len(local))
	for i, r := range local {
		out[i] = r.Cleared()
		index[r.ID] = i
	}
	for _, r := range incoming {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// remoteFailure reports a failed data service call and returns it. Local
// state is left as it was.
// refreshAfterWrite reloads after a committed save or delete. The write
// stands even when the reload fails: the failure is notified and the chart
// is marked stale instead of reporting the write as failed.
func (c *Chart) refreshAfterWrite(ctx context.Context) bool {
	if err := c.refresh(ctx); err != nil {
		c.stale = true
		return false
	}
	return true
}

func (c *Chart) remoteFailure(ctx context.Context, err error) error {
	c.logger.Error().Err(err).Msg("Data service call failed")
	if c.opts.Notifier != nil {
		if nerr := c.opts.Notifier.Notify(ctx, notify.FromError(c.opts.ID, err)); nerr != nil {
			c.logger.Warn().Err(nerr).Msg("Failed to deliver notice")
		}
	}
	return err
}

func (c *Chart) projectMap() map[string]models.Project {
	m := make(map[string]models.Project, len(c.projects))
	for _, p := range c.projects {
		m[p.ID] = p
	}
	return m
}

func (c *Chart) findAllocation(id string) (models.Allocation, *models.Resource, bool) {
	for i := range c.resources {
		if a, ok := c.resources[i].Find(id); ok {
			return a, &c.resources[i], true
		}
	}
	return models.Allocation{}, nil, false
}

func (c *Chart) findResource(id string) (*models.Resource, bool) {
	for i := range c.resources {
		if c.resources[i].ID == id {
			return &c.resources[i], true
		}
	}
	return nil, false
}

func (c *Chart) recordGesture(dir drag.Direction, outcome string) {
	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordGesture(string(dir), outcome)
	}
}

func (c *Chart) recordCommit(kind string, err error) {
	if c.opts.Recorder == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.opts.Recorder.RecordCommit(kind, result)
}
