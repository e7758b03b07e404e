package chart

import (
	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	"github.com/p-blackswan/allocation-timeline/internal/drag"
	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/geometry"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Layout is everything a renderer needs to draw the chart.
type Layout struct {
	ID            string           `json:"id"`
	OwnerID       string           `json:"owner_id,omitempty"`
	ProjectID     *string          `json:"project_id,omitempty"`
	Title         string           `json:"title"`
	Grid          *calendar.Grid   `json:"grid"`
	Filters       filter.Selection `json:"filters"`
	FilterMessage string           `json:"filter_message,omitempty"`
	Roles         []string         `json:"roles"`
	Resources     []ResourceLayout `json:"resources"`
	Gesture       *GestureLayout   `json:"gesture,omitempty"`
	Dialog        *DialogState     `json:"dialog,omitempty"`
	Loaded        bool             `json:"loaded"`
	// Stale is set when a write succeeded but the reload after it failed.
	Stale bool `json:"stale,omitempty"`
}

// ResourceLayout is one resource and its project rows.
type ResourceLayout struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DefaultRole string      `json:"default_role"`
	Link        string      `json:"link"`
	Visible     bool        `json:"visible"`
	Rows        []RowLayout `json:"rows"`
}

// RowLayout is one resource-project row.
type RowLayout struct {
	ProjectID string          `json:"project_id"`
	Project   *models.Project `json:"project,omitempty"`
	Link      string          `json:"link,omitempty"`
	Lanes     int             `json:"lanes"`
	Visible   bool            `json:"visible"`
	Bars      []BarLayout     `json:"bars"`
}

// BarLayout is a placed allocation and its filter visibility. Dragging
// marks the bar showing a gesture's candidate.
type BarLayout struct {
	geometry.Placed
	Visible  bool `json:"visible"`
	Dragging bool `json:"dragging"`
}

// GestureLayout describes the active gesture.
type GestureLayout struct {
	State   drag.State    `json:"state"`
	Session drag.Session  `json:"session"`
	Bar     *geometry.Bar `json:"bar,omitempty"`
}

// Layout maps the chart onto its window.
func (c *Chart) Layout() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Layout{
		ID:            c.opts.ID,
		OwnerID:       c.opts.OwnerID,
		ProjectID:     c.projectID,
		Title:         c.window.Title(),
		Grid:          c.grid,
		Filters:       c.selection,
		FilterMessage: c.selection.Message(),
		Roles:         c.roles,
		Dialog:        c.dialogState(),
		Loaded:        c.loaded,
		Stale:         c.stale,
		Resources:     make([]ResourceLayout, 0, len(c.resources)),
	}

	session, dragging := c.drag.Session()
	if dragging {
		g := &GestureLayout{State: c.drag.State(), Session: session}
		if bar, ok := geometry.MapAllocation(c.window, session.Candidate); ok {
			g.Bar = &bar
		}
		out.Gesture = g
	}

	crit := c.selection.Criteria()
	projects := c.projectMap()
	for _, r := range c.resources {
		if dragging && !session.Create && session.Candidate.ResourceID == r.ID {
			r = withCandidate(r, session.Candidate)
		}
		rl := ResourceLayout{
			ID:          r.ID,
			Name:        r.Name,
			DefaultRole: r.DefaultRole,
			Link:        r.Link(),
			Visible:     crit.ResourceVisible(r),
		}
		for _, row := range geometry.LayoutResource(c.window, r, projects) {
			rowLayout := RowLayout{
				ProjectID: row.ProjectID,
				Project:   row.Project,
				Lanes:     row.Lanes,
				Visible:   crit.ProjectVisible(row.ProjectID),
				Bars:      make([]BarLayout, 0, len(row.Bars)),
			}
			if row.ProjectID != models.NoProject {
				rowLayout.Link = "/" + row.ProjectID
			}
			for _, placed := range row.Bars {
				v := filter.Evaluate(r, row.ProjectID, placed.Allocation, crit)
				rowLayout.Bars = append(rowLayout.Bars, BarLayout{
					Placed:   placed,
					Visible:  v.Allocation,
					Dragging: dragging && !session.Create && placed.Allocation.ID == session.AllocationID,
				})
			}
			rl.Rows = append(rl.Rows, rowLayout)
		}
		out.Resources = append(out.Resources, rl)
	}
	return out
}

// withCandidate returns a copy of r with the candidate in place of the
// allocation with the same id.
func withCandidate(r models.Resource, cand models.Allocation) models.Resource {
	groups := make(map[string][]models.Allocation, len(r.AllocationsByProject))
	for pid, allocs := range r.AllocationsByProject {
		cp := make([]models.Allocation, len(allocs))
		copy(cp, allocs)
		for i := range cp {
			if cp[i].ID == cand.ID {
				cp[i] = cand
			}
		}
		groups[pid] = cp
	}
	r.AllocationsByProject = groups
	return r
}
