package geometry

import (
	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Row is one resource-project group of a resource.
type Row struct {
	ProjectID string          `json:"project_id"`
	Project   *models.Project `json:"project,omitempty"`
	// Lanes is the number of lanes the row needs, one per allocation.
	Lanes int      `json:"lanes"`
	Bars  []Placed `json:"bars"`
}

// LayoutResource maps every allocation of r, grouped into rows in
// models.Resource.ProjectOrder order. Rows whose allocations all fall
// outside the window are kept with no bars.
func LayoutResource(w calendar.Window, r models.Resource, projects map[string]models.Project) []Row {
	order := r.ProjectOrder(projects)
	rows := make([]Row, 0, len(order))
	for _, pid := range order {
		allocs := r.AllocationsByProject[pid]
		row := Row{ProjectID: pid, Lanes: len(allocs)}
		if p, ok := projects[pid]; ok {
			p := p
			row.Project = &p
		}
		row.Bars = Lanes(w, row.Project, allocs)
		rows = append(rows, row)
	}
	return rows
}
