// Package filter decides which resources, projects and allocations a set of
// filter criteria shows. Filtering never removes data; callers dim or hide
// entities by the returned flags.
package filter

import (
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Criteria restricts the chart. An empty set or nil status places no
// restriction on that axis.
type Criteria struct {
	ProjectIDs []string       `json:"projects,omitempty"`
	Roles      []string       `json:"roles,omitempty"`
	Status     *models.Status `json:"status,omitempty"`
}

// Visibility is the outcome of Evaluate.
type Visibility struct {
	Resource   bool `json:"resource"`
	Project    bool `json:"project"`
	Allocation bool `json:"allocation"`
}

// IsEmpty reports whether c restricts nothing.
func (c Criteria) IsEmpty() bool {
	return len(c.ProjectIDs) == 0 && len(c.Roles) == 0 && c.Status == nil
}

// ProjectVisible reports whether a project row passes the project axis.
func (c Criteria) ProjectVisible(projectID string) bool {
	return len(c.ProjectIDs) == 0 || contains(c.ProjectIDs, projectID)
}

// ResourceVisible reports whether a resource passes the role axis by its
// default role.
func (c Criteria) ResourceVisible(r models.Resource) bool {
	return len(c.Roles) == 0 || contains(c.Roles, r.DefaultRole)
}

// AllocationVisible reports whether a passes the role and status axes.
func (c Criteria) AllocationVisible(a models.Allocation) bool {
	roleMatch := len(c.Roles) == 0 || contains(c.Roles, a.Role)
	statusMatch := c.Status == nil || a.Status == *c.Status
	return roleMatch && statusMatch
}

// Evaluate applies c to one allocation in its project row of a resource.
func Evaluate(r models.Resource, projectID string, a models.Allocation, c Criteria) Visibility {
	return Visibility{
		Resource:   c.ResourceVisible(r),
		Project:    c.ProjectVisible(projectID),
		Allocation: c.AllocationVisible(a),
	}
}

// Validate rejects an unknown status.
func (c Criteria) Validate() error {
	if c.Status != nil && !models.IsValidStatus(string(*c.Status)) {
		return invalidStatus(*c.Status)
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
