package models

import (
	"sort"
)

// NoProject keys the group of allocations that have no project.
const NoProject = ""

// Color is a project palette key.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorTeal   Color = "teal"
	ColorYellow Color = "yellow"
	ColorGray   Color = "gray"
)

// Palette lists the colors a project may use.
var Palette = []Color{ColorBlue, ColorGreen, ColorPurple, ColorOrange, ColorRed, ColorTeal, ColorYellow, ColorGray}

// IsValidColor checks if s is a palette key.
func IsValidColor(s string) bool {
	for _, c := range Palette {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Project is a unit of work resources are allocated to.
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// ResourceSummary is a resource without its allocations.
type ResourceSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DefaultRole string `json:"default_role"`
}

// Resource is a row on the chart.
type Resource struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	DefaultRole          string                  `json:"default_role"`
	AllocationsByProject map[string][]Allocation `json:"allocations_by_project"`
}

// NewResource returns a resource with no allocations.
func NewResource(s ResourceSummary) Resource {
	return Resource{
		ID:                   s.ID,
		Name:                 s.Name,
		DefaultRole:          s.DefaultRole,
		AllocationsByProject: map[string][]Allocation{},
	}
}

// Summary drops the allocations.
func (r Resource) Summary() ResourceSummary {
	return ResourceSummary{ID: r.ID, Name: r.Name, DefaultRole: r.DefaultRole}
}

// Link is the record page path of the resource.
func (r Resource) Link() string {
	return "/" + r.ID
}

// Cleared returns a copy of r with its allocations emptied.
func (r Resource) Cleared() Resource {
	return NewResource(r.Summary())
}

// Add appends a to the group of its project.
func (r *Resource) Add(a Allocation) {
	if r.AllocationsByProject == nil {
		r.AllocationsByProject = map[string][]Allocation{}
	}
	key := a.Project()
	r.AllocationsByProject[key] = append(r.AllocationsByProject[key], a)
}

// Find returns the allocation with the given id.
func (r Resource) Find(allocationID string) (Allocation, bool) {
	for _, group := range r.AllocationsByProject {
		for _, a := range group {
			if a.ID == allocationID {
				return a, true
			}
		}
	}
	return Allocation{}, false
}

// ProjectOrder returns the project keys of r in row order: by project name,
// then id, with the project-less group last.
func (r Resource) ProjectOrder(projects map[string]Project) []string {
	keys := make([]string, 0, len(r.AllocationsByProject))
	hasNone := false
	for k := range r.AllocationsByProject {
		if k == NoProject {
			hasNone = true
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := projects[keys[i]].Name, projects[keys[j]].Name
		if ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	if hasNone {
		keys = append(keys, NoProject)
	}
	return keys
}
