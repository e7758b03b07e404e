package filter

import (
	"sort"
	"strings"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Selection is what the filter dialog edits: projects are kept whole so the
// message can name them.
type Selection struct {
	Projects []models.Project `json:"projects"`
	Roles    []string         `json:"roles"`
	Status   *models.Status   `json:"status,omitempty"`
}

// Criteria reduces s to the ids the evaluator needs.
func (s Selection) Criteria() Criteria {
	c := Criteria{Status: s.Status}
	for _, p := range s.Projects {
		c.ProjectIDs = append(c.ProjectIDs, p.ID)
	}
	c.Roles = append(c.Roles, s.Roles...)
	return c
}

// Message is the "Filtered By ..." banner for s, or "" when nothing is
// selected.
func (s Selection) Message() string {
	parts := make([]string, 0, len(s.Projects)+len(s.Roles)+1)
	for _, p := range s.Projects {
		parts = append(parts, p.Name)
	}
	parts = append(parts, s.Roles...)
	if s.Status != nil {
		parts = append(parts, string(*s.Status))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Filtered By " + strings.Join(parts, ", ")
}

// ProjectOptions returns projects whose name contains text, ignoring case,
// that are not already selected. An empty text matches nothing.
func (s Selection) ProjectOptions(projects []models.Project, text string) []models.Project {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	var out []models.Project
	for _, p := range projects {
		if p.Name == "" || !strings.Contains(strings.ToLower(p.Name), text) {
			continue
		}
		selected := false
		for _, have := range s.Projects {
			if have.ID == p.ID {
				selected = true
				break
			}
		}
		if !selected {
			out = append(out, p)
		}
	}
	return out
}

// RoleOptions returns the distinct default roles containing text, ignoring
// case, that are not already selected, sorted.
func (s Selection) RoleOptions(resources []models.ResourceSummary, text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range resources {
		role := r.DefaultRole
		if role == "" || seen[role] || contains(s.Roles, role) {
			continue
		}
		if strings.Contains(strings.ToLower(role), text) {
			seen[role] = true
			out = append(out, role)
		}
	}
	sort.Strings(out)
	return out
}

func invalidStatus(s models.Status) error {
	return perrors.Invalid("unknown status %q", string(s))
}
