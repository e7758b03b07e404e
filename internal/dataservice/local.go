package dataservice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
	"github.com/p-blackswan/allocation-timeline/internal/store"
)

// Local serves the data service from the SQLite store.
type Local struct {
	store  *store.Store
	loc    *time.Location
	logger zerolog.Logger
}

// NewLocal creates a store-backed service. loc decodes wire dates.
func NewLocal(s *store.Store, loc *time.Location, logger zerolog.Logger) *Local {
	return &Local{
		store:  s,
		loc:    loc,
		logger: logger.With().Str("component", "dataservice").Str("backend", "local").Logger(),
	}
}

// Ping checks the store.
func (l *Local) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// FetchChartData returns the resources and allocations for the window. An
// owner id naming a project scopes the chart to that project; one naming a
// resource shows only that resource. Filters drop allocations and resources
// the same way the chart dims them.
func (l *Local) FetchChartData(ctx context.Context, q ChartQuery) (*ChartData, error) {
	start, end := q.Window(l.loc)
	if end.Before(start) {
		return nil, perrors.Invalid("window ends before it starts")
	}
	if err := q.Filters.Validate(); err != nil {
		return nil, err
	}

	projects, err := l.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := l.store.ListResources(ctx)
	if err != nil {
		return nil, err
	}

	data := &ChartData{Projects: projects, Roles: distinctRoles(summaries)}
	aq := store.AllocationQuery{Start: start, End: end}

	if q.OwnerID != "" {
		switch {
		case hasProject(projects, q.OwnerID):
			data.ProjectID = models.StringPtr(q.OwnerID)
			aq.ProjectID = q.OwnerID
		case hasResource(summaries, q.OwnerID):
			aq.ResourceID = q.OwnerID
			summaries = onlyResource(summaries, q.OwnerID)
		default:
			return nil, fmt.Errorf("owner %q: %w", q.OwnerID, perrors.ErrNotFound)
		}
	}

	allocs, err := l.store.ListAllocations(ctx, aq)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Resource, len(summaries))
	order := make([]string, 0, len(summaries))
	add := func(s models.ResourceSummary) {
		if _, ok := byID[s.ID]; ok {
			return
		}
		r := models.NewResource(s)
		byID[s.ID] = &r
		order = append(order, s.ID)
	}
	if data.ProjectID == nil {
		// unscoped charts list every resource, even idle ones
		for _, s := range summaries {
			add(s)
		}
	}

	crit := q.Filters
	for _, a := range allocs {
		if !crit.ProjectVisible(a.Project()) || !crit.AllocationVisible(a) {
			continue
		}
		if _, ok := byID[a.ResourceID]; !ok {
			s, ok := findResource(summaries, a.ResourceID)
			if !ok {
				continue
			}
			add(s)
		}
		byID[a.ResourceID].Add(a)
	}

	for _, id := range order {
		r := *byID[id]
		if crit.ResourceVisible(r) {
			data.Resources = append(data.Resources, r)
		}
	}
	l.logger.Debug().
		Str("start", models.FormatDate(start)).
		Str("end", models.FormatDate(end)).
		Int("resources", len(data.Resources)).
		Int("allocations", len(allocs)).
		Msg("Chart data served")
	return data, nil
}

// FetchResources lists resource summaries.
func (l *Local) FetchResources(ctx context.Context) ([]models.ResourceSummary, error) {
	return l.store.ListResources(ctx)
}

// FetchProjects lists projects.
func (l *Local) FetchProjects(ctx context.Context) ([]models.Project, error) {
	return l.store.ListProjects(ctx)
}

// SaveAllocation creates or patches an allocation.
func (l *Local) SaveAllocation(ctx context.Context, p models.AllocationPatch) (*SaveResult, error) {
	var a models.Allocation
	if p.IsCreate() {
		if err := p.ValidateCreate(); err != nil {
			return nil, err
		}
		r, err := l.store.GetResource(ctx, p.ResourceID)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("resource %q: %w", p.ResourceID, perrors.ErrNotFound)
		}
		a = models.Allocation{Status: models.StatusActive, Effort: models.EffortMedium, Role: r.DefaultRole}
	} else {
		existing, err := l.store.GetAllocation(ctx, p.AllocationID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("allocation %q: %w", p.AllocationID, perrors.ErrNotFound)
		}
		a = *existing
	}

	a = p.Apply(a, l.loc)
	if a.ProjectID != nil {
		proj, err := l.store.GetProject(ctx, *a.ProjectID)
		if err != nil {
			return nil, err
		}
		if proj == nil {
			return nil, fmt.Errorf("project %q: %w", *a.ProjectID, perrors.ErrNotFound)
		}
	}
	if err := l.store.SaveAllocation(ctx, &a); err != nil {
		return nil, err
	}
	l.logger.Info().
		Str("allocation_id", a.ID).
		Bool("created", p.IsCreate()).
		Str("start", models.FormatDate(a.StartDate)).
		Str("end", models.FormatDate(a.EndDate)).
		Msg("Allocation saved")
	return &SaveResult{AllocationID: a.ID}, nil
}

// DeleteAllocation removes an allocation.
func (l *Local) DeleteAllocation(ctx context.Context, allocationID string) error {
	ok, err := l.store.DeleteAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("allocation %q: %w", allocationID, perrors.ErrNotFound)
	}
	l.logger.Info().Str("allocation_id", allocationID).Msg("Allocation deleted")
	return nil
}

func distinctRoles(rs []models.ResourceSummary) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rs {
		if r.DefaultRole != "" && !seen[r.DefaultRole] {
			seen[r.DefaultRole] = true
			out = append(out, r.DefaultRole)
		}
	}
	sort.Strings(out)
	return out
}

func hasProject(ps []models.Project, id string) bool {
	for _, p := range ps {
		if p.ID == id {
			return true
		}
	}
	return false
}

func hasResource(rs []models.ResourceSummary, id string) bool {
	_, ok := findResource(rs, id)
	return ok
}

func findResource(rs []models.ResourceSummary, id string) (models.ResourceSummary, bool) {
	for _, r := range rs {
		if r.ID == id {
			return r, true
		}
	}
	return models.ResourceSummary{}, false
}

func onlyResource(rs []models.ResourceSummary, id string) []models.ResourceSummary {
	r, _ := findResource(rs, id)
	return []models.ResourceSummary{r}
}
