// Package dataservice is the contract the timeline uses to read and write
// allocations, plus an HTTP client and a store-backed implementation of it.
package dataservice

import (
	"context"
	"time"

	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Operation names, used in errors, metrics and notices.
const (
	OpFetchChartData   = "fetch_chart_data"
	OpFetchResources   = "fetch_resources"
	OpFetchProjects    = "fetch_projects"
	OpSaveAllocation   = "save_allocation"
	OpDeleteAllocation = "delete_allocation"
)

// ChartQuery asks for the data behind one window. Window bounds use the
// offset-adjusted epoch-millis encoding of models.EncodeDate.
type ChartQuery struct {
	OwnerID     string          `json:"owner_id,omitempty"`
	WindowStart int64           `json:"window_start"`
	WindowEnd   int64           `json:"window_end"`
	SlotSize    int             `json:"slot_size"`
	Filters     filter.Criteria `json:"filters"`
}

// NewChartQuery encodes the window [start, end] in loc.
func NewChartQuery(ownerID string, start, end time.Time, slotSize int, c filter.Criteria, loc *time.Location) ChartQuery {
	return ChartQuery{
		OwnerID:     ownerID,
		WindowStart: models.EncodeDate(start, loc),
		WindowEnd:   models.EncodeDate(end, loc),
		SlotSize:    slotSize,
		Filters:     c,
	}
}

// Window decodes the query bounds.
func (q ChartQuery) Window(loc *time.Location) (start, end time.Time) {
	return models.DecodeDate(q.WindowStart, loc), models.DecodeDate(q.WindowEnd, loc)
}

// ChartData is everything needed to draw a window. ProjectID is set when
// the chart is scoped to one project.
type ChartData struct {
	ProjectID *string           `json:"project_id,omitempty"`
	Projects  []models.Project  `json:"projects"`
	Roles     []string          `json:"roles"`
	Resources []models.Resource `json:"resources"`
}

// SaveResult identifies the allocation a save wrote.
type SaveResult struct {
	AllocationID string `json:"allocation_id"`
}

// Service is the data service.
type Service interface {
	FetchChartData(ctx context.Context, q ChartQuery) (*ChartData, error)
	FetchResources(ctx context.Context) ([]models.ResourceSummary, error)
	FetchProjects(ctx context.Context) ([]models.Project, error)
	SaveAllocation(ctx context.Context, p models.AllocationPatch) (*SaveResult, error)
	DeleteAllocation(ctx context.Context, allocationID string) error
}
