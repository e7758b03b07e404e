package dataservice

import (
	"strconv"
	"strings"

	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// queryContext flattens a chart query for error reports.
func queryContext(q ChartQuery) map[string]string {
	ctx := map[string]string{
		"window_start": strconv.FormatInt(q.WindowStart, 10),
		"window_end":   strconv.FormatInt(q.WindowEnd, 10),
		"slot_size":    strconv.Itoa(q.SlotSize),
	}
	if q.OwnerID != "" {
		ctx["owner_id"] = q.OwnerID
	}
	if len(q.Filters.ProjectIDs) > 0 {
		ctx["filter_projects"] = strings.Join(q.Filters.ProjectIDs, ",")
	}
	if len(q.Filters.Roles) > 0 {
		ctx["filter_roles"] = strings.Join(q.Filters.Roles, ",")
	}
	if q.Filters.Status != nil {
		ctx["filter_status"] = string(*q.Filters.Status)
	}
	return ctx
}

// patchContext flattens the fields a patch sets.
func patchContext(p models.AllocationPatch) map[string]string {
	ctx := map[string]string{}
	if p.AllocationID != "" {
		ctx["allocation_id"] = p.AllocationID
	}
	if p.ResourceID != "" {
		ctx["resource_id"] = p.ResourceID
	}
	if p.ProjectID != nil {
		ctx["project_id"] = *p.ProjectID
	}
	if p.Status != nil {
		ctx["status"] = string(*p.Status)
	}
	if p.Effort != nil {
		ctx["effort"] = string(*p.Effort)
	}
	if p.Role != nil {
		ctx["role"] = *p.Role
	}
	if p.StartDate != nil {
		ctx["start_date"] = strconv.FormatInt(*p.StartDate, 10)
	}
	if p.EndDate != nil {
		ctx["end_date"] = strconv.FormatInt(*p.EndDate, 10)
	}
	return ctx
}
