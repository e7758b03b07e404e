package dataservice

import (
	"context"
	"errors"
	"time"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// Observer records the outcome of each call.
type Observer interface {
	ObserveDataService(op, status string, seconds float64)
}

// Instrumented wraps a Service, timing each call and wrapping failures in a
// *perrors.RemoteError carrying the request context.
type Instrumented struct {
	next Service
	obs  Observer
}

// Instrument wraps next. A nil observer only wraps errors.
func Instrument(next Service, obs Observer) *Instrumented {
	return &Instrumented{next: next, obs: obs}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	if s.obs == nil {
		return
	}
	s.obs.ObserveDataService(op, statusOf(err), time.Since(start).Seconds())
}

// FetchChartData implements Service.
func (s *Instrumented) FetchChartData(ctx context.Context, q ChartQuery) (*ChartData, error) {
	start := time.Now()
	data, err := s.next.FetchChartData(ctx, q)
	s.observe(OpFetchChartData, start, err)
	if err != nil {
		return nil, perrors.NewRemoteError(OpFetchChartData, queryContext(q), err)
	}
	return data, nil
}

// FetchResources implements Service.
func (s *Instrumented) FetchResources(ctx context.Context) ([]models.ResourceSummary, error) {
	start := time.Now()
	out, err := s.next.FetchResources(ctx)
	s.observe(OpFetchResources, start, err)
	if err != nil {
		return nil, perrors.NewRemoteError(OpFetchResources, nil, err)
	}
	return out, nil
}

// FetchProjects implements Service.
func (s *Instrumented) FetchProjects(ctx context.Context) ([]models.Project, error) {
	start := time.Now()
	out, err := s.next.FetchProjects(ctx)
	s.observe(OpFetchProjects, start, err)
	if err != nil {
		return nil, perrors.NewRemoteError(OpFetchProjects, nil, err)
	}
	return out, nil
}

// SaveAllocation implements Service.
func (s *Instrumented) SaveAllocation(ctx context.Context, p models.AllocationPatch) (*SaveResult, error) {
	start := time.Now()
	out, err := s.next.SaveAllocation(ctx, p)
	s.observe(OpSaveAllocation, start, err)
	if err != nil {
		return nil, perrors.NewRemoteError(OpSaveAllocation, patchContext(p), err)
	}
	return out, nil
}

// DeleteAllocation implements Service.
func (s *Instrumented) DeleteAllocation(ctx context.Context, allocationID string) error {
	start := time.Now()
	err := s.next.DeleteAllocation(ctx, allocationID)
	s.observe(OpDeleteAllocation, start, err)
	return perrors.NewRemoteError(OpDeleteAllocation, map[string]string{"allocation_id": allocationID}, err)
}

func statusOf(err error) string {
	var api *perrors.APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, perrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, perrors.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, perrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &api):
		return "http_error"
	default:
		return "error"
	}
}
