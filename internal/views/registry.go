// Package views keeps the live chart sessions the API drives, bounded by
// an LRU so abandoned sessions are eventually dropped.
package views

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/allocation-timeline/internal/chart"
	"github.com/p-blackswan/allocation-timeline/internal/config"
	"github.com/p-blackswan/allocation-timeline/internal/dataservice"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/lru"
)

// DefaultCapacity is used when no capacity is given.
const DefaultCapacity = 256

// OpenRequest describes a new session.
type OpenRequest struct {
	OwnerID string `json:"owner_id"`
	// View is a configured "<slotSize>/<slotCount>" value; empty uses the
	// default view.
	View string `json:"view"`
	// Date is a YYYY-MM-DD pivot; empty starts on today.
	Date string `json:"date"`
}

// Registry holds open chart sessions.
type Registry struct {
	svc      dataservice.Service
	base     chart.Options
	views    *config.Views
	charts   *lru.Cache[string, *chart.Chart]
	onChange func(open int)
	root     zerolog.Logger
	logger   zerolog.Logger
}

// NewRegistry creates a registry holding up to capacity sessions. base
// supplies the options shared by every chart; views the picker values.
// onChange, if set, is told the session count after every change.
func NewRegistry(svc dataservice.Service, base chart.Options, views *config.Views, capacity int, onChange func(open int), logger zerolog.Logger) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if views == nil {
		views = config.DefaultViews()
	}
	r := &Registry{
		svc:      svc,
		base:     base,
		views:    views,
		onChange: onChange,
		root:     logger,
		logger:   logger.With().Str("component", "views").Logger(),
	}
	r.charts = lru.New[string, *chart.Chart](capacity, r.evicted)
	return r
}

// Views returns the view picker configuration.
func (r *Registry) Views() *config.Views { return r.views }

// Open creates a session and loads its first window.
func (r *Registry) Open(ctx context.Context, req OpenRequest) (*chart.Chart, error) {
	opts := r.base
	opts.ID = uuid.NewString()
	opts.OwnerID = req.OwnerID
	opts.View = r.views.Default()
	if req.View != "" {
		v, err := r.views.Lookup(req.View)
		if err != nil {
			return nil, err
		}
		opts.View = v
	}
	if opts.ShiftDays == 0 {
		opts.ShiftDays = r.views.DateShiftDays
	}

	c, err := chart.New(r.svc, opts, r.root)
	if err != nil {
		return nil, err
	}
	if req.Date != "" {
		err = c.GoTo(ctx, req.Date)
	} else {
		err = c.Refresh(ctx)
	}
	if err != nil {
		return nil, err
	}

	r.charts.Put(c.ID(), c)
	r.changed()
	r.logger.Info().Str("view_id", c.ID()).Str("owner_id", req.OwnerID).Str("view", opts.View.String()).Msg("View opened")
	return c, nil
}

// Get returns an open session.
func (r *Registry) Get(id string) (*chart.Chart, error) {
	c, ok := r.charts.Get(id)
	if !ok {
		return nil, fmt.Errorf("view %q: %w", id, perrors.ErrNotFound)
	}
	return c, nil
}

// Close ends a session, cancelling any gesture it holds.
func (r *Registry) Close(id string) error {
	c, ok := r.charts.Remove(id)
	if !ok {
		return fmt.Errorf("view %q: %w", id, perrors.ErrNotFound)
	}
	c.Close()
	r.changed()
	r.logger.Info().Str("view_id", id).Msg("View closed")
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	return r.charts.Len()
}

// CloseAll ends every session.
func (r *Registry) CloseAll() {
	for _, id := range r.charts.Keys() {
		if c, ok := r.charts.Remove(id); ok {
			c.Close()
		}
	}
	r.changed()
}

func (r *Registry) evicted(id string, c *chart.Chart) {
	c.Close()
	r.logger.Info().Str("view_id", id).Msg("View evicted")
}

func (r *Registry) changed() {
	if r.onChange != nil {
		r.onChange(r.charts.Len())
	}
}
