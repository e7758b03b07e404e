package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	"github.com/p-blackswan/allocation-timeline/internal/chart"
	"github.com/p-blackswan/allocation-timeline/internal/drag"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/models"
	"github.com/p-blackswan/allocation-timeline/internal/views"
)

// gridResponse is a built grid with its slots.
type gridResponse struct {
	Title string          `json:"title"`
	Grid  *calendar.Grid  `json:"grid"`
	Today string          `json:"today"`
	Slots []calendar.Slot `json:"slots"`
}

// getGrid handles GET /api/v1/grid?date=YYYY-MM-DD&view=1/14.
func (s *Server) getGrid(c *fiber.Ctx) error {
	today := models.Today(s.deps.Now(), s.deps.Location)
	pivot := today
	if d := c.Query("date"); d != "" {
		p, err := calendar.ParsePivot(d)
		if err != nil {
			return errorResponse(c, err)
		}
		pivot = p
	}

	view := calendar.WeekView
	if s.deps.Views != nil {
		view = s.deps.Views.Views().Default()
	}
	if v := c.Query("view"); v != "" {
		parsed, err := calendar.ParseView(v)
		if err != nil {
			return errorResponse(c, err)
		}
		view = parsed
	}

	w, err := calendar.NewWindow(pivot, view, s.deps.WeekStart)
	if err != nil {
		return errorResponse(c, err)
	}
	g := s.deps.Grids.Get(w, today)
	return c.JSON(gridResponse{Title: w.Title(), Grid: g, Today: models.FormatDate(today), Slots: g.Slots})
}

// viewConfig handles GET /api/v1/views/config.
func (s *Server) viewConfig(c *fiber.Ctx) error {
	return c.JSON(s.deps.Views.Views())
}

// openView handles POST /api/v1/views.
func (s *Server) openView(c *fiber.Ctx) error {
	var req views.OpenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
	}
	ch, err := s.deps.Views.Open(c.UserContext(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ch.Layout())
}

// withChart resolves :id and runs fn against the session.
func (s *Server) withChart(c *fiber.Ctx, fn func(ch *chart.Chart) error) error {
	ch, err := s.deps.Views.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return fn(ch)
}

// layoutAfter runs op and answers with the layout, or the mapped error.
func (s *Server) layoutAfter(c *fiber.Ctx, op func(ch *chart.Chart) error) error {
	return s.withChart(c, func(ch *chart.Chart) error {
		if err := op(ch); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(ch.Layout())
	})
}

// getView handles GET /api/v1/views/:id.
func (s *Server) getView(c *fiber.Ctx) error {
	return s.layoutAfter(c, func(*chart.Chart) error { return nil })
}

// closeView handles DELETE /api/v1/views/:id.
func (s *Server) closeView(c *fiber.Ctx) error {
	if err := s.deps.Views.Close(c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// refreshView handles POST /api/v1/views/:id/refresh.
func (s *Server) refreshView(c *fiber.Ctx) error {
	return s.layoutAfter(c, func(ch *chart.Chart) error {
		return ch.Refresh(c.UserContext())
	})
}

// NavigateRequest moves a view's window.
type NavigateRequest struct {
	// Action is one of today, previous, next or date.
	Action string `json:"action"`
	Date   string `json:"date,omitempty"`
}

// navigate handles POST /api/v1/views/:id/navigate.
func (s *Server) navigate(c *fiber.Ctx) error {
	var req NavigateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return s.layoutAfter(c, func(ch *chart.Chart) error {
		ctx := c.UserContext()
		switch req.Action {
		case "today":
			return ch.Today(ctx)
		case "previous":
			return ch.Previous(ctx)
		case "next":
			return ch.Next(ctx)
		case "date":
			return ch.GoTo(ctx, req.Date)
		default:
			return perrors.Invalid("unknown navigation action %q", req.Action)
		}
	})
}

// setView handles POST /api/v1/views/:id/view.
func (s *Server) setView(c *fiber.Ctx) error {
	var req struct {
		View string `json:"view"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if _, err := s.deps.Views.Views().Lookup(req.View); err != nil {
		return errorResponse(c, err)
	}
	return s.layoutAfter(c, func(ch *chart.Chart) error {
		return ch.SetView(c.UserContext(), req.View)
	})
}

// openFilter handles POST /api/v1/views/:id/filters.
func (s *Server) openFilter(c *fiber.Ctx) error {
	return s.withChart(c, func(ch *chart.Chart) error {
		state, err := ch.OpenFilter(c.UserContext())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(state)
	})
}

// FilterOptionsRequest searches the open filter dialog.
type FilterOptionsRequest struct {
	// Kind is project or role.
	Kind      string           `json:"kind"`
	Text      string           `json:"text"`
	Selection filter.Selection `json:"selection"`
}

// filterOptions handles POST /api/v1/views/:id/filters/options.
func (s *Server) filterOptions(c *fiber.Ctx) error {
	var req FilterOptionsRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return s.withChart(c, func(ch *chart.Chart) error {
		var (
			out any
			err error
		)
		switch req.Kind {
		case "project":
			out, err = ch.ProjectOptions(req.Text, req.Selection)
		case "role":
			out, err = ch.RoleOptions(req.Text, req.Selection)
		default:
			err = perrors.Invalid("unknown option kind %q", req.Kind)
		}
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"options": out})
	})
}

// GestureRequest addresses a slot, and an allocation or resource row.
type GestureRequest struct {
	AllocationID string `json:"allocation_id,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Direction    string `json:"direction,omitempty"`
	Slot         *int   `json:"slot"`
}

func (r GestureRequest) slot() (int, error) {
	if r.Slot == nil {
		return 0, perrors.Invalid("slot is required")
	}
	return *r.Slot, nil
}

func parseGesture(c *fiber.Ctx) (GestureRequest, int, error) {
	var req GestureRequest
	if err := c.BodyParser(&req); err != nil {
		return req, 0, err
	}
	slot, err := req.slot()
	return req, slot, err
}

// beginGesture handles POST /api/v1/views/:id/gestures/begin.
func (s *Server) beginGesture(c *fiber.Ctx) error {
	req, slot, err := parseGesture(c)
	if err != nil {
		return badBody(c, err)
	}
	return s.withChart(c, func(ch *chart.Chart) error {
		var (
			p   drag.Preview
			err error
		)
		if req.AllocationID == "" && req.ResourceID != "" {
			p, err = ch.BeginCreate(req.ResourceID, slot)
		} else {
			dir := drag.Move
			if req.Direction != "" {
				if dir, err = drag.ParseDirection(req.Direction); err != nil {
					return errorResponse(c, err)
				}
			}
			p, err = ch.BeginGesture(req.AllocationID, dir, slot)
		}
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(p)
	})
}

// enterGesture handles POST /api/v1/views/:id/gestures/enter.
func (s *Server) enterGesture(c *fiber.Ctx) error {
	_, slot, err := parseGesture(c)
	if err != nil {
		return badBody(c, err)
	}
	return s.withChart(c, func(ch *chart.Chart) error {
		p, err := ch.Enter(slot)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(p)
	})
}

// dropResponse is a drop outcome with the refreshed layout.
type dropResponse struct {
	*chart.DropResult
	Layout chart.Layout `json:"layout"`
}

// dropGesture handles POST /api/v1/views/:id/gestures/drop.
func (s *Server) dropGesture(c *fiber.Ctx) error {
	_, slot, err := parseGesture(c)
	if err != nil {
		return badBody(c, err)
	}
	return s.withChart(c, func(ch *chart.Chart) error {
		res, err := ch.Drop(c.UserContext(), slot)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(dropResponse{DropResult: res, Layout: ch.Layout()})
	})
}

// cancelGesture handles POST /api/v1/views/:id/gestures/cancel.
func (s *Server) cancelGesture(c *fiber.Ctx) error {
	return s.withChart(c, func(ch *chart.Chart) error {
		p, ok := ch.CancelGesture()
		return c.JSON(fiber.Map{"cancelled": ok, "preview": p})
	})
}

// click handles POST /api/v1/views/:id/gestures/click.
func (s *Server) click(c *fiber.Ctx) error {
	req, slot, err := parseGesture(c)
	if err != nil {
		return badBody(c, err)
	}
	return s.withChart(c, func(ch *chart.Chart) error {
		res, err := ch.Click(c.UserContext(), req.ResourceID, slot)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(res)
	})
}

// openDialog handles POST /api/v1/views/:id/dialogs/:kind for the edit,
// delete and add-resource dialogs.
func (s *Server) openDialog(c *fiber.Ctx) error {
	var req struct {
		AllocationID string `json:"allocation_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
	}
	return s.withChart(c, func(ch *chart.Chart) error {
		var (
			state *chart.DialogState
			err   error
		)
		switch chart.DialogKind(c.Params("kind")) {
		case chart.DialogEdit:
			state, err = ch.OpenEdit(req.AllocationID)
		case chart.DialogDelete:
			state, err = ch.OpenDelete(req.AllocationID)
		case chart.DialogAddResource:
			state, err = ch.OpenAddResource(c.UserContext())
		case chart.DialogFilter:
			state, err = ch.OpenFilter(c.UserContext())
		default:
			err = perrors.Invalid("dialog %q cannot be opened directly", c.Params("kind"))
		}
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(state)
	})
}

// confirmDialog handles POST /api/v1/views/:id/dialog/confirm. The body
// shape depends on the open dialog.
func (s *Server) confirmDialog(c *fiber.Ctx) error {
	return s.withChart(c, func(ch *chart.Chart) error {
		state := ch.Dialog()
		if state == nil {
			return problemResponse(c, fiber.StatusConflict,
				"no_dialog", "Conflict", "No dialog is open")
		}

		ctx := c.UserContext()
		var err error
		switch state.Kind {
		case chart.DialogCreate, chart.DialogEdit:
			var in chart.AllocationInput
			if perr := c.BodyParser(&in); perr != nil {
				return badBody(c, perr)
			}
			if state.Kind == chart.DialogCreate {
				err = ch.ConfirmCreate(ctx, in)
			} else {
				err = ch.ConfirmEdit(ctx, in)
			}
		case chart.DialogDelete:
			err = ch.ConfirmDelete(ctx)
		case chart.DialogFilter:
			var sel filter.Selection
			if perr := c.BodyParser(&sel); perr != nil {
				return badBody(c, perr)
			}
			err = ch.ConfirmFilter(ctx, sel)
		case chart.DialogAddResource:
			var in struct {
				ResourceID string `json:"resource_id"`
			}
			if perr := c.BodyParser(&in); perr != nil {
				return badBody(c, perr)
			}
			err = ch.ConfirmAddResource(ctx, in.ResourceID)
		}
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(ch.Layout())
	})
}

// closeDialog handles POST /api/v1/views/:id/dialog/close.
func (s *Server) closeDialog(c *fiber.Ctx) error {
	return s.layoutAfter(c, func(ch *chart.Chart) error {
		ch.CloseDialog()
		return nil
	})
}
