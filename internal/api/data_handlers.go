package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/allocation-timeline/internal/dataservice"
	"github.com/p-blackswan/allocation-timeline/internal/models"
)

func badBody(c *fiber.Ctx, err error) error {
	return problemResponse(c, fiber.StatusBadRequest,
		"invalid_body", "Bad Request",
		"Invalid request body: "+err.Error())
}

// chartData handles POST /api/v1/chart-data.
func (s *Server) chartData(c *fiber.Ctx) error {
	var q dataservice.ChartQuery
	if err := c.BodyParser(&q); err != nil {
		return badBody(c, err)
	}
	data, err := s.deps.Data.FetchChartData(c.UserContext(), q)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(data)
}

// listResources handles GET /api/v1/resources.
func (s *Server) listResources(c *fiber.Ctx) error {
	rs, err := s.deps.Data.FetchResources(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	if rs == nil {
		rs = []models.ResourceSummary{}
	}
	return c.JSON(fiber.Map{"resources": rs})
}

// listProjects handles GET /api/v1/projects.
func (s *Server) listProjects(c *fiber.Ctx) error {
	ps, err := s.deps.Data.FetchProjects(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	if ps == nil {
		ps = []models.Project{}
	}
	return c.JSON(fiber.Map{"projects": ps})
}

// saveAllocation handles POST /api/v1/allocations.
func (s *Server) saveAllocation(c *fiber.Ctx) error {
	var p models.AllocationPatch
	if err := c.BodyParser(&p); err != nil {
		return badBody(c, err)
	}
	res, err := s.deps.Data.SaveAllocation(c.UserContext(), p)
	if err != nil {
		return errorResponse(c, err)
	}
	status := fiber.StatusOK
	if p.IsCreate() {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(res)
}

// deleteAllocation handles DELETE /api/v1/allocations/:id.
func (s *Server) deleteAllocation(c *fiber.Ctx) error {
	if err := s.deps.Data.DeleteAllocation(c.UserContext(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// putResource handles PUT /api/v1/resources/:id.
func (s *Server) putResource(c *fiber.Ctx) error {
	var r models.ResourceSummary
	if err := c.BodyParser(&r); err != nil {
		return badBody(c, err)
	}
	r.ID = c.Params("id")
	if strings.TrimSpace(r.Name) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request", "name is required")
	}
	if err := s.deps.Store.UpsertResource(c.UserContext(), r); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(r)
}

// putProject handles PUT /api/v1/projects/:id.
func (s *Server) putProject(c *fiber.Ctx) error {
	var p models.Project
	if err := c.BodyParser(&p); err != nil {
		return badBody(c, err)
	}
	p.ID = c.Params("id")
	if strings.TrimSpace(p.Name) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request", "name is required")
	}
	if p.Color == "" {
		p.Color = models.ColorBlue
	}
	if !models.IsValidColor(string(p.Color)) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_color", "Bad Request", "color must be one of the palette keys")
	}
	if err := s.deps.Store.UpsertProject(c.UserContext(), p); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(p)
}

// listAudit handles GET /api/v1/audit.
func (s *Server) listAudit(c *fiber.Ctx) error {
	entries, err := s.deps.Store.ListAudit(c.UserContext(), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	type auditJSON struct {
		ID        int64  `json:"id"`
		UserID    string `json:"user_id"`
		Action    string `json:"action"`
		Resource  string `json:"resource,omitempty"`
		Result    string `json:"result"`
		Details   string `json:"details,omitempty"`
		CreatedAt int64  `json:"created_at"`
	}
	out := make([]auditJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditJSON(e))
	}
	return c.JSON(fiber.Map{"entries": out})
}
