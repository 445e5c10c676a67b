package handlers

import (
	"github.com/gofiber/fiber/v2"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/metrics"
	"detaltap/internal/present"
	"detaltap/internal/services"
	"detaltap/internal/validate"
)

// AdminHandler exposes the moderation gate over HTTP. Requests act as Operator,
// which must be one of the configured admin ids.
type AdminHandler struct {
	Gate     *services.Gate
	Format   *present.Formatter
	Metrics  *metrics.Metrics
	Operator int64
	PageSize int
}

type banRequest struct {
	UserID int64  `json:"user_id" form:"user_id"`
	Reason string `json:"reason" form:"reason"`
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := validate.Page(c.Query("page"))
	stats, err := h.Gate.Stats(ctx, h.Operator)
	if err != nil {
		applog.Error(ctx, "admin.dashboard.stats.fail", err, nil)
		return notFound(c, fiber.StatusInternalServerError, "Could not load stats")
	}
	ls, w, err := h.Gate.ListAll(ctx, h.Operator, page, h.PageSize)
	if err != nil {
		applog.Error(ctx, "admin.dashboard.list.fail", err, nil)
		return notFound(c, fiber.StatusInternalServerError, "Could not load listings")
	}
	bans, err := h.Gate.ListBans(ctx, h.Operator)
	if err != nil {
		applog.Error(ctx, "admin.dashboard.bans.fail", err, nil)
		return notFound(c, fiber.StatusInternalServerError, "Could not load bans")
	}
	rows := make([]fiber.Map, 0, len(ls))
	for _, l := range ls {
		rows = append(rows, fiber.Map{
			"ID":       l.ID,
			"Name":     l.Name,
			"VIN":      l.VIN,
			"OEM":      l.OEM,
			"Price":    h.Format.Price(l.Price),
			"Seller":   l.SellerHandle(),
			"PhotoRef": l.PhotoRef,
			"Created":  l.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return render(c, "admin_dashboard", fiber.Map{
		"Stats":    stats,
		"Listings": rows,
		"Bans":     bans,
		"Page":     w.Page + 1,
		"Pages":    w.Pages(),
		"PrevPage": w.Page - 1,
		"NextPage": w.Page + 1,
		"HasPrev":  w.HasPrev,
		"HasNext":  w.HasNext,
	})
}

// GET /admin/api/listings?page=
func (h *AdminHandler) ListListings(c *fiber.Ctx) error {
	ls, w, err := h.Gate.ListAll(c.UserContext(), h.Operator, validate.Page(c.Query("page")), h.PageSize)
	if err != nil {
		return jsonError(c, "admin.listings.list.fail", err)
	}
	if ls == nil {
		ls = []domain.Listing{}
	}
	return c.JSON(fiber.Map{"listings": ls, "page": w.Page, "pages": w.Pages(), "total": w.Total})
}

// DELETE /admin/api/listings/:id
func (h *AdminHandler) DeleteListing(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	if err := h.Gate.Delete(c.UserContext(), h.Operator, id); err != nil {
		return jsonError(c, "admin.listings.delete.fail", err)
	}
	h.Metrics.ListingsDeleted.Inc()
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /admin/api/bans
func (h *AdminHandler) ListBans(c *fiber.Ctx) error {
	bans, err := h.Gate.ListBans(c.UserContext(), h.Operator)
	if err != nil {
		return jsonError(c, "admin.bans.list.fail", err)
	}
	if bans == nil {
		bans = []domain.Ban{}
	}
	return c.JSON(fiber.Map{"bans": bans})
}

// POST /admin/api/bans
func (h *AdminHandler) Ban(c *fiber.Ctx) error {
	var req banRequest
	if err := c.BodyParser(&req); err != nil || req.UserID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}
	if err := h.Gate.Ban(c.UserContext(), h.Operator, req.UserID, req.Reason); err != nil {
		return jsonError(c, "admin.bans.create.fail", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user_id": req.UserID})
}

// DELETE /admin/api/bans/:userID
func (h *AdminHandler) Unban(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("userID"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	if err := h.Gate.Unban(c.UserContext(), h.Operator, id); err != nil {
		return jsonError(c, "admin.bans.delete.fail", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /admin/api/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	s, err := h.Gate.Stats(c.UserContext(), h.Operator)
	if err != nil {
		return jsonError(c, "admin.stats.fail", err)
	}
	return c.JSON(s)
}
