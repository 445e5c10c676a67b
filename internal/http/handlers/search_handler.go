package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/services"
	"detaltap/internal/validate"
)

// SearchHandler is the public read-only catalog API.
type SearchHandler struct {
	Catalog    *services.CatalogService
	MaxResults int
}

type publicListing struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	VIN         string `json:"vin"`
	OEM         string `json:"oem"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Photo       string `json:"photo,omitempty"`
	Seller      string `json:"seller"`
	CreatedAt   string `json:"created_at"`
}

func toPublic(l domain.Listing) publicListing {
	p := publicListing{
		ID:          l.ID,
		Name:        l.Name,
		VIN:         l.VIN,
		OEM:         l.OEM,
		Price:       l.Price.StringFixed(2),
		Description: l.Description,
		Seller:      l.SellerHandle(),
		CreatedAt:   l.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if l.PhotoRef != "" {
		p.Photo = "/media/" + l.PhotoRef
	}
	return p
}

// GET /api/v1/search?mode=name|vin|oem&q= or ?mode=price&min=&max=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	ctx := c.UserContext()
	mode := strings.ToLower(strings.TrimSpace(c.Query("mode", string(domain.SearchKeyword))))

	var (
		ls  []domain.Listing
		err error
	)
	if mode == "price" {
		min, okMin := validate.Price(c.Query("min"))
		max, okMax := validate.Price(c.Query("max"))
		if !okMin || !okMax {
			applog.Security(ctx, "validation.fail", map[string]any{"field": "price"})
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min and max must be non-negative numbers"})
		}
		ls, err = h.Catalog.PriceRange(ctx, min, max)
	} else {
		q, ok := validate.Q(c.Query("q"))
		if !ok {
			applog.Security(ctx, "validation.fail", map[string]any{"field": "q"})
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enter a search term"})
		}
		ls, err = h.Catalog.Search(ctx, domain.SearchMode(mode), q)
	}
	if err != nil {
		return jsonError(c, "search.error", err)
	}

	total := len(ls)
	if h.MaxResults > 0 && total > h.MaxResults {
		ls = ls[:h.MaxResults]
	}
	out := make([]publicListing, 0, len(ls))
	for _, l := range ls {
		out = append(out, toPublic(l))
	}
	return c.JSON(fiber.Map{"total": total, "results": out})
}

// GET /api/v1/listings/:id
func (h *SearchHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	l, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return jsonError(c, "listing.detail.error", err)
	}
	return c.JSON(toPublic(*l))
}
