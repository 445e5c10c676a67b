package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if rid, ok := c.Locals("requestid").(string); ok {
		data["RequestID"] = rid
	}
	return c.Render(tmpl, data)
}

// notFound renders the friendly error page with the given status.
func notFound(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg})
}

// jsonError maps domain errors onto API status codes without leaking internals.
func jsonError(c *fiber.Ctx, action string, err error) error {
	var ve domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Message})
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}
	applog.Error(c.UserContext(), action, err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
