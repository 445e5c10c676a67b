package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "detaltap/internal/log"
	"detaltap/internal/media"
)

// MediaHandler serves stored listing photos and their thumbnails.
type MediaHandler struct {
	Store *media.FileStore
}

// guardRef rejects traversal attempts before the ref reaches the store.
func guardRef(c *fiber.Ctx, raw string) (string, bool) {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "..") || strings.Contains(lower, "%2e") || strings.Contains(lower, "/") || strings.Contains(lower, "\x00") {
		applog.Security(c.UserContext(), "media.traversal.block", map[string]any{"path": raw})
		return "", false
	}
	return raw, media.ValidRef(raw)
}

// GET /media/:ref
func (h *MediaHandler) Photo(c *fiber.Ctx) error {
	ref, ok := guardRef(c, c.Params("ref"))
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	path, ok := h.Store.Path(ref)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendFile(path, true)
}

// GET /media/thumbs/:ref
func (h *MediaHandler) Thumb(c *fiber.Ctx) error {
	ref, ok := guardRef(c, c.Params("ref"))
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	data, err := h.Store.Thumb(ref)
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}
