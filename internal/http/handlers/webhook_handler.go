package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	applog "detaltap/internal/log"
	"detaltap/internal/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler receives Bot API updates pushed by Telegram.
type WebhookHandler struct {
	Secret  string
	Handler telegram.Handler
}

// POST /telegram/webhook
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	ctx := c.UserContext()
	got := c.Get(secretHeader)
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
		applog.Security(ctx, "webhook.secret.mismatch", map[string]any{"ip": c.IP()})
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	var u telegram.Update
	if err := json.Unmarshal(c.Body(), &u); err != nil {
		applog.Info(ctx, "webhook.decode.fail", map[string]any{"err": err.Error()})
		return c.SendStatus(fiber.StatusBadRequest)
	}
	ev, ok := telegram.EventFromUpdate(u)
	if !ok {
		return c.SendStatus(fiber.StatusOK)
	}
	// Telegram retries on anything but 2xx, so engine failures stay internal.
	// The event outlives the request if Telegram drops the connection.
	_ = h.Handler.Handle(context.WithoutCancel(ctx), ev)
	return c.SendStatus(fiber.StatusOK)
}
