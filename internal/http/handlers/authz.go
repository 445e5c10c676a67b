package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	applog "detaltap/internal/log"
)

// HashAdminKey produces the value for ADMIN_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}

// RequireAdminKey guards the admin surface with a bcrypt-hashed key, taken from
// the X-Admin-Key header or, for browsers, the basic auth password.
// An empty hash disables the surface.
func RequireAdminKey(hash string) fiber.Handler {
	check := func(key string) bool {
		return hash != "" && key != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
	}
	deny := func(c *fiber.Ctx) error {
		applog.Security(c.UserContext(), "access.denied.admin", map[string]any{"ip": c.IP(), "path": c.Path()})
		return notFound(c, fiber.StatusForbidden, "Access denied")
	}
	browser := basicauth.New(basicauth.Config{
		Realm:        "DetalTap admin",
		Authorizer: func(_, pass string) bool { return check(pass) },
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `basic realm="DetalTap admin"`)
			applog.Security(c.UserContext(), "access.denied.admin", map[string]any{"ip": c.IP(), "path": c.Path()})
			return c.SendStatus(fiber.StatusUnauthorized)
		},
	})

	return func(c *fiber.Ctx) error {
		if hash == "" {
			return deny(c)
		}
		if key := c.Get("X-Admin-Key"); key != "" {
			if !check(key) {
				return deny(c)
			}
			return c.Next()
		}
		return browser(c)
	}
}
