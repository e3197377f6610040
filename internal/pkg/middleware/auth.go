package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/internal/pkg/audit"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/usercontext"
)

// RequireSubscription gates a route group on the full entitlement check.
// Denials are audited and answered with the fixed status and message for
// the reason; allowed requests carry the check result in Locals so
// handlers can read the resolved plan and limits without re-checking.
func RequireSubscription(g *guard.Guard, sink *audit.Sink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := g.RequireActiveSubscription(c)
		if err != nil {
			log.Errorf("entitlement check failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "Please try again later",
			})
		}

		if !result.Allowed {
			if sink != nil {
				var userID *uint
				if result.UserID != 0 {
					id := result.UserID
					userID = &id
				}
				sink.Record(audit.Event{
					UserID:    userID,
					Action:    models.AuditActionAccessDenied,
					IPAddress: c.IP(),
					UserAgent: c.Get(fiber.HeaderUserAgent),
					Metadata: map[string]any{
						"path":   c.Path(),
						"reason": result.Reason,
					},
				})
			}
			status, body := guard.ToHTTPResponse(result)
			return c.Status(status).JSON(body)
		}

		c.Locals(usercontext.KeyCheckResult, result)
		return c.Next()
	}
}

// GuardResult returns the check result stored by RequireSubscription.
// The boolean is false when the route is not behind the middleware.
func GuardResult(c *fiber.Ctx) (guard.CheckResult, bool) {
	result, ok := c.Locals(usercontext.KeyCheckResult).(guard.CheckResult)
	return result, ok
}

// RequireLogin ensures an authenticated, verified caller without
// demanding a subscription. Used for account routes like logout or the
// subscription overview itself.
func RequireLogin(g *guard.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := g.Authenticate(c)
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "not_authenticated",
				"message": "Please log in to continue",
			})
		}
		c.Locals(usercontext.KeyUserID, identity.UserID)
		return c.Next()
	}
}
