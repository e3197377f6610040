package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the user context for every request.
// Any verification or lookup failure degrades to an anonymous context;
// this middleware never rejects a request on its own.
func UserContextMiddleware(g *guard.Guard, users repository.UserRepository) fiber.Handler {
	anonymous := usercontext.UserContext{IsLoggedIn: false}

	return func(c *fiber.Ctx) error {
		identity := g.Authenticate(c)
		if identity == nil {
			c.Locals(usercontext.KeyUserContext, anonymous)
			return c.Next()
		}

		user, err := users.GetByID(identity.UserID)
		if err != nil {
			c.Locals(usercontext.KeyUserContext, anonymous)
			return c.Next()
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:        user.ID,
			Email:         user.Email,
			IsLoggedIn:    true,
			EmailVerified: user.EmailVerified,
			Plan:          user.Plan,
		})
		c.Locals(usercontext.KeyUserID, user.ID)
		return c.Next()
	}
}
