package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated caller for a request.
// Plan is the denormalized display plan and must never be used for
// entitlement decisions; privileged routes go through the guard instead.
type UserContext struct {
	UserID        uint   `json:"user_id"`
	Email         string `json:"email"`
	IsLoggedIn    bool   `json:"is_logged_in"`
	EmailVerified bool   `json:"email_verified"`
	Plan          string `json:"plan"`
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetEmail returns the current user's email, or empty string if not logged in
func GetEmail(c *fiber.Ctx) string {
	return GetUserContext(c).Email
}
