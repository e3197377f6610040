package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evergift/evergift/internal/pkg/audit"
	"github.com/evergift/evergift/internal/pkg/entitlements"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/security"
)

// Shared handler dependencies, wired once at startup.
var (
	appVault    *security.Vault
	appCipher   *security.Cipher
	appSink     *audit.Sink
	appResolver *entitlements.Resolver
	appGuard    *guard.Guard
)

// Setup injects the services the handlers depend on. Must run before the
// router installs any route.
func Setup(vault *security.Vault, cipher *security.Cipher, sink *audit.Sink, resolver *entitlements.Resolver, g *guard.Guard) {
	appVault = vault
	appCipher = cipher
	appSink = sink
	appResolver = resolver
	appGuard = g
}

// recordAudit is a convenience wrapper that tolerates a nil sink in tests.
func recordAudit(c *fiber.Ctx, userID *uint, action string, metadata map[string]any) {
	if appSink == nil {
		return
	}
	appSink.Record(audit.Event{
		UserID:    userID,
		Action:    action,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Metadata:  metadata,
	})
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

func internalError(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Please try again later")
}
