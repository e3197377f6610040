package guard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evergift/evergift/internal/pkg/entitlements"
)

// ToHTTPResponse maps a denial to its fixed status code and user-safe
// message. The switch is exhaustive over the reason enum; anything
// unrecognized falls back to a generic 403 so a new reason can never slip
// through as allowed.
func ToHTTPResponse(result CheckResult) (int, fiber.Map) {
	if result.Allowed {
		return fiber.StatusOK, fiber.Map{"allowed": true}
	}

	switch result.Reason {
	case ReasonNotAuthenticated:
		return fiber.StatusUnauthorized, fiber.Map{
			"error":   "not_authenticated",
			"message": "Please log in to continue",
		}
	case ReasonEmailNotVerified:
		return fiber.StatusForbidden, fiber.Map{
			"error":   "email_not_verified",
			"message": "Please verify your email address to continue",
		}
	case entitlements.ReasonNoSubscription:
		return fiber.StatusForbidden, fiber.Map{
			"error":   "no_subscription",
			"message": "An active subscription is required",
		}
	case entitlements.ReasonSubscriptionInactive:
		return fiber.StatusForbidden, fiber.Map{
			"error":   "subscription_inactive",
			"message": "Your subscription is not active",
		}
	case entitlements.ReasonSubscriptionExpired:
		return fiber.StatusForbidden, fiber.Map{
			"error":   "subscription_expired",
			"message": "Your subscription has expired",
		}
	default:
		return fiber.StatusForbidden, fiber.Map{
			"error":   "forbidden",
			"message": "Access denied",
		}
	}
}
