package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/usercontext"
)

func sessionUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals(usercontext.KeyUserID).(uint); ok {
		return id
	}
	return usercontext.GetUserID(c)
}

// HandleGetSubscription returns the live subscription state alongside
// the resolver's verdict. Accounts without a subscription get an empty
// state, not an error.
func HandleGetSubscription(c *fiber.Ctx) error {
	userID := sessionUserID(c)
	if userID == 0 {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	effective, err := appResolver.GetEffectivePlan(userID)
	if err != nil {
		log.Errorf("entitlement resolution failed for user %d: %v", userID, err)
		return internalError(c)
	}

	response := fiber.Map{
		"reason": effective.Reason,
		"plan":   string(effective.Plan),
	}
	if sub := effective.Subscription; sub != nil {
		response["subscription"] = fiber.Map{
			"plan":       sub.Plan,
			"status":     sub.Status,
			"start_date": sub.StartDate.UTC().Format(time.RFC3339),
			"end_date":   formatTimePtr(sub.EndDate),
			"auto_renew": sub.AutoRenew,
		}
	}

	return c.JSON(response)
}

// HandleCancelSubscription cancels the caller's subscription and syncs
// the display plan cache.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userID := sessionUserID(c)
	if userID == 0 {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	subs := repository.GetGlobalFactory().GetSubscriptionRepository()
	sub, err := subs.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "No subscription to cancel")
		}
		log.Errorf("subscription lookup failed for user %d: %v", userID, err)
		return internalError(c)
	}
	if !sub.IsActive() {
		return errorJSON(c, fiber.StatusConflict, "not_active", "Subscription is not active")
	}

	if err := subs.Cancel(sub.ID, time.Now()); err != nil {
		log.Errorf("subscription cancel failed for user %d: %v", userID, err)
		return internalError(c)
	}
	if err := appResolver.SyncUserPlanCache(userID); err != nil {
		log.Errorf("plan cache sync failed for user %d: %v", userID, err)
	}

	recordAudit(c, &userID, models.AuditActionSubscriptionCancel, map[string]any{"subscription_id": sub.ID})

	return c.JSON(fiber.Map{"message": "Subscription cancelled"})
}

// HandleRefundSubscription marks the subscription refunded. The payment
// provider flow happens out of band; this endpoint records the outcome.
func HandleRefundSubscription(c *fiber.Ctx) error {
	userID := sessionUserID(c)
	if userID == 0 {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	subs := repository.GetGlobalFactory().GetSubscriptionRepository()
	sub, err := subs.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "No subscription to refund")
		}
		log.Errorf("subscription lookup failed for user %d: %v", userID, err)
		return internalError(c)
	}

	if err := subs.Refund(sub.ID, time.Now()); err != nil {
		log.Errorf("subscription refund failed for user %d: %v", userID, err)
		return internalError(c)
	}
	if err := appResolver.SyncUserPlanCache(userID); err != nil {
		log.Errorf("plan cache sync failed for user %d: %v", userID, err)
	}

	recordAudit(c, &userID, models.AuditActionSubscriptionRefund, map[string]any{"subscription_id": sub.ID})

	return c.JSON(fiber.Map{"message": "Subscription refunded"})
}
