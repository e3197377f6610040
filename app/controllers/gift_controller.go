package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/entitlements"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/middleware"
)

type createGiftRequest struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Message string `json:"message"`
}

// guardResult returns the check attached by the subscription middleware,
// reporting false for routes the middleware did not admit.
func guardResult(c *fiber.Ctx) (guard.CheckResult, bool) {
	result, ok := middleware.GuardResult(c)
	return result, ok && result.Allowed
}

func limitDenied(c *fiber.Ctx, check entitlements.LimitCheck, what string) error {
	code := "upgrade_required"
	message := "Your plan limit for " + what + " is reached, please upgrade"
	if check.RequiresSubscription {
		code = "no_subscription"
		message = "An active subscription is required"
	} else if !check.FeatureAvailable {
		message = "Your plan does not include " + what + ", please upgrade"
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":   code,
		"message": message,
		"limit":   check.Limit,
	})
}

// HandleCreateGift creates a gift page after checking the page quota.
func HandleCreateGift(c *fiber.Ctx) error {
	result, ok := guardResult(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	var req createGiftRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", "Title is required")
	}

	check, err := appResolver.CanCreateGift(result.UserID)
	if err != nil {
		log.Errorf("gift quota check failed for user %d: %v", result.UserID, err)
		return internalError(c)
	}
	if !check.Allowed {
		return limitDenied(c, check, "gift pages")
	}

	gift := &models.Gift{
		UserID: result.UserID,
		Title:  strings.TrimSpace(req.Title),
		Slug:   strings.TrimSpace(req.Slug),
	}
	if req.Message != "" {
		encrypted, err := appCipher.Encrypt(req.Message)
		if err != nil {
			log.Errorf("gift message encryption failed: %v", err)
			return internalError(c)
		}
		gift.Message = encrypted
	}

	gifts := repository.GetGlobalFactory().GetGiftRepository()
	if err := gifts.Create(gift); err != nil {
		log.Errorf("gift create failed for user %d: %v", result.UserID, err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"uuid":  gift.UUID,
		"title": gift.Title,
		"slug":  gift.Slug,
	})
}

// loadOwnGift fetches a gift by UUID and hides other users' gifts behind
// a 404 so UUIDs cannot be probed for existence.
func loadOwnGift(c *fiber.Ctx, userID uint) (*models.Gift, error) {
	gifts := repository.GetGlobalFactory().GetGiftRepository()
	gift, err := gifts.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorJSON(c, fiber.StatusNotFound, "not_found", "Gift not found")
		}
		log.Errorf("gift lookup failed: %v", err)
		return nil, internalError(c)
	}
	if gift.UserID != userID {
		return nil, errorJSON(c, fiber.StatusNotFound, "not_found", "Gift not found")
	}
	return gift, nil
}

// HandleGetGift returns the owner's view of a gift, with the personal
// message decrypted.
func HandleGetGift(c *fiber.Ctx) error {
	result, ok := guardResult(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	gift, errResp := loadOwnGift(c, result.UserID)
	if gift == nil {
		return errResp
	}

	message := ""
	if gift.Message != "" {
		decrypted, err := appCipher.Decrypt(gift.Message)
		if err != nil {
			log.Errorf("gift message decryption failed for gift %s: %v", gift.UUID, err)
			return internalError(c)
		}
		message = decrypted
	}

	return c.JSON(fiber.Map{
		"uuid":        gift.UUID,
		"title":       gift.Title,
		"slug":        gift.Slug,
		"message":     message,
		"photo_count": gift.PhotoCount,
		"music_count": gift.MusicCount,
		"published":   gift.Published,
	})
}

// HandleAddPhoto attaches a photo slot to a gift after the plan ceiling
// check.
func HandleAddPhoto(c *fiber.Ctx) error {
	result, ok := guardResult(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	gift, errResp := loadOwnGift(c, result.UserID)
	if gift == nil {
		return errResp
	}

	check, err := appResolver.CanAddPhoto(result.UserID, gift.PhotoCount)
	if err != nil {
		log.Errorf("photo limit check failed for user %d: %v", result.UserID, err)
		return internalError(c)
	}
	if !check.Allowed {
		return limitDenied(c, check, "photos")
	}

	gift.PhotoCount++
	if err := repository.GetGlobalFactory().GetGiftRepository().Update(gift); err != nil {
		log.Errorf("photo count update failed for gift %s: %v", gift.UUID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"uuid":        gift.UUID,
		"photo_count": gift.PhotoCount,
		"remaining":   check.Remaining,
	})
}

// HandleAddMusic attaches a music slot to a gift after the plan ceiling
// check; on the start plan the feature itself is unavailable.
func HandleAddMusic(c *fiber.Ctx) error {
	result, ok := guardResult(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	gift, errResp := loadOwnGift(c, result.UserID)
	if gift == nil {
		return errResp
	}

	check, err := appResolver.CanAddMusic(result.UserID, gift.MusicCount)
	if err != nil {
		log.Errorf("music limit check failed for user %d: %v", result.UserID, err)
		return internalError(c)
	}
	if !check.Allowed {
		return limitDenied(c, check, "music tracks")
	}

	gift.MusicCount++
	if err := repository.GetGlobalFactory().GetGiftRepository().Update(gift); err != nil {
		log.Errorf("music count update failed for gift %s: %v", gift.UUID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"uuid":        gift.UUID,
		"music_count": gift.MusicCount,
		"remaining":   check.Remaining,
	})
}

// HandleGetEntitlements exposes the resolved plan, limits and current
// usage for the account screens.
func HandleGetEntitlements(c *fiber.Ctx) error {
	result, ok := guardResult(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	giftCount, err := repository.GetGlobalFactory().GetGiftRepository().CountByUserID(result.UserID)
	if err != nil {
		log.Errorf("gift count failed for user %d: %v", result.UserID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"plan":   result.Subscription.Plan,
		"limits": result.Limits,
		"usage": fiber.Map{
			"gifts": giftCount,
		},
	})
}
