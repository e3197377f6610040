package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/env"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/mail"
	"github.com/evergift/evergift/internal/pkg/security"
	"github.com/evergift/evergift/internal/pkg/usercontext"
)

// Login failures deliberately share one message so the endpoint does not
// leak which accounts exist.
const loginFailedMessage = "Invalid email or password"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleRegister creates an account and issues an email verification
// token. The raw token is returned in the response; delivery by mail is
// handled by the notification service, not here.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	strength := security.ValidatePasswordStrength(req.Password)
	if !strength.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "weak_password",
			"message": "Password does not meet the requirements",
			"details": strength.Errors,
		})
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := users.GetByEmail(req.Email); err == nil && existing != nil {
		return errorJSON(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		log.Errorf("verification token generation failed: %v", err)
		return internalError(c)
	}
	now := time.Now()
	user.VerificationToken = security.HashToken(rawToken)
	user.VerificationSentAt = &now

	if err := users.Create(user); err != nil {
		log.Errorf("user create failed: %v", err)
		return internalError(c)
	}

	recordAudit(c, &user.ID, models.AuditActionRegister, nil)

	// Delivery is best effort; the token is also in the response so dev
	// setups without SMTP still work.
	go func(email, token string) {
		_ = mail.SendVerificationMail(email, token)
	}(user.Email, rawToken)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":                 user.ID,
		"email":              user.Email,
		"verification_token": rawToken,
	})
}

// HandleLogin verifies credentials and sets the session cookie. Wrong
// email and wrong password are indistinguishable to the caller.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			recordAudit(c, nil, models.AuditActionLoginFailed, map[string]any{"email": models.NormalizeEmail(req.Email)})
			return errorJSON(c, fiber.StatusUnauthorized, "login_failed", loginFailedMessage)
		}
		log.Errorf("login lookup failed: %v", err)
		return internalError(c)
	}

	now := time.Now()
	if user.IsLocked(now) {
		recordAudit(c, &user.ID, models.AuditActionLoginLocked, nil)
		return errorJSON(c, fiber.StatusForbidden, "account_locked", "Account temporarily locked, please try again later")
	}

	if !user.CheckPassword(req.Password) {
		user.RegisterFailedLogin(now)
		if err := users.UpdateLoginState(user); err != nil {
			log.Errorf("failed-login state update failed for user %d: %v", user.ID, err)
		}
		recordAudit(c, &user.ID, models.AuditActionLoginFailed, nil)
		return errorJSON(c, fiber.StatusUnauthorized, "login_failed", loginFailedMessage)
	}

	user.ResetFailedLogins()
	user.LastLoginAt = &now
	if err := users.UpdateLoginState(user); err != nil {
		log.Errorf("login state update failed for user %d: %v", user.ID, err)
	}

	token, err := appVault.IssueSessionToken(user.ID, user.Email, security.DefaultSessionTTL)
	if err != nil {
		log.Errorf("session token issue failed for user %d: %v", user.ID, err)
		return internalError(c)
	}

	c.Cookie(&fiber.Cookie{
		Name:     guard.SessionCookieName,
		Value:    token,
		Expires:  now.Add(security.DefaultSessionTTL),
		HTTPOnly: true,
		Secure:   !env.IsDev(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	recordAudit(c, &user.ID, models.AuditActionLogin, nil)

	return c.JSON(fiber.Map{
		"id":             user.ID,
		"email":          user.Email,
		"email_verified": user.EmailVerified,
		"plan":           user.Plan,
	})
}

// HandleLogout clears the session cookie.
func HandleLogout(c *fiber.Ctx) error {
	if identity := appGuard.Authenticate(c); identity != nil {
		recordAudit(c, &identity.UserID, models.AuditActionLogout, nil)
	}

	c.Cookie(&fiber.Cookie{
		Name:     guard.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   !env.IsDev(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleVerifyEmail consumes a verification token from the query string.
// Invalid, unknown and expired tokens all get the same answer.
func HandleVerifyEmail(c *fiber.Ctx) error {
	rawToken := c.Query("token")
	if rawToken == "" {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_token", "Invalid or expired verification token")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	tokenHash := security.HashToken(rawToken)

	user, err := users.GetByVerificationToken(tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_token", "Invalid or expired verification token")
		}
		log.Errorf("verification lookup failed: %v", err)
		return internalError(c)
	}

	if !user.IsVerificationTokenValid(tokenHash) {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_token", "Invalid or expired verification token")
	}

	user.EmailVerified = true
	user.ClearVerificationToken()
	if err := users.Update(user); err != nil {
		log.Errorf("verification update failed for user %d: %v", user.ID, err)
		return internalError(c)
	}

	recordAudit(c, &user.ID, models.AuditActionEmailVerified, nil)

	return c.JSON(fiber.Map{"message": "Email verified"})
}

// HandleChangePassword rotates the caller's password after verifying the
// current one. Existing sessions stay valid for their remaining TTL.
func HandleChangePassword(c *fiber.Ctx) error {
	userID := sessionUserID(c)
	if userID == 0 {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
		}
		log.Errorf("account lookup failed: %v", err)
		return internalError(c)
	}

	if !user.CheckPassword(req.CurrentPassword) {
		return errorJSON(c, fiber.StatusForbidden, "wrong_password", "Current password is incorrect")
	}

	strength := security.ValidatePasswordStrength(req.NewPassword)
	if !strength.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "weak_password",
			"message": "Password does not meet the requirements",
			"details": strength.Errors,
		})
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		log.Errorf("password hash failed for user %d: %v", user.ID, err)
		return internalError(c)
	}
	if err := users.Update(user); err != nil {
		log.Errorf("password update failed for user %d: %v", user.ID, err)
		return internalError(c)
	}

	recordAudit(c, &user.ID, models.AuditActionPasswordChanged, nil)

	return c.JSON(fiber.Map{"message": "Password changed"})
}

// HandleGetMe returns the account together with the live entitlement
// state. The display plan and the resolved plan can disagree briefly; the
// resolved one is authoritative.
func HandleGetMe(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		if id, ok := c.Locals(usercontext.KeyUserID).(uint); ok {
			userID = id
		}
	}
	if userID == 0 {
		return errorJSON(c, fiber.StatusUnauthorized, "not_authenticated", "Please log in to continue")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		log.Errorf("account lookup failed: %v", err)
		return internalError(c)
	}

	effective, err := appResolver.GetEffectivePlan(user.ID)
	if err != nil {
		log.Errorf("entitlement resolution failed for user %d: %v", user.ID, err)
		return internalError(c)
	}

	response := fiber.Map{
		"id":             user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"email_verified": user.EmailVerified,
		"plan":           user.Plan,
		"created_at":     user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":  formatTimePtr(user.LastLoginAt),
		"entitlement": fiber.Map{
			"reason": effective.Reason,
			"plan":   string(effective.Plan),
			"limits": effective.Limits,
		},
	}

	return c.JSON(response)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
