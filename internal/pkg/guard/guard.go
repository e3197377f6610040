package guard

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/entitlements"
	"github.com/evergift/evergift/internal/pkg/plans"
	"github.com/evergift/evergift/internal/pkg/security"
)

// SessionCookieName is the transport credential carrying the signed
// session token.
const SessionCookieName = "session"

// Denial reasons produced by this guard, on top of the resolver's
// subscription reasons. Wire-stable.
const (
	ReasonNotAuthenticated = "NOT_AUTHENTICATED"
	ReasonEmailNotVerified = "EMAIL_NOT_VERIFIED"
)

// Identity is the verified caller extracted from the session credential.
type Identity struct {
	UserID uint
	Email  string
}

// UserSnapshot is the request-safe view of the user attached to an
// allowed result. Plan here is the display cache, included for UI use
// only; the authoritative plan sits in the subscription snapshot.
type UserSnapshot struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Plan          string `json:"plan"`
	EmailVerified bool   `json:"email_verified"`
}

// SubscriptionSnapshot is the live subscription view attached to an
// allowed result.
type SubscriptionSnapshot struct {
	ID      uint       `json:"id"`
	Plan    string     `json:"plan"`
	Status  string     `json:"status"`
	EndDate *time.Time `json:"end_date,omitempty"`
}

// CheckResult is the allow/deny decision consumed by every privileged
// route.
type CheckResult struct {
	Allowed      bool                  `json:"allowed"`
	Reason       string                `json:"reason,omitempty"`
	UserID       uint                  `json:"user_id,omitempty"`
	User         *UserSnapshot         `json:"user,omitempty"`
	Subscription *SubscriptionSnapshot `json:"subscription,omitempty"`
	Limits       *plans.Limits         `json:"limits,omitempty"`
}

// Guard combines session verification and entitlement resolution into a
// single fail-closed decision.
type Guard struct {
	vault    *security.Vault
	users    repository.UserRepository
	resolver *entitlements.Resolver
}

// New creates a guard.
func New(vault *security.Vault, users repository.UserRepository, resolver *entitlements.Resolver) *Guard {
	return &Guard{
		vault:    vault,
		users:    users,
		resolver: resolver,
	}
}

// Authenticate extracts and verifies the caller's identity from the
// session cookie, with an Authorization bearer fallback for API clients.
// Any failure means an anonymous caller; it never returns an error.
func (g *Guard) Authenticate(c *fiber.Ctx) *Identity {
	token := c.Cookies(SessionCookieName)
	if token == "" {
		auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	if token == "" {
		return nil
	}

	claims := g.vault.VerifySessionToken(token)
	if claims == nil {
		return nil
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email}
}

// RequireActiveSubscription runs the full ordered check for a request:
// authenticate, load the user, require a verified email, resolve the
// entitlement. The returned error is reserved for infrastructure faults;
// every expected denial is a typed result.
func (g *Guard) RequireActiveSubscription(c *fiber.Ctx) (CheckResult, error) {
	return g.Check(g.Authenticate(c))
}

// Check is RequireActiveSubscription after identity extraction; split out
// so the decision logic is testable without HTTP plumbing.
func (g *Guard) Check(identity *Identity) (CheckResult, error) {
	if identity == nil {
		return CheckResult{Reason: ReasonNotAuthenticated}, nil
	}

	user, err := g.users.GetByID(identity.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token outlived the account.
			return CheckResult{Reason: ReasonNotAuthenticated}, nil
		}
		return CheckResult{Reason: ReasonNotAuthenticated}, err
	}

	if !user.EmailVerified {
		return CheckResult{Reason: ReasonEmailNotVerified, UserID: user.ID}, nil
	}

	effective, err := g.resolver.GetEffectivePlan(user.ID)
	if err != nil {
		return CheckResult{Reason: effective.Reason, UserID: user.ID}, err
	}
	if !effective.HasPlan() {
		return CheckResult{Reason: effective.Reason, UserID: user.ID}, nil
	}

	sub := effective.Subscription
	return CheckResult{
		Allowed: true,
		UserID:  user.ID,
		User: &UserSnapshot{
			ID:            user.ID,
			Email:         user.Email,
			Plan:          user.Plan,
			EmailVerified: user.EmailVerified,
		},
		Subscription: &SubscriptionSnapshot{
			ID:      sub.ID,
			Plan:    string(effective.Plan),
			Status:  sub.Status,
			EndDate: sub.EndDate,
		},
		Limits: effective.Limits,
	}, nil
}
