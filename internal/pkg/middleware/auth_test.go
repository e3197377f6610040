package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/entitlements"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/security"
)

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (f *fakeUserRepo) Create(user *models.User) error { f.users[user.ID] = user; return nil }

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == models.NormalizeEmail(email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByVerificationToken(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error { f.users[user.ID] = user; return nil }

func (f *fakeUserRepo) UpdatePlanCache(userID uint, plan string) error {
	if user, ok := f.users[userID]; ok {
		user.Plan = plan
	}
	return nil
}

func (f *fakeUserRepo) UpdateLoginState(*models.User) error { return nil }

type fakeSubRepo struct {
	subs map[uint]*models.Subscription
}

func (f *fakeSubRepo) GetByUserID(userID uint) (*models.Subscription, error) {
	if sub, ok := f.subs[userID]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) Create(sub *models.Subscription) error { f.subs[sub.UserID] = sub; return nil }
func (f *fakeSubRepo) Save(sub *models.Subscription) error   { f.subs[sub.UserID] = sub; return nil }
func (f *fakeSubRepo) MarkExpired(uint) error                { return nil }
func (f *fakeSubRepo) Cancel(uint, time.Time) error          { return nil }
func (f *fakeSubRepo) Refund(uint, time.Time) error          { return nil }
func (f *fakeSubRepo) ListOverdue(time.Time, int) ([]models.Subscription, error) {
	return nil, nil
}

type fakeGiftRepo struct{}

func (fakeGiftRepo) Create(*models.Gift) error              { return nil }
func (fakeGiftRepo) GetByUUID(string) (*models.Gift, error) { return nil, gorm.ErrRecordNotFound }
func (fakeGiftRepo) Update(*models.Gift) error              { return nil }
func (fakeGiftRepo) CountByUserID(uint) (int64, error)      { return 0, nil }

func guardedApp(t *testing.T) (*fiber.App, *security.Vault) {
	t.Helper()

	vault, err := security.NewVault("middleware-test-secret")
	require.NoError(t, err)

	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "user@example.com", EmailVerified: true},
	}}
	subs := &fakeSubRepo{subs: map[uint]*models.Subscription{
		1: {
			ID:        10,
			UserID:    1,
			Plan:      "premium",
			Status:    models.SubscriptionStatusActive,
			StartDate: time.Now().Add(-time.Hour),
		},
	}}

	resolver := entitlements.NewResolver(&repository.Repositories{
		User:         users,
		Subscription: subs,
		Gift:         fakeGiftRepo{},
	}, nil)
	g := guard.New(vault, users, resolver)

	app := fiber.New()
	app.Get("/plan", RequireSubscription(g, nil), func(c *fiber.Ctx) error {
		result, ok := GuardResult(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(fiber.Map{"plan": result.Subscription.Plan})
	})
	app.Get("/open", func(c *fiber.Ctx) error {
		if _, ok := GuardResult(c); ok {
			return fiber.ErrInternalServerError
		}
		return c.SendStatus(fiber.StatusOK)
	})
	return app, vault
}

func TestRequireSubscriptionAttachesGuardResult(t *testing.T) {
	app, vault := guardedApp(t)

	token, err := vault.IssueSessionToken(1, "user@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/plan", nil)
	req.AddCookie(&http.Cookie{Name: guard.SessionCookieName, Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireSubscriptionDeniesAnonymous(t *testing.T) {
	app, _ := guardedApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/plan", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGuardResultAbsentOffGuardedRoutes(t *testing.T) {
	app, _ := guardedApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
