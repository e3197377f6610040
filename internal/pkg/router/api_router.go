package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evergift/evergift/app/controllers"
	"github.com/evergift/evergift/internal/pkg/middleware"
)

// Login attempts share a tight window; the rest of the API gets a
// generous per-client quota.
const (
	loginLimit     = 5
	loginWindow    = 15 * time.Minute
	apiLimit       = 120
	apiWindow      = time.Minute
	registerLimit  = 10
	registerWindow = time.Hour
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Use(middleware.UserContextMiddleware(h.deps.Guard, h.deps.Users))

	api := app.Group("/api", middleware.RateLimit(h.deps.Limiter, h.deps.Sink, "api", apiLimit, apiWindow))
	v1 := api.Group("/v1")

	requireLogin := middleware.RequireLogin(h.deps.Guard)

	auth := v1.Group("/auth")
	auth.Post("/register",
		middleware.RateLimit(h.deps.Limiter, h.deps.Sink, "register", registerLimit, registerWindow),
		controllers.HandleRegister)
	auth.Post("/login",
		middleware.RateLimit(h.deps.Limiter, h.deps.Sink, "login", loginLimit, loginWindow),
		controllers.HandleLogin)
	auth.Post("/logout", controllers.HandleLogout)
	auth.Get("/verify-email", controllers.HandleVerifyEmail)
	auth.Post("/change-password", requireLogin, controllers.HandleChangePassword)

	v1.Get("/me", requireLogin, controllers.HandleGetMe)
	v1.Get("/subscription", requireLogin, controllers.HandleGetSubscription)
	v1.Post("/subscription/cancel", requireLogin, controllers.HandleCancelSubscription)
	v1.Post("/subscription/refund", requireLogin, controllers.HandleRefundSubscription)

	requireSubscription := middleware.RequireSubscription(h.deps.Guard, h.deps.Sink)
	gifts := v1.Group("/gifts", requireSubscription)
	gifts.Post("/", controllers.HandleCreateGift)
	gifts.Get("/:uuid", controllers.HandleGetGift)
	gifts.Post("/:uuid/photos", controllers.HandleAddPhoto)
	gifts.Post("/:uuid/music", controllers.HandleAddMusic)

	v1.Get("/entitlements", requireSubscription, controllers.HandleGetEntitlements)
}
