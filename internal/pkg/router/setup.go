package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/audit"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/ratelimit"
)

// Router installs a route set on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps bundles the services the routers hand to middlewares and
// controllers.
type Deps struct {
	Guard   *guard.Guard
	Limiter *ratelimit.Limiter
	Sink    *audit.Sink
	Users   repository.UserRepository
}

// InstallRouter wires every route group onto the app.
func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
