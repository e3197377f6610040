package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/evergift/evergift/app/controllers"
	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/audit"
	"github.com/evergift/evergift/internal/pkg/cache"
	"github.com/evergift/evergift/internal/pkg/database"
	"github.com/evergift/evergift/internal/pkg/entitlements"
	"github.com/evergift/evergift/internal/pkg/env"
	"github.com/evergift/evergift/internal/pkg/guard"
	"github.com/evergift/evergift/internal/pkg/ratelimit"
	"github.com/evergift/evergift/internal/pkg/router"
	"github.com/evergift/evergift/internal/pkg/security"
)

func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	factory := repository.NewFactory(database.GetDB())
	repository.SetGlobalFactory(factory)
	repos := factory.GetRepositories()

	vault, err := security.NewVaultFromEnv()
	if err != nil {
		log.Fatalf("session vault setup failed: %v", err)
	}
	cipher, err := security.NewCipherFromEnv()
	if err != nil {
		log.Fatalf("cipher setup failed: %v", err)
	}

	// Rate limit windows live in redis so they survive restarts and are
	// shared across instances; the memory store is the dev fallback.
	var memoryStore *ratelimit.MemoryStore
	var limiter *ratelimit.Limiter
	if client := cache.GetClient(); client != nil {
		limiter = ratelimit.New(ratelimit.NewRedisStore(client))
	} else {
		log.Warn("redis unavailable, rate limit windows are process-local")
		memoryStore = ratelimit.NewMemoryStore()
		memoryStore.StartSweeper(5 * time.Minute)
		limiter = ratelimit.New(memoryStore)
	}

	sink := audit.NewSink(repos.AuditLog, 256)
	sink.Start()

	resolver := entitlements.NewResolver(repos, sink)
	sweeper := entitlements.NewSweeper(resolver, repos.Subscription, entitlements.DefaultSweepInterval)
	sweeper.Start()

	appGuard := guard.New(vault, repos.User, resolver)

	controllers.Setup(vault, cipher, sink, resolver, appGuard)

	app := fiber.New(fiber.Config{
		AppName: "Evergift",
	})
	app.Use(recover.New(), logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     env.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		AllowCredentials: true,
	}))

	router.InstallRouter(app, router.Deps{
		Guard:   appGuard,
		Limiter: limiter,
		Sink:    sink,
		Users:   repos.User,
	})

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorf("server shutdown failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("server stopped: %v", err)
	}

	sweeper.Stop()
	sink.Stop()
	if memoryStore != nil {
		memoryStore.Stop()
	}
}
