package routes

import (
	"log"

	"skillscope/internal/core"
	"skillscope/internal/delivery/http/handler"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/infrastructure/cache"
	"skillscope/internal/pkg/identity"
	"skillscope/internal/pkg/response"
	"skillscope/internal/ws"

	"github.com/gofiber/fiber/v3"
)

// Deps carries everything route registration needs.
type Deps struct {
	Store    *core.Store
	Cache    *cache.Redis
	Identity identity.Service
	Hub      *ws.Hub
	Logger   *log.Logger
}

// Register wires middleware and the full v1 RPC surface.
func Register(app *fiber.App, d Deps) {
	errMw := middleware.NewErrorMiddleware()
	idMw := middleware.NewIdentityMiddleware(d.Identity)
	logMw := middleware.NewAccessLogMiddleware(d.Logger)

	app.Use(errMw.Middleware())
	app.Use(idMw.Middleware())
	app.Use(logMw.Middleware())

	app.Get("/health", func(c fiber.Ctx) error {
		return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
	})

	v1 := app.Group("/v1")
	handler.NewAdminHandler(d.Store).RegisterRoutes(v1)
	handler.NewUserHandler(d.Store).RegisterRoutes(v1)
	handler.NewSkillHandler(d.Store).RegisterRoutes(v1)
	handler.NewQueryHandler(d.Store, d.Cache).RegisterRoutes(v1)
	handler.NewJobHandler(d.Store).RegisterRoutes(v1)
	handler.NewEnrichmentHandler(d.Store).RegisterRoutes(v1)
	handler.NewPromptHandler(d.Store).RegisterRoutes(v1)
	handler.NewStatsHandler(d.Store, d.Cache).RegisterRoutes(v1)

	if d.Hub != nil {
		app.Get("/ws/jobs", d.Hub.JobsFeed(func() ws.QueueDepths {
			return ws.QueueDepths{
				PendingAnalysis:   d.Store.PendingJobCount(),
				PendingEnrichment: d.Store.PendingEnrichmentCount(),
			}
		}))
	}
}
