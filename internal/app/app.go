package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"skillscope/internal/config"
	"skillscope/internal/core"
	dbpostgres "skillscope/internal/database/postgres"
	"skillscope/internal/delivery/http/routes"
	"skillscope/internal/infrastructure/cache"
	"skillscope/internal/persist"
	"skillscope/internal/pkg/identity"
	"skillscope/internal/ws"

	"github.com/gofiber/fiber/v3"
)

// App bundles the running server and the hooks the lifecycle needs: the
// post-start restore has already run by the time Bootstrap returns, and the
// returned cleanup is the pre-shutdown snapshot hook.
type App struct {
	Fiber *fiber.App
	Store *core.Store
}

// Bootstrap builds the full service: Postgres, stable-region restore with
// migrations, the core store, redis cache, websocket hub and the HTTP
// surface. A failed migration aborts startup.
func Bootstrap(cfg config.Config, logger *log.Logger) (*App, func() error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	persistStore := persist.New(db, persist.DefaultRegistry(), logger)
	if err := persistStore.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	store := core.New(cfg.App.BootstrapAdmin, logger, core.WithNotifier(ws.NewJobNotifier(hub)))

	regions, err := persistStore.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("restore state: %w", err)
	}
	if len(regions) > 0 {
		if err := store.RestoreSnapshot(regions); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("restore state: %w", err)
		}
	}

	redisCache := cache.NewRedis(cfg.Redis, logger)

	f := fiber.New(fiber.Config{AppName: cfg.App.AppName})
	routes.Register(f, routes.Deps{
		Store:    store,
		Cache:    redisCache,
		Identity: identity.NewHMACService(cfg.Identity.Secret),
		Hub:      hub,
		Logger:   logger,
	})

	cleanup := func() error {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer saveCancel()
		if err := saveSnapshot(saveCtx, store, persistStore); err != nil {
			_ = db.Close()
			return err
		}
		return db.Close()
	}

	return &App{Fiber: f, Store: store}, cleanup, nil
}

func saveSnapshot(ctx context.Context, store *core.Store, persistStore *persist.Store) error {
	regions, err := store.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := persistStore.Save(ctx, regions); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// ListenAddr normalizes an HTTP port into a listen address.
func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
