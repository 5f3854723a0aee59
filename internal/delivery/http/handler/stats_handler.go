package handler

import (
	"fmt"
	"time"

	"skillscope/internal/core"
	"skillscope/internal/infrastructure/cache"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// StatsHandler serves the aggregate counters. Every stats payload is a
// positional array of 64-bit unsigned integers in documented field order.
type StatsHandler struct {
	store *core.Store
	cache *cache.Redis
}

func NewStatsHandler(store *core.Store, rc *cache.Redis) *StatsHandler {
	return &StatsHandler{store: store, cache: rc}
}

func (h *StatsHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/stats")
	grp.Get("/", h.Stats)
	grp.Get("/analysis", h.AnalysisStats)
	grp.Get("/history", h.HistoryStats)
	grp.Get("/memory", h.MemoryStats)
}

func (h *StatsHandler) Stats(c fiber.Ctx) error {
	key := fmt.Sprintf("stats:%d", h.store.Generation())
	var cached [4]uint64
	if ok, _ := h.cache.GetJSON(c.Context(), key, &cached); ok {
		return response.Success(c, fiber.StatusOK, response.MessageOK, cached)
	}
	totalSkills, analyzed, installs, users := h.store.GetStats()
	out := [4]uint64{totalSkills, analyzed, installs, users}
	h.cache.SetJSON(c.Context(), key, out, 60*time.Second)
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *StatsHandler) AnalysisStats(c fiber.Ctx) error {
	total, analyzed, withMCP, highQuality := h.store.GetAnalysisStats()
	return response.Success(c, fiber.StatusOK, response.MessageOK, [4]uint64{total, analyzed, withMCP, highQuality})
}

func (h *StatsHandler) HistoryStats(c fiber.Ctx) error {
	entries, withHistory := h.store.GetAnalysisHistoryStats()
	return response.Success(c, fiber.StatusOK, response.MessageOK, [2]uint64{entries, withHistory})
}

func (h *StatsHandler) MemoryStats(c fiber.Ctx) error {
	total, content, history, jobs := h.store.GetMemoryStats()
	return response.Success(c, fiber.StatusOK, response.MessageOK, [4]uint64{total, content, history, jobs})
}
