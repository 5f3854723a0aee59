package handler

import (
	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// AdminHandler exposes the allow-list, kill-switch and maintenance
// operations. Role checks live in the core; the handler only relays the
// caller identity.
type AdminHandler struct {
	store *core.Store
}

func NewAdminHandler(store *core.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

func (h *AdminHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/admin")
	grp.Post("/add-admin", h.AddAdmin)
	grp.Post("/add-worker", h.AddWorker)
	grp.Post("/remove-worker", h.RemoveWorker)
	grp.Get("/workers", h.Workers)
	grp.Post("/set-analysis-enabled", h.SetAnalysisEnabled)
	grp.Post("/set-tee-worker-url", h.SetTeeWorkerURL)
	grp.Post("/cleanup-jobs", h.CleanupJobs)
	grp.Post("/sync-install-counts", h.SyncInstallCounts)
	grp.Post("/reset-install-counts", h.ResetInstallCounts)
	grp.Post("/clear-analysis", h.ClearAnalysis)
	grp.Post("/clear-analysis-history", h.ClearAnalysisHistory)
	grp.Post("/clear-all-analyses", h.ClearAllAnalyses)
	grp.Post("/clear-all-skills", h.ClearAllSkills)
}

type identityRequest struct {
	Identity string `json:"identity"`
}

func (h *AdminHandler) AddAdmin(c fiber.Ctx) error {
	var req identityRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.AddAdmin(middleware.Identity(c), req.Identity); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) AddWorker(c fiber.Ctx) error {
	var req identityRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.AddWorker(middleware.Identity(c), req.Identity); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) RemoveWorker(c fiber.Ctx) error {
	var req identityRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.RemoveWorker(middleware.Identity(c), req.Identity); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) Workers(c fiber.Ctx) error {
	workers, err := h.store.Workers(middleware.Identity(c))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, workers)
}

func (h *AdminHandler) SetAnalysisEnabled(c fiber.Ctx) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SetAnalysisEnabled(middleware.Identity(c), req.Enabled); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) SetTeeWorkerURL(c fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SetTeeWorkerURL(middleware.Identity(c), req.URL); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) CleanupJobs(c fiber.Ctx) error {
	analysisRemoved, enrichmentRemoved, err := h.store.CleanupJobs(middleware.Identity(c))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, [2]uint64{analysisRemoved, enrichmentRemoved})
}

func (h *AdminHandler) SyncInstallCounts(c fiber.Ctx) error {
	var req struct {
		Counts map[string]uint64 `json:"counts"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	updated, err := h.store.SyncInstallCounts(middleware.Identity(c), req.Counts)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, updated)
}

func (h *AdminHandler) ResetInstallCounts(c fiber.Ctx) error {
	count, err := h.store.ResetAllInstallCounts(middleware.Identity(c))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, count)
}

type skillIDRequest struct {
	SkillID string `json:"skill_id"`
}

func (h *AdminHandler) ClearAnalysis(c fiber.Ctx) error {
	var req skillIDRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.ClearAnalysis(middleware.Identity(c), req.SkillID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) ClearAnalysisHistory(c fiber.Ctx) error {
	var req skillIDRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.ClearAnalysisHistory(middleware.Identity(c), req.SkillID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminHandler) ClearAllAnalyses(c fiber.Ctx) error {
	count, err := h.store.ClearAllAnalyses(middleware.Identity(c))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, count)
}

func (h *AdminHandler) ClearAllSkills(c fiber.Ctx) error {
	count, err := h.store.ClearAllSkills(middleware.Identity(c))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, count)
}
