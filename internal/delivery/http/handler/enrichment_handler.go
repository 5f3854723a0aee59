package handler

import (
	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/domain"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type EnrichmentHandler struct {
	store *core.Store
}

func NewEnrichmentHandler(store *core.Store) *EnrichmentHandler {
	return &EnrichmentHandler{store: store}
}

func (h *EnrichmentHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/enrichment")
	grp.Post("/request", h.Request)
	grp.Post("/queue-batch", h.QueueBatch)
	grp.Post("/claim", h.Claim)
	grp.Post("/result", h.SubmitResult)
	grp.Post("/error", h.SubmitError)
	grp.Post("/cancel", h.Cancel)
	grp.Get("/status", h.Status)
	grp.Get("/job", h.Job)
	grp.Get("/pending-count", h.PendingCount)
	grp.Get("/", h.List)
}

func (h *EnrichmentHandler) Request(c fiber.Ctx) error {
	var req struct {
		SkillID     string `json:"skill_id"`
		AutoAnalyze bool   `json:"auto_analyze"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	jobID, err := h.store.RequestEnrichment(middleware.Identity(c), req.SkillID, req.AutoAnalyze)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"job_id": jobID})
}

func (h *EnrichmentHandler) QueueBatch(c fiber.Ctx) error {
	var req struct {
		Limit       int  `json:"limit"`
		AutoAnalyze bool `json:"auto_analyze"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	queued, totalMissing, err := h.store.QueueEnrichmentBatch(middleware.Identity(c), req.Limit, req.AutoAnalyze)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{
		"queued":        queued,
		"total_missing": totalMissing,
	})
}

func (h *EnrichmentHandler) Claim(c fiber.Ctx) error {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	jobs, err := h.store.ClaimEnrichmentJobs(middleware.Identity(c), req.Limit)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, jobs)
}

func (h *EnrichmentHandler) SubmitResult(c fiber.Ctx) error {
	var req struct {
		JobID  string                  `json:"job_id"`
		Result domain.EnrichmentResult `json:"result"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SubmitEnrichmentResult(middleware.Identity(c), req.JobID, req.Result); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *EnrichmentHandler) SubmitError(c fiber.Ctx) error {
	var req struct {
		JobID string `json:"job_id"`
		Error string `json:"error"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SubmitEnrichmentError(middleware.Identity(c), req.JobID, req.Error); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *EnrichmentHandler) Cancel(c fiber.Ctx) error {
	var req struct {
		JobID string `json:"job_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.CancelEnrichmentJob(middleware.Identity(c), req.JobID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *EnrichmentHandler) Status(c fiber.Ctx) error {
	status, errMsg, err := h.store.GetEnrichmentJobStatus(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"status": status, "error": errMsg})
}

func (h *EnrichmentHandler) Job(c fiber.Ctx) error {
	job, err := h.store.GetEnrichmentJob(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, job)
}

func (h *EnrichmentHandler) PendingCount(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.PendingEnrichmentCount())
}

func (h *EnrichmentHandler) List(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.ListEnrichmentJobs(queryInt(c, "limit", 50)))
}
