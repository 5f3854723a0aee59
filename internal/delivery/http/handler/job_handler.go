package handler

import (
	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/domain"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// JobHandler is the analysis queue surface: submission and cancellation for
// users, claim/complete/fail for workers, status polling for everyone.
type JobHandler struct {
	store *core.Store
}

func NewJobHandler(store *core.Store) *JobHandler {
	return &JobHandler{store: store}
}

func (h *JobHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/jobs")
	grp.Post("/request", h.Request)
	grp.Post("/claim", h.Claim)
	grp.Post("/result", h.SubmitResult)
	grp.Post("/result-with-metadata", h.SubmitResultWithMetadata)
	grp.Post("/error", h.SubmitError)
	grp.Post("/cancel", h.Cancel)
	grp.Get("/status", h.Status)
	grp.Get("/pending-count", h.PendingCount)
	grp.Get("/", h.List)
}

func (h *JobHandler) Request(c fiber.Ctx) error {
	var req struct {
		SkillID string `json:"skill_id"`
		Model   string `json:"model"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	jobID, err := h.store.RequestAnalysis(middleware.Identity(c), req.SkillID, domain.AnalysisModel(req.Model))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"job_id": jobID})
}

func (h *JobHandler) Claim(c fiber.Ctx) error {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	jobs, err := h.store.ClaimPendingJobs(middleware.Identity(c), req.Limit)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, jobs)
}

func (h *JobHandler) SubmitResult(c fiber.Ctx) error {
	var req struct {
		JobID        string `json:"job_id"`
		AnalysisJSON string `json:"analysis_json"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SubmitJobResult(middleware.Identity(c), req.JobID, req.AnalysisJSON); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *JobHandler) SubmitResultWithMetadata(c fiber.Ctx) error {
	var req struct {
		JobID            string `json:"job_id"`
		AnalysisJSON     string `json:"analysis_json"`
		TeeWorkerVersion string `json:"tee_worker_version"`
		PromptVersion    string `json:"prompt_version"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	err := h.store.SubmitJobResultWithMetadata(
		middleware.Identity(c), req.JobID, req.AnalysisJSON, req.TeeWorkerVersion, req.PromptVersion,
	)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *JobHandler) SubmitError(c fiber.Ctx) error {
	var req struct {
		JobID string `json:"job_id"`
		Error string `json:"error"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SubmitJobError(middleware.Identity(c), req.JobID, req.Error); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *JobHandler) Cancel(c fiber.Ctx) error {
	var req struct {
		JobID string `json:"job_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.CancelAnalysisJob(middleware.Identity(c), req.JobID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *JobHandler) Status(c fiber.Ctx) error {
	status, errMsg, err := h.store.GetJobStatus(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"status": status, "error": errMsg})
}

func (h *JobHandler) PendingCount(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.PendingJobCount())
}

func (h *JobHandler) List(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.ListAnalysisJobs(queryInt(c, "limit", 50)))
}
