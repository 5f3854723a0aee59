package handler

import (
	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type PromptHandler struct {
	store *core.Store
}

func NewPromptHandler(store *core.Store) *PromptHandler {
	return &PromptHandler{store: store}
}

func (h *PromptHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/prompts")
	grp.Post("/", h.Create)
	grp.Post("/set-default", h.SetDefault)
	grp.Post("/delete", h.Delete)
	grp.Get("/", h.List)
	grp.Get("/get", h.Get)
	grp.Get("/default", h.Default)
}

func (h *PromptHandler) Create(c fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Version     string `json:"version"`
		Template    string `json:"template"`
		Description string `json:"description"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	id, err := h.store.CreatePrompt(middleware.Identity(c), req.Name, req.Version, req.Template, req.Description)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"id": id})
}

func (h *PromptHandler) SetDefault(c fiber.Ctx) error {
	var req struct {
		PromptID string `json:"prompt_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SetDefaultPrompt(middleware.Identity(c), req.PromptID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *PromptHandler) Delete(c fiber.Ctx) error {
	var req struct {
		PromptID string `json:"prompt_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.DeletePrompt(middleware.Identity(c), req.PromptID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *PromptHandler) List(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.ListPrompts())
}

func (h *PromptHandler) Get(c fiber.Ctx) error {
	p, err := h.store.GetPrompt(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, p)
}

func (h *PromptHandler) Default(c fiber.Ctx) error {
	p, err := h.store.GetDefaultPrompt()
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, p)
}
