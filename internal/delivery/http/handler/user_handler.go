package handler

import (
	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type UserHandler struct {
	store *core.Store
}

func NewUserHandler(store *core.Store) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/me")
	grp.Get("/whoami", h.Whoami)
	grp.Get("/profile", h.Profile)
	grp.Get("/has-credential", h.HasCredential)
	grp.Post("/credential", h.SetCredential)
	grp.Delete("/credential", h.RemoveCredential)

	tee := r.Group("/tee")
	tee.Get("/url", h.TeeWorkerURL)
	tee.Get("/available", h.TeeAvailable)
}

func (h *UserHandler) Whoami(c fiber.Ctx) error {
	id := middleware.Identity(c)
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{
		"identity":  id,
		"logged_in": id != "",
		"role":      h.store.RoleOf(id),
	})
}

func (h *UserHandler) Profile(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.MyProfile(middleware.Identity(c)))
}

func (h *UserHandler) HasCredential(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.HasCredential(middleware.Identity(c)))
}

func (h *UserHandler) SetCredential(c fiber.Ctx) error {
	var req struct {
		EncryptedCredential string `json:"encrypted_credential"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.SetEncryptedCredential(middleware.Identity(c), req.EncryptedCredential); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *UserHandler) RemoveCredential(c fiber.Ctx) error {
	if err := h.store.RemoveEncryptedCredential(middleware.Identity(c)); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *UserHandler) TeeWorkerURL(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.TeeWorkerURL())
}

func (h *UserHandler) TeeAvailable(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.TeeAnalysisAvailable())
}
