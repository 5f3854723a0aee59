package handler

import (
	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/domain"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// SkillHandler covers the mutating half of the skill index: inserts, file
// replacement, content updates and install recording.
type SkillHandler struct {
	store *core.Store
}

func NewSkillHandler(store *core.Store) *SkillHandler {
	return &SkillHandler{store: store}
}

func (h *SkillHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/skills")
	grp.Post("/", h.Add)
	grp.Post("/batch", h.AddBatch)
	grp.Post("/files", h.SetFiles)
	grp.Post("/file", h.AddFile)
	grp.Post("/skill-md", h.UpdateSkillMd)
	grp.Post("/skill-md-batch", h.UpdateSkillMdBatch)
	grp.Post("/install", h.RecordInstall)
}

func (h *SkillHandler) Add(c fiber.Ctx) error {
	var sk domain.Skill
	if err := c.Bind().Body(&sk); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	id, err := h.store.AddSkill(middleware.Identity(c), sk)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, "Skill created successfully", fiber.Map{"id": id})
}

func (h *SkillHandler) AddBatch(c fiber.Ctx) error {
	var req struct {
		Skills []domain.Skill `json:"skills"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	count, err := h.store.AddSkillsBatch(middleware.Identity(c), req.Skills)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"inserted": count})
}

func (h *SkillHandler) SetFiles(c fiber.Ctx) error {
	var req struct {
		SkillID string             `json:"skill_id"`
		Files   []domain.SkillFile `json:"files"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	checksum, err := h.store.SetSkillFiles(middleware.Identity(c), req.SkillID, req.Files)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"files_checksum": checksum})
}

func (h *SkillHandler) AddFile(c fiber.Ctx) error {
	var req struct {
		SkillID string           `json:"skill_id"`
		File    domain.SkillFile `json:"file"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	checksum, err := h.store.AddSkillFile(middleware.Identity(c), req.SkillID, req.File)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"files_checksum": checksum})
}

func (h *SkillHandler) UpdateSkillMd(c fiber.Ctx) error {
	var req struct {
		SkillID string  `json:"skill_id"`
		Content *string `json:"content"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	if err := h.store.UpdateSkillMd(middleware.Identity(c), req.SkillID, req.Content); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *SkillHandler) UpdateSkillMdBatch(c fiber.Ctx) error {
	var req struct {
		Entries map[string]string `json:"entries"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	updated, err := h.store.UpdateSkillMdBatch(middleware.Identity(c), req.Entries)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"updated": updated})
}

func (h *SkillHandler) RecordInstall(c fiber.Ctx) error {
	var req struct {
		SkillID string `json:"skill_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	count, err := h.store.RecordInstall(middleware.Identity(c), req.SkillID)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"install_count": count})
}
