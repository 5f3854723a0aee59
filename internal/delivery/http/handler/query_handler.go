package handler

import (
	"fmt"
	"strconv"
	"time"

	"skillscope/internal/core"
	"skillscope/internal/delivery/http/middleware"
	"skillscope/internal/infrastructure/cache"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// QueryHandler serves the anonymous read surface. The hot listings go
// through the redis cache keyed on the store's write generation, so any
// index write invalidates them without explicit deletes.
type QueryHandler struct {
	store *core.Store
	cache *cache.Redis
}

func NewQueryHandler(store *core.Store, rc *cache.Redis) *QueryHandler {
	return &QueryHandler{store: store, cache: rc}
}

const listCacheTTL = 60 * time.Second

func (h *QueryHandler) RegisterRoutes(r fiber.Router) {
	grp := r.Group("/skills")
	grp.Get("/", h.ListFiltered)
	grp.Get("/all", h.ListAll)
	grp.Get("/page", h.ListPage)
	grp.Get("/get", h.Get)
	grp.Get("/search", h.Search)
	grp.Get("/category", h.ByCategory)
	grp.Get("/owner", h.ByOwner)
	grp.Get("/top-rated", h.TopRated)
	grp.Get("/providing-mcp", h.ProvidingMCP)
	grp.Get("/with-dependencies", h.WithDependencies)
	grp.Get("/with-flags", h.WithFlags)
	grp.Get("/by-topic", h.ByTopicRating)
	grp.Get("/topic-rating", h.TopicRating)
	grp.Get("/unanalyzed", h.Unanalyzed)
	grp.Get("/unanalyzed-with-content", h.UnanalyzedWithContent)
	grp.Get("/missing-content", h.MissingContent)
	grp.Get("/categories", h.Categories)
	grp.Get("/install-command", h.InstallCommand)
	grp.Get("/files", h.Files)
	grp.Get("/file", h.File)
	grp.Get("/checksum", h.Checksum)
	grp.Get("/file-checksums", h.FileChecksums)
	grp.Get("/current-checksums", h.CurrentChecksums)
	grp.Get("/analysis-history", h.AnalysisHistory)
	grp.Get("/file-history", h.FileHistory)
	grp.Get("/analyzed-models", h.AnalyzedModels)

	r.Get("/history", h.AllHistory)

	verify := r.Group("/verify")
	verify.Post("/file", h.VerifyFile)
	verify.Post("/skill", h.VerifySkill)
	verify.Post("/batch", h.VerifyBatch)
	verify.Post("/local", h.VerifyLocal)
}

func queryInt(c fiber.Ctx, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

type pagedSkills struct {
	Skills any    `json:"skills"`
	Total  uint32 `json:"total"`
}

func (h *QueryHandler) ListFiltered(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	sortBy := c.Query("sort")
	search := c.Query("search")
	category := c.Query("category")

	key := fmt.Sprintf("skills:list:%d:%d:%d:%s:%s:%s",
		h.store.Generation(), limit, offset, sortBy, search, category)
	var cached pagedSkills
	if ok, _ := h.cache.GetJSON(c.Context(), key, &cached); ok {
		return response.Success(c, fiber.StatusOK, response.MessageOK, cached)
	}

	skills, total, err := h.store.ListSkillsFiltered(limit, offset, sortBy, search, category)
	if err != nil {
		return err
	}
	result := pagedSkills{Skills: skills, Total: total}
	h.cache.SetJSON(c.Context(), key, result, listCacheTTL)
	return response.Success(c, fiber.StatusOK, response.MessageOK, result)
}

func (h *QueryHandler) ListAll(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.ListSkills())
}

func (h *QueryHandler) ListPage(c fiber.Ctx) error {
	skills, total := h.store.ListSkillsPage(queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	return response.Success(c, fiber.StatusOK, response.MessageOK, pagedSkills{Skills: skills, Total: total})
}

func (h *QueryHandler) Get(c fiber.Ctx) error {
	sk, err := h.store.GetSkill(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, sk)
}

func (h *QueryHandler) Search(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.SearchSkills(c.Query("q")))
}

func (h *QueryHandler) ByCategory(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetSkillsByCategory(c.Query("category")))
}

func (h *QueryHandler) ByOwner(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetSkillsByOwner(c.Query("owner")))
}

func (h *QueryHandler) TopRated(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetTopRatedSkills(queryInt(c, "limit", 10)))
}

func (h *QueryHandler) ProvidingMCP(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetSkillsProvidingMCP())
}

func (h *QueryHandler) WithDependencies(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetSkillsWithDependencies())
}

func (h *QueryHandler) WithFlags(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetSkillsWithFlags())
}

func (h *QueryHandler) ByTopicRating(c fiber.Ctx) error {
	skills, err := h.store.GetSkillsByTopicRating(c.Query("topic"), queryInt(c, "limit", 10))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, skills)
}

func (h *QueryHandler) TopicRating(c fiber.Ctx) error {
	rating, err := h.store.GetSkillTopicRating(c.Query("id"), c.Query("topic"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, rating)
}

func (h *QueryHandler) Unanalyzed(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetUnanalyzedSkills())
}

func (h *QueryHandler) UnanalyzedWithContent(c fiber.Ctx) error {
	refs, total := h.store.ListUnanalyzedWithContent(queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"skills": refs, "total": total})
}

func (h *QueryHandler) MissingContent(c fiber.Ctx) error {
	refs, total := h.store.ListSkillsMissingContent(queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"skills": refs, "total": total})
}

func (h *QueryHandler) Categories(c fiber.Ctx) error {
	key := fmt.Sprintf("skills:categories:%d", h.store.Generation())
	var cached []string
	if ok, _ := h.cache.GetJSON(c.Context(), key, &cached); ok {
		return response.Success(c, fiber.StatusOK, response.MessageOK, cached)
	}
	categories := h.store.GetCategories()
	h.cache.SetJSON(c.Context(), key, categories, listCacheTTL)
	return response.Success(c, fiber.StatusOK, response.MessageOK, categories)
}

func (h *QueryHandler) InstallCommand(c fiber.Ctx) error {
	cmd, err := h.store.GetInstallCommand(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, cmd)
}

func (h *QueryHandler) Files(c fiber.Ctx) error {
	files, err := h.store.GetSkillFiles(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, files)
}

func (h *QueryHandler) File(c fiber.Ctx) error {
	f, err := h.store.GetSkillFile(c.Query("id"), c.Query("path"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, f)
}

func (h *QueryHandler) Checksum(c fiber.Ctx) error {
	sum, err := h.store.GetSkillChecksum(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, sum)
}

func (h *QueryHandler) FileChecksums(c fiber.Ctx) error {
	sums, err := h.store.GetSkillFileChecksums(c.Query("id"))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, sums)
}

func (h *QueryHandler) CurrentChecksums(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.CurrentFileChecksums(c.Query("id")))
}

func (h *QueryHandler) AnalysisHistory(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetAnalysisHistory(c.Query("id")))
}

func (h *QueryHandler) FileHistory(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.GetFileHistory(c.Query("id")))
}

func (h *QueryHandler) AnalyzedModels(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.AnalyzedModels(c.Query("id")))
}

func (h *QueryHandler) AllHistory(c fiber.Ctx) error {
	entries, total := h.store.GetAllAnalysisHistory(queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"entries": entries, "total": total})
}

func (h *QueryHandler) VerifyFile(c fiber.Ctx) error {
	var req struct {
		SkillID  string `json:"skill_id"`
		Path     string `json:"path"`
		Checksum string `json:"checksum"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	res, err := h.store.VerifyFileChecksum(req.SkillID, req.Path, req.Checksum)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *QueryHandler) VerifySkill(c fiber.Ctx) error {
	var req struct {
		SkillID string              `json:"skill_id"`
		Files   []core.PathChecksum `json:"files"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	res, err := h.store.VerifySkillFiles(req.SkillID, req.Files)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *QueryHandler) VerifyBatch(c fiber.Ctx) error {
	var req struct {
		Claims []core.PathChecksum `json:"claims"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.store.VerifySkillsBatch(req.Claims))
}

func (h *QueryHandler) VerifyLocal(c fiber.Ctx) error {
	var req struct {
		SkillID  string `json:"skill_id"`
		Path     string `json:"path"`
		Checksum string `json:"checksum"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, response.MessageBadRequest, nil, err)
	}
	matches, stored := h.store.VerifyLocalChecksum(req.SkillID, req.Path, req.Checksum)
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"matches": matches, "stored_checksum": stored})
}
