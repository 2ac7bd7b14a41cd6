package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/prompt-service/services"
	"promptmaker-backend/shared/database/models"
	"promptmaker-backend/shared/logger"
	"promptmaker-backend/shared/utils/cache"
	"promptmaker-backend/shared/utils/moderation"
	"promptmaker-backend/shared/utils/query"
)

type PromptHandler struct {
	db               *gorm.DB
	cache            *cache.CacheManager
	feed             *services.FeedHub
	promptModerator  *moderation.Moderator
	commentModerator *moderation.Moderator
}

func NewPromptHandler(db *gorm.DB, cacheManager *cache.CacheManager, feed *services.FeedHub) *PromptHandler {
	return &PromptHandler{
		db:              db,
		cache:           cacheManager,
		feed:            feed,
		promptModerator: moderation.Default,
		// comments have no minimum length
		commentModerator: moderation.New(moderation.WithLengthBounds(1, 2000)),
	}
}

// Prompt Request/Response structs

type PromptRequest struct {
	Title       string   `json:"title" binding:"required,min=3,max=200" example:"Code reviewer"`
	Description string   `json:"description" binding:"max=1000" example:"Reviews a diff like a careful senior engineer"`
	Content     string   `json:"content" binding:"required,max=10000" example:"You are a senior engineer. Review the following diff..."`
	Tags        []string `json:"tags" binding:"max=10,dive,min=1,max=30" example:"coding,review"`
	Category    string   `json:"category" binding:"max=50" example:"development"`
	IsPublic    *bool    `json:"is_public" example:"true"`
}

type ModerateRequest struct {
	Title       string   `json:"title" binding:"max=200"`
	Description string   `json:"description" binding:"max=1000"`
	Content     string   `json:"content" binding:"max=20000"`
	Tags        []string `json:"tags" binding:"max=10"`
}

type PromptResponse struct {
	models.Prompt
	Author models.PublicUser `json:"author"`
}

type PromptListResponse struct {
	Data       []PromptResponse         `json:"data"`
	Pagination query.PaginationResponse `json:"pagination"`
}

var (
	promptFilterFields = map[string]string{
		"category":  "category",
		"author_id": "author_id",
	}
	promptSortFields = map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"vote_score": "vote_score",
		"votes":      "vote_score",
		"comments":   "comment_count",
		"title":      "title",
	}
	promptSearchFields = []string{"title", "description", "content"}
)

func toPromptResponse(p models.Prompt) PromptResponse {
	return PromptResponse{Prompt: p, Author: p.Author.Public()}
}

// normalizeTags lower-cases, trims and de-duplicates tags, keeping first-seen order
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (r PromptRequest) moderationInput() moderation.PromptInput {
	return moderation.PromptInput{
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Tags:        r.Tags,
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// loadPrompt fetches a prompt with its author, writing 404 when missing
func (h *PromptHandler) loadPrompt(c *gin.Context, id uuid.UUID) (*models.Prompt, bool) {
	var prompt models.Prompt
	if err := h.db.Preload("Author").First(&prompt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Prompt not found"})
			return nil, false
		}
		respondInternal(c, "Could not load prompt", err)
		return nil, false
	}
	return &prompt, true
}

func (h *PromptHandler) invalidate(c *gin.Context, id uuid.UUID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidatePrompt(c.Request.Context(), id.String()); err != nil {
		logger.Log.Warn("failed to invalidate prompt cache", zap.String("prompt_id", id.String()), zap.Error(err))
	}
}

// GET /api/prompts
// @Summary List prompts
// @Description Public prompts with pagination, search, tag/category filters and sorting
// @Tags prompts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param search query string false "Matches title, description and content"
// @Param tag query string false "Tag filter"
// @Param category query string false "Category filter"
// @Param sort query string false "created_at, vote_score, comments or title" default(created_at)
// @Param order query string false "asc or desc" default(desc)
// @Success 200 {object} handlers.PromptListResponse
// @Router /prompts [get]
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	params := query.ParseQueryParams(c)

	q := h.db.Model(&models.Prompt{}).Where("is_public = ?", true)
	q = query.ApplyFilters(q, params.Filters, promptFilterFields)
	q = query.ApplyTagFilter(q, "tags", params.Filters["tag"])
	q = query.ApplySearch(q, params.Search, promptSearchFields)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondInternal(c, "Could not list prompts", err)
		return
	}

	var prompts []models.Prompt
	q = query.ApplySort(q, params.Sort, promptSortFields)
	q = query.ApplyPagination(q, params.Page, params.Limit)
	if err := q.Preload("Author").Find(&prompts).Error; err != nil {
		respondInternal(c, "Could not list prompts", err)
		return
	}

	data := make([]PromptResponse, 0, len(prompts))
	for _, p := range prompts {
		data = append(data, toPromptResponse(p))
	}

	c.JSON(http.StatusOK, PromptListResponse{
		Data:       data,
		Pagination: query.BuildPaginationResponse(params.Page, params.Limit, total),
	})
}

// GET /api/prompts/:id
// @Summary Get prompt
// @Description Private prompts are only visible to their author
// @Tags prompts
// @Produce json
// @Param id path string true "Prompt ID"
// @Success 200 {object} handlers.PromptResponse
// @Failure 404 {object} handlers.ErrorResponse "Prompt not found"
// @Router /prompts/{id} [get]
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var cached PromptResponse
	if h.cache.GetJSON(c.Request.Context(), cache.GeneratePromptKey(id.String()), &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	prompt, ok := h.loadPrompt(c, id)
	if !ok {
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	if !prompt.IsPublic && prompt.AuthorID != userID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Prompt not found"})
		return
	}

	response := toPromptResponse(*prompt)
	if prompt.IsPublic && h.cache != nil {
		if err := h.cache.SetJSON(c.Request.Context(), cache.GeneratePromptKey(id.String()), response, cache.PromptTTL); err != nil {
			logger.Log.Debug("prompt cache write failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, response)
}

// POST /api/prompts
// @Summary Create prompt
// @Description Creates a prompt after it passes content moderation
// @Tags prompts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param prompt body PromptRequest true "Prompt"
// @Success 201 {object} handlers.PromptResponse
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 422 {object} handlers.ModerationErrorResponse "Rejected by moderation"
// @Failure 429 {object} handlers.ErrorResponse "Too many requests"
// @Router /prompts [post]
func (h *PromptHandler) CreatePrompt(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	req.Tags = normalizeTags(req.Tags)

	if !moderate(c, "prompt", h.promptModerator.ModeratePrompt(req.moderationInput())) {
		return
	}

	public := req.IsPublic == nil || *req.IsPublic
	prompt := models.Prompt{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Content:     req.Content,
		Tags:        req.Tags,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		IsPublic:    public,
		AuthorID:    userID,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		// gorm writes the column default (true) in place of a false is_public on create
		if err := tx.Create(&prompt).Error; err != nil {
			return err
		}
		if !public {
			if err := tx.Model(&prompt).Update("is_public", false).Error; err != nil {
				return err
			}
			prompt.IsPublic = false
		}
		return tx.First(&prompt.Author, "id = ?", userID).Error
	})
	if err != nil {
		respondInternal(c, "Could not create prompt", err)
		return
	}

	response := toPromptResponse(prompt)

	if prompt.IsPublic {
		h.feed.Publish(services.NewFeedEvent(services.EventPromptCreated, prompt.ID, userID, response))
	}

	c.JSON(http.StatusCreated, response)
}

// PUT /api/prompts/:id
// @Summary Update prompt
// @Description Replaces a prompt. Only the author may update it and the new content is moderated again.
// @Tags prompts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prompt ID"
// @Param prompt body PromptRequest true "Prompt"
// @Success 200 {object} handlers.PromptResponse
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 403 {object} handlers.ErrorResponse "Not the author"
// @Failure 404 {object} handlers.ErrorResponse "Prompt not found"
// @Failure 422 {object} handlers.ModerationErrorResponse "Rejected by moderation"
// @Router /prompts/{id} [put]
func (h *PromptHandler) UpdatePrompt(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	req.Tags = normalizeTags(req.Tags)

	if !moderate(c, "prompt", h.promptModerator.ModeratePrompt(req.moderationInput())) {
		return
	}

	prompt, ok := h.loadPrompt(c, id)
	if !ok {
		return
	}
	if prompt.AuthorID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only the author can modify this prompt"})
		return
	}

	wasPublic := prompt.IsPublic
	isPublic := prompt.IsPublic
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	updates := models.Prompt{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Content:     req.Content,
		Tags:        req.Tags,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		IsPublic:    isPublic,
	}
	err := h.db.Model(prompt).
		Select("title", "description", "content", "tags", "category", "is_public").
		Updates(&updates).Error
	if err != nil {
		respondInternal(c, "Could not update prompt", err)
		return
	}

	prompt, ok = h.loadPrompt(c, id)
	if !ok {
		return
	}

	h.invalidate(c, id)
	response := toPromptResponse(*prompt)
	switch {
	case prompt.IsPublic:
		h.feed.Publish(services.NewFeedEvent(services.EventPromptUpdated, prompt.ID, userID, response))
	case wasPublic:
		// made private: subscribers drop it like a deletion
		h.feed.Publish(services.NewFeedEvent(services.EventPromptDeleted, prompt.ID, userID, nil))
	}

	c.JSON(http.StatusOK, response)
}

// DELETE /api/prompts/:id
// @Summary Delete prompt
// @Description Deletes a prompt together with its votes and comments. Author only.
// @Tags prompts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prompt ID"
// @Success 200 {object} handlers.MessageResponse
// @Failure 403 {object} handlers.ErrorResponse "Not the author"
// @Failure 404 {object} handlers.ErrorResponse "Prompt not found"
// @Router /prompts/{id} [delete]
func (h *PromptHandler) DeletePrompt(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	prompt, ok := h.loadPrompt(c, id)
	if !ok {
		return
	}
	if prompt.AuthorID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only the author can delete this prompt"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("prompt_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Prompt{}, "id = ?", id).Error
	})
	if err != nil {
		respondInternal(c, "Could not delete prompt", err)
		return
	}

	h.invalidate(c, id)
	if prompt.IsPublic {
		h.feed.Publish(services.NewFeedEvent(services.EventPromptDeleted, id, userID, nil))
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Prompt deleted successfully"})
}

// POST /api/prompts/moderate
// @Summary Preview moderation
// @Description Runs content moderation without saving anything
// @Tags prompts
// @Accept json
// @Produce json
// @Param prompt body ModerateRequest true "Draft prompt"
// @Success 200 {object} moderation.Result
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Router /prompts/moderate [post]
func (h *PromptHandler) ModeratePreview(c *gin.Context) {
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	result := h.promptModerator.ModeratePrompt(moderation.PromptInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        normalizeTags(req.Tags),
	})

	c.JSON(http.StatusOK, result)
}
