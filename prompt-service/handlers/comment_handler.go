package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/prompt-service/services"
	"promptmaker-backend/shared/database/models"
	"promptmaker-backend/shared/logger"
	"promptmaker-backend/shared/utils/query"
)

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=2000" example:"Worked great with a long diff."`
}

type CommentResponse struct {
	models.Comment
	Author models.PublicUser `json:"author"`
}

type CommentListResponse struct {
	Data       []CommentResponse        `json:"data"`
	Pagination query.PaginationResponse `json:"pagination"`
}

func toCommentResponse(cm models.Comment) CommentResponse {
	return CommentResponse{Comment: cm, Author: cm.Author.Public()}
}

// GET /api/prompts/:id/comments
// @Summary List comments
// @Description Comments on a prompt, oldest first
// @Tags comments
// @Produce json
// @Param id path string true "Prompt ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} handlers.CommentListResponse
// @Failure 404 {object} handlers.ErrorResponse "Prompt not found"
// @Router /prompts/{id}/comments [get]
func (h *PromptHandler) ListComments(c *gin.Context) {
	promptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	prompt, ok := h.loadPrompt(c, promptID)
	if !ok {
		return
	}
	userID, _ := middleware.CurrentUserID(c)
	if !prompt.IsPublic && prompt.AuthorID != userID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Prompt not found"})
		return
	}

	params := query.ParseQueryParams(c)
	q := h.db.Model(&models.Comment{}).Where("prompt_id = ?", promptID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondInternal(c, "Could not list comments", err)
		return
	}

	var comments []models.Comment
	if err := query.ApplyPagination(q.Order("created_at ASC"), params.Page, params.Limit).
		Preload("Author").Find(&comments).Error; err != nil {
		respondInternal(c, "Could not list comments", err)
		return
	}

	data := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		data = append(data, toCommentResponse(cm))
	}

	c.JSON(http.StatusOK, CommentListResponse{
		Data:       data,
		Pagination: query.BuildPaginationResponse(params.Page, params.Limit, total),
	})
}

// POST /api/prompts/:id/comments
// @Summary Add comment
// @Description Adds a moderated comment to a prompt
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prompt ID"
// @Param comment body CommentRequest true "Comment"
// @Success 201 {object} handlers.CommentResponse
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 404 {object} handlers.ErrorResponse "Prompt not found"
// @Failure 422 {object} handlers.ModerationErrorResponse "Rejected by moderation"
// @Failure 429 {object} handlers.ErrorResponse "Too many requests"
// @Router /prompts/{id}/comments [post]
func (h *PromptHandler) CreateComment(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	promptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	content := strings.TrimSpace(req.Content)

	if !moderate(c, "comment", h.commentModerator.ModerateContent(content)) {
		return
	}

	prompt, ok := h.loadPrompt(c, promptID)
	if !ok {
		return
	}
	if !prompt.IsPublic && prompt.AuthorID != userID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Prompt not found"})
		return
	}

	comment := models.Comment{PromptID: promptID, AuthorID: userID, Content: content}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Prompt{}).Where("id = ?", promptID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		respondInternal(c, "Could not create comment", err)
		return
	}

	if err := h.db.First(&comment.Author, "id = ?", userID).Error; err != nil {
		logger.Log.Warn("failed to load comment author", zap.String("user_id", userID.String()), zap.Error(err))
	}
	h.invalidate(c, promptID)

	response := toCommentResponse(comment)
	if prompt.IsPublic {
		h.feed.Publish(services.NewFeedEvent(services.EventCommentCreated, promptID, userID, response))
	}

	c.JSON(http.StatusCreated, response)
}

// DELETE /api/comments/:id
// @Summary Delete comment
// @Description Deletes a comment. Author only.
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {object} handlers.MessageResponse
// @Failure 403 {object} handlers.ErrorResponse "Not the author"
// @Failure 404 {object} handlers.ErrorResponse "Comment not found"
// @Router /comments/{id} [delete]
func (h *PromptHandler) DeleteComment(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Comment not found"})
			return
		}
		respondInternal(c, "Could not load comment", err)
		return
	}

	if comment.AuthorID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only the author can delete this comment"})
		return
	}

	var parent models.Prompt
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "is_public").Where("id = ?", comment.PromptID).Limit(1).Find(&parent).Error; err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Prompt{}).Where("id = ? AND comment_count > 0", comment.PromptID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	if err != nil {
		respondInternal(c, "Could not delete comment", err)
		return
	}

	h.invalidate(c, comment.PromptID)
	if parent.IsPublic {
		h.feed.Publish(services.NewFeedEvent(services.EventCommentDeleted, comment.PromptID, userID, gin.H{"comment_id": comment.ID}))
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}
