package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/prompt-service/services"
	"promptmaker-backend/shared/database/models"
)

// VoteRequest casts +1 or -1; 0 withdraws the current vote
type VoteRequest struct {
	Value *int `json:"value" binding:"required,oneof=-1 0 1" example:"1"`
}

type VoteResponse struct {
	PromptID  uuid.UUID `json:"prompt_id"`
	VoteScore int       `json:"vote_score"`
	UserVote  int       `json:"user_vote"`
}

var errPromptNotFound = errors.New("prompt not found")

// applyVote upserts or removes userID's vote and returns the recomputed score.
// Private prompts behave as missing for everyone but their author.
func applyVote(tx *gorm.DB, promptID, userID uuid.UUID, value int) (models.Prompt, int, error) {
	var prompt models.Prompt
	if err := tx.Select("id", "is_public", "author_id").First(&prompt, "id = ?", promptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return prompt, 0, errPromptNotFound
		}
		return prompt, 0, err
	}
	if !prompt.IsPublic && prompt.AuthorID != userID {
		return prompt, 0, errPromptNotFound
	}

	var vote models.Vote
	err := tx.Where("user_id = ? AND prompt_id = ?", userID, promptID).First(&vote).Error
	switch {
	case err == nil && value == 0:
		if err := tx.Delete(&vote).Error; err != nil {
			return prompt, 0, err
		}
	case err == nil:
		if err := tx.Model(&vote).Update("value", value).Error; err != nil {
			return prompt, 0, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if value != 0 {
			vote = models.Vote{UserID: userID, PromptID: promptID, Value: value}
			if err := tx.Create(&vote).Error; err != nil {
				return prompt, 0, err
			}
		}
	default:
		return prompt, 0, err
	}

	var score int
	if err := tx.Model(&models.Vote{}).
		Select("COALESCE(SUM(value), 0)").
		Where("prompt_id = ?", promptID).
		Scan(&score).Error; err != nil {
		return prompt, 0, err
	}

	if err := tx.Model(&models.Prompt{}).Where("id = ?", promptID).Update("vote_score", score).Error; err != nil {
		return prompt, 0, err
	}
	return prompt, score, nil
}

// POST /api/prompts/:id/vote
// @Summary Vote on a prompt
// @Description Up (1) or down (-1) vote. Voting again replaces the previous vote and 0 removes it.
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prompt ID"
// @Param vote body VoteRequest true "Vote"
// @Success 200 {object} handlers.VoteResponse
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 404 {object} handlers.ErrorResponse "Prompt not found"
// @Failure 429 {object} handlers.ErrorResponse "Too many requests"
// @Router /prompts/{id}/vote [post]
func (h *PromptHandler) Vote(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	promptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	value := *req.Value

	var (
		prompt models.Prompt
		score  int
	)
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		prompt, score, err = applyVote(tx, promptID, userID, value)
		return err
	})
	if err != nil {
		if errors.Is(err, errPromptNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Prompt not found"})
			return
		}
		respondInternal(c, "Could not record vote", err)
		return
	}

	h.invalidate(c, promptID)

	response := VoteResponse{PromptID: promptID, VoteScore: score, UserVote: value}
	if prompt.IsPublic {
		h.feed.Publish(services.NewFeedEvent(services.EventVoteCast, promptID, userID, response))
	}

	c.JSON(http.StatusOK, response)
}
