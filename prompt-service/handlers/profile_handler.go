package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/prompt-service/services"
	"promptmaker-backend/shared/database/models"
	"promptmaker-backend/shared/logger"
)

// UploadAvatar stores a new avatar image for the current user
// @Summary Upload avatar
// @Description Upload a png, jpeg, gif or webp avatar. The previous avatar is removed.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Avatar image"
// @Success 200 {object} models.User
// @Failure 400 {object} handlers.ErrorResponse "Missing file, wrong type or too large"
// @Failure 401 {object} handlers.ErrorResponse "Not authenticated"
// @Failure 503 {object} handlers.ErrorResponse "Avatar storage unavailable"
// @Router /users/me/avatar [post]
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: services.ErrStorageNotAvailable.Error()})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.avatars.MaxBytes()+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "File is required", Fields: map[string]string{"file": "is required"}})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := services.ValidateAvatar(contentType, header.Size, h.avatars.MaxBytes()); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	ctx := c.Request.Context()
	avatarURL, err := h.avatars.Upload(ctx, user.ID, file, contentType, header.Size)
	if err != nil {
		if errors.Is(err, services.ErrAvatarType) || errors.Is(err, services.ErrAvatarTooLarge) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		respondInternal(c, "Could not upload avatar", err)
		return
	}

	previous := user.Avatar
	if err := h.db.Model(&user).Update("avatar", avatarURL).Error; err != nil {
		respondInternal(c, "Could not update avatar", err)
		return
	}

	if err := h.avatars.Remove(ctx, previous); err != nil {
		logger.Log.Warn("failed to remove previous avatar", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	c.JSON(http.StatusOK, user)
}
