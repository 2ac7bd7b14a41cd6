package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/shared/database/models"
	"promptmaker-backend/shared/database/models/auth"
	"promptmaker-backend/shared/logger"
	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/metrics"
)

const (
	resetTokenBytes = 32

	// forgotPasswordMessage never reveals whether the email is registered
	forgotPasswordMessage = "If a user with this email exists, a password reset link will be sent"
	// invalidResetTokenMessage covers unknown, used and expired tokens alike
	invalidResetTokenMessage = "Invalid or expired reset token"
)

// Password Management Request/Response structs

// ChangePasswordRequest represents the request body for changing a password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ForgotPasswordRequest represents the request body for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents the request body for resetting a password
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ChangePassword changes a user's password after verifying the current password
// @Summary Change password
// @Description Change user's password after verifying current password
// @Tags auth-password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change data"
// @Success 200 {object} handlers.MessageResponse "Password changed successfully"
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 401 {object} handlers.ErrorResponse "User not authenticated or incorrect password"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: map[string]string{"new_password": err.Error()}})
		return
	}

	if req.CurrentPassword == req.NewPassword {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "New password must be different from current password"})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.Password) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Current password is incorrect"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondInternal(c, "Could not hash password", err)
		return
	}

	if err := h.db.Model(&user).Update("password", hashedPassword).Error; err != nil {
		respondInternal(c, "Could not update password", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// ForgotPassword issues a reset token and emails the link to the account owner
// @Summary Forgot password
// @Description Issues a one hour reset token and emails a reset link. The reply is the same whether or not the email is registered.
// @Tags auth-password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Email for password reset"
// @Success 200 {object} handlers.MessageResponse "Generic acknowledgement"
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 429 {object} handlers.ErrorResponse "Too many requests"
// @Failure 500 {object} handlers.ErrorResponse "Failed to process request"
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	email := normalizeEmail(req.Email)

	var user models.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		h.recordResetAttempt(c, email, "requested", false)
		c.JSON(http.StatusOK, MessageResponse{Message: forgotPasswordMessage})
		return
	}

	token, err := utils.GenerateRandomToken(resetTokenBytes)
	if err != nil {
		respondInternal(c, "Could not create reset token", err)
		return
	}

	expiresAt := h.now().Add(h.resetTTL)
	if err := h.resetStore.Save(c.Request.Context(), user.Email, token, expiresAt); err != nil {
		respondInternal(c, "Could not create reset token", err)
		return
	}

	if err := h.mailer.SendPasswordResetEmail(user.Email, user.DisplayName, token); err != nil {
		// The token stays valid; the user can ask again.
		logger.Log.Error("failed to send password reset email", zap.String("email", user.Email), zap.Error(err))
	}

	metrics.PasswordResetEvents.WithLabelValues("requested").Inc()
	h.recordResetAttempt(c, email, "requested", true)

	c.JSON(http.StatusOK, MessageResponse{Message: forgotPasswordMessage})
}

// ResetPassword sets a new password using a reset token
// @Summary Reset password
// @Description Reset the password using a token from the reset email. Tokens are single use.
// @Tags auth-password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Password reset data with token"
// @Success 200 {object} handlers.MessageResponse "Password reset successful"
// @Failure 400 {object} handlers.ErrorResponse "Validation error or invalid/expired token"
// @Failure 500 {object} handlers.ErrorResponse "Failed to update password"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: map[string]string{"new_password": err.Error()}})
		return
	}

	ctx := c.Request.Context()

	valid, err := h.resetStore.IsValid(ctx, req.Token)
	if err != nil {
		respondInternal(c, "Could not verify reset token", err)
		return
	}
	if !valid {
		h.rejectReset(c, "")
		return
	}

	record, err := h.resetStore.Get(ctx, req.Token)
	if err != nil {
		respondInternal(c, "Could not verify reset token", err)
		return
	}
	if record == nil {
		h.rejectReset(c, "")
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", record.Email).First(&user).Error; err != nil {
		h.rejectReset(c, record.Email)
		return
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondInternal(c, "Could not hash password", err)
		return
	}

	if err := h.db.Model(&user).Update("password", hashedPassword).Error; err != nil {
		respondInternal(c, "Could not update password", err)
		return
	}

	if _, err := h.resetStore.MarkAsUsed(ctx, req.Token); err != nil {
		logger.Log.Error("failed to mark reset token as used", zap.String("email", record.Email), zap.Error(err))
	}

	metrics.PasswordResetEvents.WithLabelValues("completed").Inc()
	h.recordResetAttempt(c, record.Email, "completed", true)

	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successful. You can now log in with your new password."})
}

func (h *AuthHandler) rejectReset(c *gin.Context, email string) {
	metrics.PasswordResetEvents.WithLabelValues("rejected").Inc()
	h.recordResetAttempt(c, email, "rejected", false)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidResetTokenMessage})
}

// recordResetAttempt writes the audit row. Failures are logged, never surfaced.
func (h *AuthHandler) recordResetAttempt(c *gin.Context, email, stage string, successful bool) {
	if h.db == nil {
		return
	}

	attempt := auth.PasswordResetAttempt{
		Email:      email,
		IPAddress:  middleware.ClientKey(c),
		UserAgent:  truncate(c.GetHeader("User-Agent"), 255),
		Stage:      stage,
		Successful: successful,
		CreatedAt:  h.now(),
	}
	if err := h.db.Create(&attempt).Error; err != nil {
		logger.Log.Warn("failed to record password reset attempt", zap.String("stage", stage), zap.Error(err))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
