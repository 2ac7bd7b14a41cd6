package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promptmaker-backend/shared/logger"
	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/metrics"
	"promptmaker-backend/shared/utils/moderation"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error  string            `json:"error" example:"Validation failed"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ModerationErrorResponse is returned with 422 when content is rejected
type ModerationErrorResponse struct {
	Error   string   `json:"error" example:"Content rejected by moderation"`
	Reasons []string `json:"reasons" example:"Contains blocked terms: scam"`
	Score   float64  `json:"score" example:"0.6"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// respondValidation writes a 400 with per-field messages from a bind or validate error
func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:  "Validation failed",
		Fields: utils.FieldErrors(err),
	})
}

// respondInternal logs err and writes a 500 with a client-safe message
func respondInternal(c *gin.Context, message string, err error) {
	logger.Log.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString("requestID")),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: message})
}

// moderate runs the moderator, records the decision and writes a 422 when rejected.
// It reports whether the caller may continue.
func moderate(c *gin.Context, subject string, result moderation.Result) bool {
	if result.IsApproved {
		metrics.ModerationDecisions.WithLabelValues(subject, "approved").Inc()
		return true
	}

	metrics.ModerationDecisions.WithLabelValues(subject, "rejected").Inc()
	logger.Log.Info("content rejected by moderation",
		zap.String("subject", subject),
		zap.Strings("reasons", result.Reasons),
		zap.Float64("score", result.Score),
	)
	c.JSON(http.StatusUnprocessableEntity, ModerationErrorResponse{
		Error:   "Content rejected by moderation",
		Reasons: result.Reasons,
		Score:   result.Score,
	})
	return false
}
