package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/moderation"
	"promptmaker-backend/shared/utils/resettoken"
)

type recordingMailer struct {
	sent   []string
	tokens []string
}

func (m *recordingMailer) SendPasswordResetEmail(toEmail, _, token string) error {
	m.sent = append(m.sent, toEmail)
	m.tokens = append(m.tokens, token)
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.RegisterJSONTagNames(v)
	}
}

// asUser stands in for AuthMiddleware
func asUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", id)
		c.Next()
	}
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newPromptRouter(userID uuid.UUID) *gin.Engine {
	h := NewPromptHandler(nil, nil, nil)
	router := gin.New()
	router.POST("/api/prompts/moderate", h.ModeratePreview)
	router.POST("/api/prompts", asUser(userID), h.CreatePrompt)
	router.POST("/api/prompts/anonymous", h.CreatePrompt)
	router.PUT("/api/prompts/:id", asUser(userID), h.UpdatePrompt)
	router.GET("/api/prompts/:id", h.GetPrompt)
	router.POST("/api/prompts/:id/vote", asUser(userID), h.Vote)
	router.POST("/api/prompts/:id/comments", asUser(userID), h.CreateComment)
	return router
}

func TestModeratePreview(t *testing.T) {
	router := newPromptRouter(uuid.New())

	w := do(router, http.MethodPost, "/api/prompts/moderate", gin.H{"content": "Check out http://example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	var result moderation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.IsApproved)
	assert.Equal(t, []string{"Contains 1 suspicious pattern(s)"}, result.Reasons)
	assert.InDelta(t, 0.6, result.Score, 1e-9)

	w = do(router, http.MethodPost, "/api/prompts/moderate", gin.H{
		"title":   "Summarizer",
		"content": "Summarize the following article in three short bullet points.",
	})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.IsApproved)
	assert.Empty(t, result.Reasons)
	assert.Zero(t, result.Score)
}

func TestCreatePrompt_RejectedByModeration(t *testing.T) {
	router := newPromptRouter(uuid.New())

	w := do(router, http.MethodPost, "/api/prompts", gin.H{
		"title":   "Easy money",
		"content": "Write a message for this scam offer and send it to everyone you know.",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body ModerationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Content rejected by moderation", body.Error)
	assert.Equal(t, []string{"Contains blocked terms: scam"}, body.Reasons)
	assert.InDelta(t, 0.6, body.Score, 1e-9)
}

func TestCreatePrompt_ValidationErrors(t *testing.T) {
	router := newPromptRouter(uuid.New())

	w := do(router, http.MethodPost, "/api/prompts", gin.H{"description": "no title or content"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Error)
	assert.Equal(t, "is required", body.Fields["title"])
	assert.Equal(t, "is required", body.Fields["content"])

	w = do(router, http.MethodPost, "/api/prompts", gin.H{
		"title":   "Tags",
		"content": "A perfectly fine prompt body.",
		"tags":    []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "must have at most 10 items", body.Fields["tags"])
}

func TestCreatePrompt_RequiresUser(t *testing.T) {
	router := newPromptRouter(uuid.New())

	w := do(router, http.MethodPost, "/api/prompts/anonymous", gin.H{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePrompt_ModeratedBeforeLookup(t *testing.T) {
	router := newPromptRouter(uuid.New())

	w := do(router, http.MethodPut, "/api/prompts/"+uuid.NewString(), gin.H{
		"title":   "Contact",
		"content": "Mail me at someone@example.com with your card 4111 1111 1111 1111.",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body ModerationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Contains 2 suspicious pattern(s)"}, body.Reasons)
}

func TestInvalidIDs(t *testing.T) {
	router := newPromptRouter(uuid.New())

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/prompts/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/prompts/42/vote", gin.H{"value": 1}).Code)
}

func TestVote_ValueValidation(t *testing.T) {
	router := newPromptRouter(uuid.New())
	path := "/api/prompts/" + uuid.NewString() + "/vote"

	for _, body := range []interface{}{gin.H{"value": 2}, gin.H{"value": -5}, gin.H{}} {
		w := do(router, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
}

func TestCreateComment_RejectedByModeration(t *testing.T) {
	router := newPromptRouter(uuid.New())

	w := do(router, http.MethodPost, "/api/prompts/"+uuid.NewString()+"/comments", gin.H{"content": "THIS IS PHISHING"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body ModerationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Contains blocked terms: phishing", "Excessive use of capital letters"}, body.Reasons)
	assert.InDelta(t, 1.1, body.Score, 1e-9)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"coding", "review"}, normalizeTags([]string{" Coding ", "review", "CODING", ""}))
	assert.Empty(t, normalizeTags(nil))
}

func newResetRouter(store resettoken.Store) *gin.Engine {
	h := NewAuthHandler(nil, store, &recordingMailer{}, nil, time.Hour)
	router := gin.New()
	router.POST("/api/auth/reset-password", h.ResetPassword)
	return router
}

func resetBody(token string) gin.H {
	return gin.H{"token": token, "new_password": "newpass123", "confirm_password": "newpass123"}
}

func TestResetPassword_RejectsUnusableTokensWithOneMessage(t *testing.T) {
	ctx := context.Background()
	store := resettoken.NewMemoryStore()

	require.NoError(t, store.Save(ctx, "used@example.com", "used-token", time.Now().Add(time.Hour)))
	_, err := store.MarkAsUsed(ctx, "used-token")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "old@example.com", "expired-token", time.Now().Add(-time.Minute)))

	router := newResetRouter(store)

	for _, token := range []string{"unknown-token", "used-token", "expired-token"} {
		w := do(router, http.MethodPost, "/api/auth/reset-password", resetBody(token))
		require.Equal(t, http.StatusBadRequest, w.Code, token)
		assert.JSONEq(t, `{"error":"Invalid or expired reset token"}`, w.Body.String(), token)
	}
}

func TestResetPassword_Validation(t *testing.T) {
	router := newResetRouter(resettoken.NewMemoryStore())

	w := do(router, http.MethodPost, "/api/auth/reset-password", gin.H{
		"token": "t", "new_password": "newpass123", "confirm_password": "different1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "must match new_password", body.Fields["confirm_password"])

	w = do(router, http.MethodPost, "/api/auth/reset-password", gin.H{
		"token": "t", "new_password": "lettersonly", "confirm_password": "lettersonly",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "password must contain at least one letter and one digit", body.Fields["new_password"])
}
