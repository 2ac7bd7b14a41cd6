package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	utils "promptmaker-backend/shared/utils/auth"
)

func whoAmIRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", mw, func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "id": id.String()})
	})
	return router
}

func get(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := whoAmIRouter(AuthMiddleware())
	userID := uuid.New()

	access, _, err := utils.GenerateJWT(userID, "ada@example.com")
	require.NoError(t, err)
	refresh, err := utils.GenerateRefreshJWT(userID, "ada@example.com")
	require.NoError(t, err)

	w := get(router, "Bearer "+access)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Token "+access).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer "+refresh).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer not-a-jwt").Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	router := whoAmIRouter(OptionalAuthMiddleware())
	userID := uuid.New()
	access, _, err := utils.GenerateJWT(userID, "ada@example.com")
	require.NoError(t, err)

	anonymous := get(router, "")
	assert.Equal(t, http.StatusOK, anonymous.Code)
	assert.Contains(t, anonymous.Body.String(), `"authenticated":false`)

	broken := get(router, "Bearer garbage")
	assert.Equal(t, http.StatusOK, broken.Code)
	assert.Contains(t, broken.Body.String(), `"authenticated":false`)

	signed := get(router, "Bearer "+access)
	assert.Contains(t, signed.Body.String(), `"authenticated":true`)
	assert.Contains(t, signed.Body.String(), userID.String())
}
