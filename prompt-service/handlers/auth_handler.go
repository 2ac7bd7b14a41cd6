package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/prompt-service/services"
	"promptmaker-backend/shared/database/models"
	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/resettoken"
)

type AuthHandler struct {
	db         *gorm.DB
	resetStore resettoken.Store
	mailer     utils.ResetMailer
	avatars    *services.AvatarService
	resetTTL   time.Duration
	now        func() time.Time
}

func NewAuthHandler(db *gorm.DB, resetStore resettoken.Store, mailer utils.ResetMailer, avatars *services.AvatarService, resetTTL time.Duration) *AuthHandler {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &AuthHandler{
		db:         db,
		resetStore: resetStore,
		mailer:     mailer,
		avatars:    avatars,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

// Login Request/Response structs
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"demo@promptmaker.dev"`
	Password string `json:"password" binding:"required" example:"demo12345"`
}

type LoginResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// Register Request struct
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255" example:"user@example.com"`
	Password    string `json:"password" binding:"required,min=8,max=72" example:"securepassword123"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=100" example:"Ada"`
}

// Refresh Request struct
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// Refresh Response struct
type RefreshResponse struct {
	Token        string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string    `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt    time.Time `json:"expires_at" example:"2025-06-02T19:37:11.076935+03:00"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueTokens creates a fresh access/refresh pair for user
func issueTokens(user models.User) (RefreshResponse, error) {
	token, expiresAt, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return RefreshResponse{}, err
	}

	refreshToken, err := utils.GenerateRefreshJWT(user.ID, user.Email)
	if err != nil {
		return RefreshResponse{}, err
	}

	return RefreshResponse{Token: token, RefreshToken: refreshToken, ExpiresAt: expiresAt}, nil
}

// POST /api/auth/register
// @Summary Register new user
// @Description Register a new user account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Param register body RegisterRequest true "User registration data"
// @Success 201 {object} handlers.LoginResponse "User registered successfully"
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 409 {object} handlers.ErrorResponse "Email already exists"
// @Failure 429 {object} handlers.ErrorResponse "Too many requests"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := utils.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: map[string]string{"password": err.Error()}})
		return
	}

	email := normalizeEmail(req.Email)

	var existingUser models.User
	if err := h.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Email already exists"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		respondInternal(c, "Could not hash password", err)
		return
	}

	user := models.User{
		Email:       email,
		Password:    hashedPassword,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Status:      "ACTIVE",
	}

	if err := h.db.Create(&user).Error; err != nil {
		respondInternal(c, "Could not create user", err)
		return
	}

	tokens, err := issueTokens(user)
	if err != nil {
		respondInternal(c, "Could not generate token", err)
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		User:         user,
	})
}

// POST /api/auth/login
// @Summary User login
// @Description Authenticate a user and return JWT tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Login credentials"
// @Success 200 {object} handlers.LoginResponse "Successful login"
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 401 {object} handlers.ErrorResponse "Invalid credentials"
// @Failure 429 {object} handlers.ErrorResponse "Too many requests"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}

	if user.Status != "ACTIVE" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Account is inactive"})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}

	tokens, err := issueTokens(user)
	if err != nil {
		respondInternal(c, "Could not generate token", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		User:         user,
	})
}

// POST /api/auth/refresh
// @Summary Refresh JWT token
// @Description Exchange a valid refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param refresh body RefreshRequest true "Refresh token"
// @Success 200 {object} handlers.RefreshResponse "Successfully refreshed tokens"
// @Failure 400 {object} handlers.ErrorResponse "Validation error"
// @Failure 401 {object} handlers.ErrorResponse "Invalid refresh token or user inactive"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	claims, err := utils.ValidateRefreshJWT(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid refresh token"})
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid refresh token"})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not found"})
		return
	}

	if user.Status != "ACTIVE" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Account is inactive"})
		return
	}

	tokens, err := issueTokens(user)
	if err != nil {
		respondInternal(c, "Could not generate token", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// GET /api/auth/me
// @Summary Current user
// @Description Returns the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} handlers.ErrorResponse "Not authenticated"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
			return
		}
		respondInternal(c, "Could not load user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}
