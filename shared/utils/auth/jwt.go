package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"promptmaker-backend/shared/config"
)

const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	cfg := config.GetConfig()
	if cfg.JWTSecret == "" {
		return []byte("fallback-secret-key-for-development")
	}
	return []byte(cfg.JWTSecret)
}

// GetJWTExpireDuration gets JWT expiration duration from config
func GetJWTExpireDuration() time.Duration {
	hours, err := strconv.Atoi(config.GetConfig().JWTExpireHours)
	if err != nil || hours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// GetJWTRefreshExpireDuration gets JWT refresh token expiration duration from config
func GetJWTRefreshExpireDuration() time.Duration {
	days, err := strconv.Atoi(config.GetConfig().JWTRefreshExpireDays)
	if err != nil || days <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(days) * 24 * time.Hour
}

func signToken(userID uuid.UUID, email, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:    userID.String(),
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	return signed, expiresAt, err
}

// GenerateJWT issues an access token
func GenerateJWT(userID uuid.UUID, email string) (string, time.Time, error) {
	return signToken(userID, email, AccessToken, GetJWTExpireDuration())
}

// GenerateRefreshJWT issues a refresh token
func GenerateRefreshJWT(userID uuid.UUID, email string) (string, error) {
	token, _, err := signToken(userID, email, RefreshToken, GetJWTRefreshExpireDuration())
	return token, err
}

// ValidateJWT parses and verifies a token of either type
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ValidateRefreshJWT accepts only refresh tokens
func ValidateRefreshJWT(tokenString string) (*Claims, error) {
	claims, err := ValidateJWT(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshToken {
		return nil, errors.New("invalid refresh token")
	}
	return claims, nil
}
