package utils

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomToken(t *testing.T) {
	a, err := GenerateRandomToken(32)
	require.NoError(t, err)
	b, err := GenerateRandomToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("hunter2hunter2", hash))
	assert.False(t, CheckPasswordHash("wrong-password1", hash))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcdefg1"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("onlyletters"))
	assert.Error(t, ValidatePassword("1234567890"))
}

func TestJWTRoundTrip(t *testing.T) {
	userID := uuid.New()

	access, expiresAt, err := GenerateJWT(userID, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := ValidateJWT(access)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, AccessToken, claims.TokenType)

	_, err = ValidateRefreshJWT(access)
	assert.Error(t, err, "access tokens must not be accepted as refresh tokens")

	refresh, err := GenerateRefreshJWT(userID, "ada@example.com")
	require.NoError(t, err)
	claims, err = ValidateRefreshJWT(refresh)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.TokenType)
}

func TestValidateJWT_Garbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

type signup struct {
	Email string   `json:"email" validate:"required,email"`
	Name  string   `json:"display_name" validate:"min=2"`
	Tags  []string `json:"tags" validate:"max=2"`
}

func TestValidateStruct(t *testing.T) {
	errs := ValidateStruct(signup{Email: "nope", Name: "A", Tags: []string{"a", "b", "c"}})
	assert.Equal(t, map[string]string{
		"email":        "must be a valid email address",
		"display_name": "must be at least 2 characters",
		"tags":         "must have at most 2 items",
	}, errs)

	assert.Nil(t, ValidateStruct(signup{Email: "ada@example.com", Name: "Ada"}))
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	errs := FieldErrors(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"body": "unexpected EOF"}, errs)
}

func TestValidateStruct_EqfieldUsesJSONName(t *testing.T) {
	type passwordPair struct {
		NewPassword     string `json:"new_password" validate:"required"`
		ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
	}

	errs := ValidateStruct(passwordPair{NewPassword: "newpass123", ConfirmPassword: "other1234"})
	assert.Equal(t, map[string]string{"confirm_password": "must match new_password"}, errs)
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"NewPassword": "new_password",
		"Email":       "email",
		"AuthorID":    "author_id",
		"IPAddress":   "ip_address",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), in)
	}
}
