package database

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"promptmaker-backend/shared/config"
	"promptmaker-backend/shared/database/models"
	"promptmaker-backend/shared/logger"
	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/moderation"
)

var samplePrompts = []models.Prompt{
	{
		Title:       "Code reviewer",
		Description: "Reviews a diff like a careful senior engineer",
		Content:     "You are a senior engineer. Review the following diff, point out bugs first, then readability issues. Keep each comment short.",
		Tags:        []string{"coding", "review"},
		Category:    "development",
	},
	{
		Title:       "Weekend trip planner",
		Description: "Plans a relaxed two day trip on a budget",
		Content:     "Plan a two day trip to the city I name. Include one museum, one park and cheap places to eat. Ask me for my budget first.",
		Tags:        []string{"travel", "planning"},
		Category:    "lifestyle",
	},
	{
		Title:       "Explain like I am five",
		Description: "Simplifies any concept for a young audience",
		Content:     "Explain the topic I give you as if I were five years old. Use one everyday analogy and no jargon.",
		Tags:        []string{"education"},
		Category:    "learning",
	},
}

// SeedDatabase creates the demo user and a handful of sample prompts
func SeedDatabase() error {
	cfg := config.GetConfig()

	user, err := CreateUser(cfg.DemoUserEmail, cfg.DemoUserPassword, "Demo User")
	if err != nil {
		return err
	}

	created, err := seedPrompts(user)
	if err != nil {
		return err
	}

	logger.Log.Info("database seed completed", zap.Int("prompts_created", created))
	return nil
}

// CreateUser creates a user unless one with the same email already exists
func CreateUser(email, password, displayName string) (*models.User, error) {
	var existing models.User
	err := DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		logger.Log.Info("user already exists", zap.String("email", email))
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:       email,
		Password:    hashedPassword,
		DisplayName: displayName,
		Status:      "ACTIVE",
	}
	if err := DB.Create(&user).Error; err != nil {
		return nil, err
	}

	logger.Log.Info("user created", zap.String("email", email))
	return &user, nil
}

func seedPrompts(author *models.User) (int, error) {
	created := 0
	for _, sample := range samplePrompts {
		var count int64
		DB.Model(&models.Prompt{}).Where("title = ? AND author_id = ?", sample.Title, author.ID).Count(&count)
		if count > 0 {
			continue
		}

		result := moderation.ModeratePrompt(moderation.PromptInput{
			Title:       sample.Title,
			Description: sample.Description,
			Content:     sample.Content,
			Tags:        sample.Tags,
		})
		if !result.IsApproved {
			return created, fmt.Errorf("sample prompt %q rejected by moderation: %v", sample.Title, result.Reasons)
		}

		prompt := sample
		prompt.AuthorID = author.ID
		prompt.IsPublic = true
		if err := DB.Create(&prompt).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
