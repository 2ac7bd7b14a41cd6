package main

import (
	"log"

	"go.uber.org/zap"

	"promptmaker-backend/shared/config"
	"promptmaker-backend/shared/database"
	"promptmaker-backend/shared/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.GetConfig()

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Log.Info("starting database seeding")

	if err := database.InitDatabase(); err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer database.CloseDatabase()

	if err := database.SeedDatabase(); err != nil {
		logger.Log.Fatal("failed to seed database", zap.Error(err))
	}

	logger.Log.Info("database seeding completed", zap.String("demo_user", cfg.DemoUserEmail))
}
