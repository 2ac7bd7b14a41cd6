package main

import (
	"log"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

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

	logger.Log.Info("starting database reset")

	db, err := gorm.Open(postgres.Open(database.DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Log.Fatal("database connection failed", zap.Error(err))
	}

	// children first
	tables := []string{
		"comments",
		"votes",
		"prompts",
		"password_reset_attempts",
		"users",
	}

	for _, table := range tables {
		if err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE;").Error; err != nil {
			logger.Log.Error("failed to drop table", zap.String("table", table), zap.Error(err))
			continue
		}
		logger.Log.Info("dropped table", zap.String("table", table))
	}

	logger.Log.Info("database reset completed, run the seeder to recreate tables")
}
