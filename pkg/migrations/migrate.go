package main

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/models"
	"GemRushApi/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment")
	}
	if err := db.Connect(); err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	// dropTables()
	createTables()

	logger.Info("Migrated.")
}

func dropTables() {
	db.DB.Migrator().DropTable(
		&models.User{},
		&models.RouletteRound{},
		&models.RouletteBet{},
	)
}

func createTables() {
	err := db.DB.AutoMigrate(
		&models.User{},
		&models.RouletteRound{},
		&models.RouletteBet{},
	)
	if err != nil {
		logger.Fatal("Failed to migrate: %v", err)
	}
}
