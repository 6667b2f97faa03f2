package main

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/app"
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

	app.Start()
}
