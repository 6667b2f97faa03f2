package db

import (
	"GemRushApi/pkg/logger"
	"errors"
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the shared gorm handle from POSTGRES_* environment variables.
// Tests install their own handle into DB instead of calling Connect.
func Connect() error {
	dbHost, ok1 := os.LookupEnv("POSTGRES_HOST")
	dbPort, ok2 := os.LookupEnv("POSTGRES_PORT")
	dbUser, ok3 := os.LookupEnv("POSTGRES_USER")
	dbPassword, ok4 := os.LookupEnv("POSTGRES_PASSWORD")
	dbName, ok5 := os.LookupEnv("POSTGRES_DB")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return logger.WrapError(errors.New("unable to get database connection parameters from environment"), "")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}
