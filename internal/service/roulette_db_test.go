package service

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/models"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testSeq atomic.Int64

// openTestDB installs a fresh in-memory database for the duration of a test.
// One connection keeps the in-memory database alive and serializes
// concurrent writers.
func openTestDB(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(&models.User{}, &models.RouletteRound{}, &models.RouletteBet{})
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	prev := db.DB
	db.DB = gdb
	t.Cleanup(func() {
		db.DB = prev
		sqlDB.Close()
	})
}

func createTestUser(t *testing.T, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		Nickname:   fmt.Sprintf("player-%d", testSeq.Add(1)),
		BalanceGem: balance,
	}
	if err := db.DB.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func userBalance(t *testing.T, userID int64) int64 {
	t.Helper()

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		t.Fatalf("load user %d: %v", userID, err)
	}
	return user.BalanceGem
}

// createResultsRound persists a round already in the results phase with a
// known outcome, ready for settlement.
func createResultsRound(t *testing.T, position int) *models.RouletteRound {
	t.Helper()

	round := &models.RouletteRound{
		UUID:       uuid.New(),
		Number:     testSeq.Add(1),
		Phase:      models.RoundPhaseResults,
		Deadline:   time.Now().Add(time.Minute),
		ServerSeed: "test-seed",
		SeedHash:   SeedCommitment("test-seed"),
		Position:   position,
		Color:      ColorOf(position),
		Label:      LabelOf(position),
		CreatedAt:  time.Now(),
	}
	if err := db.DB.Create(round).Error; err != nil {
		t.Fatalf("create test round: %v", err)
	}
	return round
}

func createTestBet(t *testing.T, round *models.RouletteRound, userID int64, category BetCategory, selector string, stake int64) *models.RouletteBet {
	t.Helper()

	bet := &models.RouletteBet{
		UUID:      uuid.New(),
		RoundID:   round.ID,
		UserID:    userID,
		Category:  string(category),
		Selector:  selector,
		Stake:     stake,
		Status:    models.BetStatusUnsettled,
		CreatedAt: time.Now(),
	}
	if err := db.DB.Create(bet).Error; err != nil {
		t.Fatalf("create test bet: %v", err)
	}
	return bet
}
