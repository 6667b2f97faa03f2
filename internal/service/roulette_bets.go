package service

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/middleware"
	"GemRushApi/internal/models"
	"GemRushApi/internal/models/wallet"
	"GemRushApi/pkg/logger"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

var (
	// ErrRoundMismatch: the bet references a round that is no longer (or not
	// yet) the current one; the caller should re-query state and resubmit.
	ErrRoundMismatch = errors.New("round is not the current round")
	// ErrPhaseClosed: betting is over for this round.
	ErrPhaseClosed = errors.New("betting is closed for this round")
)

// RouletteBetInput defines the structure of a bet request.
type RouletteBetInput struct {
	RoundID  string `json:"round_id" validate:"required,uuid"`
	Category string `json:"category" validate:"required,oneof=single color parity range"`
	Selector string `json:"selector" validate:"required"`
	Stake    int64  `json:"stake" validate:"required,gt=0"`
}

var (
	userLastBetTime      = make(map[int64]time.Time)
	userLastBetTimeMutex sync.Mutex
	betCooldown          = 500 * time.Millisecond
)

func canPlaceBet(userID int64) bool {
	userLastBetTimeMutex.Lock()
	defer userLastBetTimeMutex.Unlock()

	lastBetTime, exists := userLastBetTime[userID]
	if !exists || time.Since(lastBetTime) >= betCooldown {
		userLastBetTime[userID] = time.Now()
		return true
	}
	return false
}

// PlaceBet accepts a bet into the current round. The round check and the bet
// insert run under the clock mutex, so a bet can never slip past a
// BETTING -> SPINNING transition: either it lands before the outcome is drawn
// and is eligible for settlement, or it is rejected outright. The wallet
// debit and the bet row are one transaction; a rejection leaves no trace.
func (c *RouletteClock) PlaceBet(userID int64, input RouletteBetInput) (*models.RouletteBet, error) {
	roundUUID, err := uuid.Parse(input.RoundID)
	if err != nil {
		return nil, ErrRoundMismatch
	}
	category := BetCategory(input.Category)
	if err := ValidateSelector(category, input.Selector); err != nil {
		return nil, err
	}
	if input.Stake <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	round := c.current
	if round == nil || round.UUID != roundUUID {
		return nil, ErrRoundMismatch
	}
	now := time.Now()
	if round.Phase != models.RoundPhaseBetting || !now.Before(round.Deadline) {
		return nil, ErrPhaseClosed
	}

	bet := &models.RouletteBet{
		UUID:      uuid.New(),
		RoundID:   round.ID,
		UserID:    userID,
		Category:  input.Category,
		Selector:  input.Selector,
		Stake:     input.Stake,
		Status:    models.BetStatusUnsettled,
		CreatedAt: now,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := wallet.Debit(tx, userID, input.Stake); err != nil {
			return err
		}
		if err := tx.Create(bet).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bet, nil
}

// PlaceRouletteBet handles POST requests to place a bet on the shared wheel.
func PlaceRouletteBet(c *gin.Context) {
	var input RouletteBetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": "Invalid input"})
		return
	}
	if err := validate.Struct(input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	if !canPlaceBet(userID) {
		c.JSON(429, gin.H{"error": "Please wait before placing another bet"})
		return
	}

	bet, err := RouletteGame.PlaceBet(userID, input)
	if err != nil {
		state := RouletteGame.CurrentState(time.Now())
		switch {
		case errors.Is(err, ErrRoundMismatch):
			c.JSON(409, gin.H{"error": err.Error(), "state": state})
		case errors.Is(err, ErrPhaseClosed):
			c.JSON(403, gin.H{"error": err.Error(), "state": state})
		case errors.Is(err, wallet.ErrInsufficientBalance):
			c.JSON(402, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidSelector), errors.Is(err, ErrUnknownCategory),
			errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(400, gin.H{"error": err.Error()})
		default:
			logger.Error("%v", err)
			c.Status(500)
		}
		return
	}

	if ws := RouletteGame.ws; ws != nil {
		ws.BroadcastBetPlaced(bet)
	}

	c.JSON(200, gin.H{
		"bet_id":   bet.UUID,
		"category": bet.Category,
		"selector": bet.Selector,
		"stake":    bet.Stake,
	})
}

// GetRouletteBetHistory handles GET requests for the caller's recent bets,
// including each round's published outcome and seed for fairness audits.
func GetRouletteBetHistory(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	type betHistoryRow struct {
		models.RouletteBet
		RoundNumber int64  `json:"round_number"`
		Position    int    `json:"position"`
		Color       string `json:"color"`
		ServerSeed  string `json:"server_seed"`
		SeedHash    string `json:"seed_hash"`
	}

	var history []betHistoryRow
	err = db.DB.Model(&models.RouletteBet{}).
		Select("roulette_bets.*, roulette_rounds.number AS round_number, roulette_rounds.position, roulette_rounds.color, roulette_rounds.server_seed, roulette_rounds.seed_hash").
		Joins("JOIN roulette_rounds ON roulette_rounds.id = roulette_bets.round_id").
		Where("roulette_bets.user_id = ? AND roulette_rounds.settled = ?", userID, true).
		Order("roulette_bets.id desc").
		Limit(20).
		Scan(&history).Error
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, history)
}

// GetRouletteWheelInfo returns the wheel layout so clients render from the
// exact mapping the server settles with.
func GetRouletteWheelInfo(c *gin.Context) {
	type sector struct {
		Position int    `json:"position"`
		Color    string `json:"color"`
		Label    string `json:"label"`
		Parity   string `json:"parity,omitempty"`
		Range    string `json:"range,omitempty"`
	}

	sectors := make([]sector, 0, WheelPositions)
	for p := 0; p < WheelPositions; p++ {
		sectors = append(sectors, sector{
			Position: p,
			Color:    ColorOf(p),
			Label:    LabelOf(p),
			Parity:   ParityOf(p),
			Range:    RangeOf(p),
		})
	}

	c.JSON(200, gin.H{
		"sectors":     sectors,
		"multipliers": betMultipliers,
	})
}
