package service

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/models"
	"GemRushApi/internal/models/wallet"
	"GemRushApi/pkg/logger"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RouletteBetSummary is the per-bet line of a settlement report, also
// persisted on the round and pushed with the round_results event.
type RouletteBetSummary struct {
	BetID      uuid.UUID `json:"bet_id"`
	UserID     int64     `json:"user_id"`
	Category   string    `json:"category"`
	Selector   string    `json:"selector"`
	Stake      int64     `json:"stake"`
	Status     string    `json:"status"`
	Multiplier int64     `json:"multiplier"`
	Payout     int64     `json:"payout"`
}

// SettlementReport summarizes one settlement pass.
type SettlementReport struct {
	RoundNumber int64                `json:"round_number"`
	TotalStaked int64                `json:"total_staked"`
	TotalPaid   int64                `json:"total_paid"`
	Won         int                  `json:"won"`
	Lost        int                  `json:"lost"`
	Failed      int                  `json:"failed"`
	Summaries   []RouletteBetSummary `json:"bets"`
}

// SettleRound evaluates every bet of the round against the outcome, credits
// winners and flips each bet to its terminal state exactly once. Calling it
// again for a settled round is a no-op; calling it concurrently is safe
// because every write carries a status/settled guard in its predicate.
//
// A failure on one bet (a wallet credit that cannot land, a malformed row) is
// recorded on that bet and does not abort the pass; the round is only marked
// settled once no bet remains unresolved, so the next pass retries exactly
// the failed ones.
func SettleRound(round *models.RouletteRound, outcome RouletteOutcome) (*SettlementReport, error) {
	if round == nil {
		return nil, logger.WrapError(errors.New("settle called with no round"), "")
	}
	if !ValidPosition(outcome.Position) {
		return nil, logger.WrapError(errors.New("settle called with an outcome off the wheel"), "")
	}

	report := &SettlementReport{RoundNumber: round.Number}
	if round.Settled {
		return report, nil
	}

	var bets []models.RouletteBet
	if err := db.DB.Where("round_id = ?", round.ID).Order("id").Find(&bets).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	for i := range bets {
		bet := &bets[i]

		if bet.Status == models.BetStatusUnsettled {
			if err := settleBet(bet, outcome); err != nil {
				report.Failed++
				logger.Error("Settlement of bet %d (round %d) failed: %v", bet.ID, round.Number, err)
				recordSettleError(bet, err)
				continue
			}
		}

		report.TotalStaked += bet.Stake
		if bet.Status == models.BetStatusWon {
			report.TotalPaid += bet.Payout
			report.Won++
		} else {
			report.Lost++
		}
		report.Summaries = append(report.Summaries, RouletteBetSummary{
			BetID:      bet.UUID,
			UserID:     bet.UserID,
			Category:   bet.Category,
			Selector:   bet.Selector,
			Stake:      bet.Stake,
			Status:     bet.Status,
			Multiplier: bet.Multiplier,
			Payout:     bet.Payout,
		})
	}

	if report.Failed > 0 {
		return report, nil
	}

	summaryJSON, err := json.Marshal(report.Summaries)
	if err != nil {
		return report, logger.WrapError(err, "")
	}

	now := time.Now()
	res := db.DB.Model(&models.RouletteRound{}).
		Where("id = ? AND settled = ?", round.ID, false).
		Updates(map[string]interface{}{
			"settled":      true,
			"settled_at":   now,
			"results_json": datatypes.JSON(summaryJSON),
		})
	if res.Error != nil {
		return report, logger.WrapError(res.Error, "")
	}

	round.Settled = true
	round.SettledAt = &now
	round.ResultsJSON = datatypes.JSON(summaryJSON)

	logger.Info("Round %d settled: staked=%d paid=%d won=%d lost=%d",
		round.Number, report.TotalStaked, report.TotalPaid, report.Won, report.Lost)
	return report, nil
}

// settleBet flips a single bet to won or lost and credits the payout for a
// winner, all in one transaction. The status guard in the UPDATE makes a
// concurrent or repeated call a no-op: the stake was debited at placement,
// so a loser needs no wallet call at all, and a winner is credited exactly
// once because only the pass that wins the UPDATE performs the credit.
func settleBet(bet *models.RouletteBet, outcome RouletteOutcome) error {
	won, err := EvaluateBet(BetCategory(bet.Category), bet.Selector, outcome.Position)
	if err != nil {
		return err
	}

	status := models.BetStatusLost
	var multiplier, payout int64
	if won {
		multiplier, err = MultiplierFor(BetCategory(bet.Category))
		if err != nil {
			return err
		}
		payout = bet.Stake * multiplier
		status = models.BetStatusWon
	}

	now := time.Now()
	return db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RouletteBet{}).
			Where("id = ? AND status = ?", bet.ID, models.BetStatusUnsettled).
			Updates(map[string]interface{}{
				"status":       status,
				"multiplier":   multiplier,
				"payout":       payout,
				"settled_at":   now,
				"settle_error": "",
			})
		if res.Error != nil {
			return logger.WrapError(res.Error, "")
		}
		if res.RowsAffected == 0 {
			// Another pass got here first; reload the terminal state for the tally.
			return tx.First(bet, bet.ID).Error
		}

		if status == models.BetStatusWon {
			if err := wallet.Credit(tx, bet.UserID, payout); err != nil {
				return err
			}
		}

		bet.Status = status
		bet.Multiplier = multiplier
		bet.Payout = payout
		bet.SettledAt = &now
		bet.SettleError = ""
		return nil
	})
}

// recordSettleError leaves an operator-visible trace on a bet whose
// settlement failed. Best effort: the retry on the next pass matters more
// than this write.
func recordSettleError(bet *models.RouletteBet, settleErr error) {
	err := db.DB.Model(&models.RouletteBet{}).
		Where("id = ? AND status = ?", bet.ID, models.BetStatusUnsettled).
		UpdateColumn("settle_error", settleErr.Error()).Error
	if err != nil {
		logger.Error("Unable to record settlement error for bet %d: %v", bet.ID, err)
	}
}
