// Package wallet is the only place allowed to mutate a user's GEM balance.
// Game code asks for a debit or a credit inside its own transaction and never
// read-modify-writes the balance column itself.
package wallet

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/models"
	"GemRushApi/pkg/logger"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownUser         = errors.New("unknown user")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Debit removes amount GEM from the user's balance. The balance check and the
// decrement are one conditional UPDATE so concurrent debits cannot overdraw.
func Debit(tx *gorm.DB, userID int64, amount int64) error {
	if tx == nil {
		tx = db.DB
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND balance_gem >= ?", userID, amount).
		UpdateColumn("balance_gem", gorm.Expr("balance_gem - ?", amount))
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		var exists bool
		err := tx.Model(&models.User{}).
			Select("count(*) > 0").
			Where("id = ?", userID).
			Scan(&exists).Error
		if err != nil {
			return logger.WrapError(err, "")
		}
		if !exists {
			return ErrUnknownUser
		}
		return ErrInsufficientBalance
	}

	return nil
}

// Credit adds amount GEM to the user's balance.
func Credit(tx *gorm.DB, userID int64, amount int64) error {
	if tx == nil {
		tx = db.DB
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance_gem", gorm.Expr("balance_gem + ?", amount))
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrUnknownUser
	}

	return nil
}

// Balance reads the user's current GEM balance.
func Balance(tx *gorm.DB, userID int64) (int64, error) {
	if tx == nil {
		tx = db.DB
	}

	var user models.User
	if err := tx.Select("balance_gem").First(&user, userID).Error; err != nil {
		return 0, logger.WrapError(err, "")
	}

	return user.BalanceGem, nil
}
