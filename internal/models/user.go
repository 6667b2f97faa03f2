package models

import (
	"GemRushApi/cmd/db"
	"GemRushApi/pkg/logger"
	"time"
)

// StartingBalanceGem is credited to every new account so players can try the
// games before depositing.
const StartingBalanceGem int64 = 5000

type User struct {
	ID         int64  `gorm:"primaryKey,autoIncrement"`
	Nickname   string `gorm:"unique"`
	AvatarID   int
	BalanceGem int64
	CreatedAt  time.Time
	Password   string `json:"-"`
}

func CheckIfUserExistsByID(userID int64) (bool, error) {
	var exists bool
	err := db.DB.Model(&User{}).
		Select("count(*) > 0").
		Where("id = ?", userID).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

func GetUserWithPassword(nickname string) (*User, error) {
	var user User

	err := db.DB.
		Where("nickname = ?", nickname).
		First(&user).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &user, nil
}

func CheckIfUserExistsByNickname(nn string) (bool, error) {
	var exists bool

	err := db.DB.Model(&User{}).
		Select("count(*) > 0").
		Where("nickname = ?", nn).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}
