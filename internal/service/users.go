package service

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/middleware"
	"GemRushApi/internal/models"
	"GemRushApi/pkg/logger"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const AccessExpirationHours = 10

type Token struct {
	AccessToken string `json:"access_token"`
}

type Login struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type signUpInput struct {
	Nickname string `json:"nickname" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	AvatarID int    `json:"avatar_id" validate:"required,min=1,max=100"`
}

func (i *signUpInput) Validate() error {
	return validate.Struct(i)
}

// SignUp registers a new user and issues an access token. New accounts start
// with models.StartingBalanceGem.
func SignUp(c *gin.Context) {
	var input signUpInput

	if err := c.Bind(&input); err != nil {
		c.JSON(400, gin.H{"error": "Unable to unmarshal body"})
		return
	}

	if err := input.Validate(); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	exists, err := models.CheckIfUserExistsByNickname(input.Nickname)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	if exists {
		c.JSON(409, gin.H{"error": "User with this nickname already exists"})
		return
	}

	hashed, err := middleware.HashPassword(input.Password)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	user := models.User{
		Nickname:   input.Nickname,
		Password:   hashed,
		AvatarID:   input.AvatarID,
		BalanceGem: models.StartingBalanceGem,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return nil
	})
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	BaseAuth(c, &user)
}

// AuthLogin checks the nickname/password pair and issues an access token.
func AuthLogin(c *gin.Context) {
	var req Login
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind request: %v", err)
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	user, err := models.GetUserWithPassword(req.Nickname)
	if err != nil {
		logger.Error("Failed to get user: %v", err)
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	if !middleware.ComparePasswords(user.Password, req.Password) {
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	BaseAuth(c, user)
}

func BaseAuth(c *gin.Context, user *models.User) {
	tmCreate := time.Now().Unix()
	accessExpiration := tmCreate + int64(AccessExpirationHours*60*60)

	access, err := middleware.TokenNew(middleware.JWTKey(), user.ID, accessExpiration, middleware.TokenAccess)
	if err != nil {
		logger.Error(err.Error())
		c.AbortWithStatus(500)
		return
	}

	c.JSON(200, Token{AccessToken: access})
}

// GetUser returns the authorized user's profile and GEM balance.
func GetUser(c *gin.Context) {
	var user models.User
	var err error

	user.ID, err = middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	err = db.DB.First(&user, user.ID).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(404, gin.H{"error": "User not found"})
		return
	} else if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, user)
}
