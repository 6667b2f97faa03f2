package middleware

import (
	"GemRushApi/internal/models"
	"GemRushApi/pkg/logger"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenAccess  = "TokenAccess"
	TokenRefresh = "TokenRefresh"

	ContextUserIDKey = "user_id"
)

// JWTKey returns the signing key. A fixed development key is used when
// JWT_SECRET is not set so local runs and tests work out of the box.
func JWTKey() string {
	key, ok := os.LookupEnv("JWT_SECRET")
	if !ok {
		return "dev-secret-do-not-deploy"
	}
	return key
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := GetTokenFromAuthorizationHeader(c)
		if err != nil {
			logger.Error("%v", err)
			c.AbortWithStatus(400)
			return
		}

		userID, tokenType, err := TokenCheck(token, JWTKey())
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatus(401)
				return
			}
			logger.Error("%v", err)
			c.AbortWithStatus(400)
			return
		}

		if tokenType != TokenAccess {
			c.AbortWithStatus(401)
			return
		}

		// check if user in database
		exists, err := models.CheckIfUserExistsByID(userID)
		if err != nil {
			logger.Error("%v", err)
			c.AbortWithStatus(500)
			return
		}

		if exists {
			c.Set(ContextUserIDKey, userID)
			c.Next()
			return
		} else {
			c.JSON(401, gin.H{"error": "User not authorized"})
			c.Abort()
			return
		}
	}
}

func GetUserIDFromGinContext(c *gin.Context) (int64, error) {
	// Get user_id from middleware
	userIDAny, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, logger.WrapError(errors.New("user_id not in GIN context"), "")
	}

	userIDInt, ok := userIDAny.(int64)
	if !ok {
		return 0, logger.WrapError(errors.New("unable to cast user_id value to int"), "")
	}

	return userIDInt, nil
}

func GetTokenFromAuthorizationHeader(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", logger.WrapError(errors.New("missing Authorization header"), "")
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", logger.WrapError(errors.New("malformed Authorization header"), "")
	}

	return token, nil
}

type tokenClaims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenNew issues a signed token for the user, expiring at the unix timestamp.
func TokenNew(key string, userID int64, expiresAt int64, tokenType string) (string, error) {
	claims := tokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	if err != nil {
		return "", logger.WrapError(err, "")
	}

	return signed, nil
}

// TokenCheck validates the signature and expiry and returns user id and token type.
func TokenCheck(token string, key string) (int64, string, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return 0, "", err
	}
	if !parsed.Valid {
		return 0, "", errors.New("invalid token")
	}

	return claims.UserID, claims.TokenType, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", logger.WrapError(err, "")
	}
	return string(hash), nil
}

func ComparePasswords(hashed string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
