package jwtUtils

import (
	"errors"
	"time"

	"cfbattle/global"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

type TokenData struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     int    `json:"role"`
}

type battleClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     int    `json:"role"`
	jwt.RegisteredClaims
}

func GenToken(userID int64, username string, role int, exp time.Duration) (string, error) {
	now := time.Now()
	claims := battleClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(global.Config.JWT.Secret))
}

func IdentifyToken(tokenString string) (TokenData, error) {
	var claims battleClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("不支持的签名方法")
		}
		return []byte(global.Config.JWT.Secret), nil
	})
	if err != nil {
		return TokenData{}, err
	}
	if !token.Valid {
		return TokenData{}, errors.New("无效的token")
	}
	return TokenData{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func GetUserId(c *gin.Context) int64 {
	if data, exists := c.Get(global.TOKEN_USER_ID); exists {
		if userId, ok := data.(int64); ok {
			return userId
		}
	}
	return 0
}

func GetRole(c *gin.Context) int {
	if data, exists := c.Get(global.TOKEN_ROLE); exists {
		if role, ok := data.(int); ok {
			return role
		}
	}
	return 0
}
