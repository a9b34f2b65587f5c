package global

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cfbattle/configs"
)

var (
	DB     *gorm.DB
	Rdb    *redis.Client
	Config *configs.Config
	Path   string
)

const (
	TOKEN_USER_ID = "token_user_id"
	TOKEN_ROLE    = "token_role"

	ROLE_USER  = 1
	ROLE_ADMIN = 2
)
