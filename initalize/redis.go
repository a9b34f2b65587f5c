package initalize

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"cfbattle/configs"
	"cfbattle/global"
	"cfbattle/log/zlog"
)

// InitRedis 初始化Redis连接。
// Redis仅用于结束对战的快照缓存，连接失败时降级为只读数据库。
func InitRedis(conf configs.Config) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr(),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Warnf("Redis连接失败，结果缓存不可用:%v", err)
		return
	}
	global.Rdb = rdb
	zlog.Infof("Redis初始化完成")
}
