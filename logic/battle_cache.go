package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cfbattle/global"
	"cfbattle/types"
)

const battleFinalKeyFmt = "battle:%d:final"

// BattleCache 已结束对战的终局快照缓存。
// 镜像按保留窗口驱逐已结束对战，竞态中迟到的客户端仍可在TTL内读到结果。
type BattleCache struct {
	rdb       *redis.Client
	retention time.Duration
}

var battleCacheOnce sync.Once
var battleCache *BattleCache

func GetBattleCache() *BattleCache {
	battleCacheOnce.Do(func() {
		retention := 10 * time.Minute
		if global.Config != nil {
			retention = global.Config.Battle.ResultRetention()
		}
		battleCache = NewBattleCache(global.Rdb, retention)
	})
	return battleCache
}

func NewBattleCache(rdb *redis.Client, retention time.Duration) *BattleCache {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	return &BattleCache{rdb: rdb, retention: retention}
}

func (c *BattleCache) SetFinal(ctx context.Context, snapshot *types.BattleSnapshot) error {
	if c.rdb == nil || snapshot == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(battleFinalKeyFmt, snapshot.BattleID), data, c.retention).Err()
}

func (c *BattleCache) GetFinal(ctx context.Context, battleID int64) (*types.BattleSnapshot, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, fmt.Sprintf(battleFinalKeyFmt, battleID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot types.BattleSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
