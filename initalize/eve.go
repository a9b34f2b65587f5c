package initalize

import (
	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/logic"
)

// Eve 进程退出前的收尾
func Eve() {
	logic.StopAllBattles()
	logic.GetCfGateway().Stop()
	if global.Rdb != nil {
		_ = global.Rdb.Close()
	}
	zlog.Sync()
}
