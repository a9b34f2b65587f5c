package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"cfbattle/log/zlog"
	"cfbattle/logic"
	"cfbattle/response"
	"cfbattle/utils/jwtUtils"
)

func WebsocketConnect(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	userID := jwtUtils.GetUserId(c)
	if userID == 0 {
		response.NewResponse(c).Error(response.USER_NOT_LOGIN)
		return
	}
	battleID := parseBattleIDQuery(c)
	if err := logic.GetWsHub().Serve(ctx, c.Writer, c.Request, userID, battleID); err != nil {
		zlog.CtxErrorf(ctx, "websocket连接失败:%v", err)
	}
}

func parseBattleIDQuery(c *gin.Context) int64 {
	battleIDStr := c.Query("battle_id")
	if battleIDStr == "" {
		return 0
	}
	battleID, err := strconv.ParseInt(battleIDStr, 10, 64)
	if err != nil {
		return 0
	}
	return battleID
}
