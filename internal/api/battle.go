package api

import (
	"github.com/gin-gonic/gin"

	"cfbattle/log/zlog"
	"cfbattle/logic"
	"cfbattle/response"
	"cfbattle/types"
	"cfbattle/utils/jwtUtils"
)

func CreateBattle(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleCreateReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().CreateBattle(ctx, userID, req)
	response.Response(c, resp, err)
}

func GetBattleInfo(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleInfoReq](c)
	if err != nil {
		return
	}
	resp, err := logic.NewBattleLogic().GetBattle(ctx, req)
	response.Response(c, resp, err)
}

// GetMyBattle 查询当前用户所在的未结束对战
func GetMyBattle(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().GetBattleByUser(ctx, userID)
	response.Response(c, resp, err)
}

func ListBattles(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleListReq](c)
	if err != nil {
		return
	}
	resp, err := logic.NewBattleLogic().ListBattles(ctx, req)
	response.Response(c, resp, err)
}

func JoinBattle(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleJoinReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().JoinBattle(ctx, userID, req.JoinCode)
	response.Response(c, resp, err)
}

func MovePlayer(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleMoveReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().MovePlayer(ctx, userID, req)
	response.Response(c, resp, err)
}

func LeaveBattle(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleActionReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().LeaveBattle(ctx, userID, req.BattleID)
	response.Response(c, resp, err)
}

func RemovePlayer(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleRemoveReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().RemovePlayer(ctx, userID, req)
	response.Response(c, resp, err)
}

func StartBattle(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleActionReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewBattleLogic().StartBattle(ctx, userID, req.BattleID)
	response.Response(c, resp, err)
}

func GetBattleStats(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.BattleActionReq](c)
	if err != nil {
		return
	}
	resp, err := logic.NewBattleLogic().GetBattleStats(ctx, req.BattleID)
	response.Response(c, resp, err)
}
