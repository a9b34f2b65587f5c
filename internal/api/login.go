package api

import (
	"github.com/gin-gonic/gin"

	"cfbattle/log/zlog"
	"cfbattle/logic"
	"cfbattle/response"
	"cfbattle/types"
	"cfbattle/utils/jwtUtils"
)

func Register(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.RegisterReq](c)
	if err != nil {
		return
	}
	resp, err := logic.NewLoginLogic().Register(ctx, req)
	response.Response(c, resp, err)
}

func Login(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.LoginReq](c)
	if err != nil {
		return
	}
	resp, err := logic.NewLoginLogic().Login(ctx, req)
	response.Response(c, resp, err)
}

func GetProfile(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewLoginLogic().GetProfile(ctx, userID)
	response.Response(c, resp, err)
}

func UpdateProfile(c *gin.Context) {
	ctx := zlog.GetCtxFromGin(c)
	req, err := types.BindReq[types.UpdateProfileReq](c)
	if err != nil {
		return
	}
	userID := jwtUtils.GetUserId(c)
	resp, err := logic.NewLoginLogic().UpdateProfile(ctx, userID, req)
	response.Response(c, resp, err)
}
