package middleware

import (
	"strings"

	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/response"
	"cfbattle/utils/jwtUtils"

	"github.com/gin-gonic/gin"
)

// bearerToken 从Header或query里取出token,websocket握手只能走query
func bearerToken(c *gin.Context) (string, response.RespCode, bool) {
	authorization := c.GetHeader("Authorization")
	if authorization == "" {
		if token := c.Query("token"); token != "" {
			return token, response.RespCode{}, true
		}
		return "", response.TOKEN_IS_BLANK, false
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", response.TOKEN_FORMAT_ERROR, false
	}
	return parts[1], response.RespCode{}, true
}

func Authentication(role int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := zlog.GetCtxFromGin(c)
		token, code, ok := bearerToken(c)
		if !ok {
			zlog.CtxErrorf(ctx, "token缺失或格式错误")
			response.NewResponse(c).Error(code)
			c.Abort()
			return
		}
		data, err := jwtUtils.IdentifyToken(token)
		if err != nil {
			zlog.CtxErrorf(ctx, "token验证失败:%v", err)
			response.NewResponse(c).Error(response.TOKEN_IS_EXPIRED)
			c.Abort()
			return
		}
		if data.Role < role {
			zlog.CtxErrorf(ctx, "权限不足")
			response.NewResponse(c).Error(response.PERMISSION_DENIED)
			c.Abort()
			return
		}
		c.Set(global.TOKEN_USER_ID, data.UserID)
		c.Set(global.TOKEN_ROLE, data.Role)
		c.Next()
	}
}
