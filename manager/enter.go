package manager

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cfbattle/log/zlog"
)

// RouteManager 按业务分组注册路由
type RouteManager struct {
	commonGroup *gin.RouterGroup
	loginGroup  *gin.RouterGroup
	battleGroup *gin.RouterGroup
}

func NewRouteManager(r *gin.Engine) *RouteManager {
	return &RouteManager{
		commonGroup: r.Group("/api"),
		loginGroup:  r.Group("/api/auth"),
		battleGroup: r.Group("/api/battle"),
	}
}

func (rm *RouteManager) RegisterCommonRoutes(register func(rg *gin.RouterGroup)) {
	register(rm.commonGroup)
}

func (rm *RouteManager) RegisterLoginRoutes(register func(rg *gin.RouterGroup)) {
	register(rm.loginGroup)
}

func (rm *RouteManager) RegisterBattleRoutes(register func(rg *gin.RouterGroup)) {
	register(rm.battleGroup)
}

// RequestGlobalMiddleware 注册全局中间件，为每个请求生成trace id
func RequestGlobalMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Set(string(zlog.TraceIDKey), uuid.NewString())
		c.Next()
	})
}
