package routerg

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"golang.org/x/time/rate"

	"cfbattle/configs"
	"cfbattle/global"
	"cfbattle/internal/api"
	"cfbattle/log/zlog"
	"cfbattle/manager"
	"cfbattle/middleware"
)

// RunServer 启动服务器 路由层
func RunServer() {
	r, err := listen()
	if err != nil {
		zlog.Errorf("Listen error: %v", err)
		panic(err.Error())
	}
	r.Run(fmt.Sprintf("%s:%d", configs.Conf.App.Host, configs.Conf.App.Port)) // 启动 Gin 服务器
}

// listen 配置 Gin 服务器
func listen() (*gin.Engine, error) {
	r := gin.Default() // 创建默认的 Gin 引擎
	// 注册全局中间件（例如获取 Trace ID）
	manager.RequestGlobalMiddleware(r)
	// 创建 RouteManager 实例
	routeManager := manager.NewRouteManager(r)
	// 注册各业务路由组的具体路由
	registerRoutes(routeManager)
	return r, nil
}

// registerRoutes 注册各业务路由的具体处理函数
func registerRoutes(routeManager *manager.RouteManager) {

	routeManager.RegisterCommonRoutes(func(rg *gin.RouterGroup) {
		rg.GET("/profile", middleware.Limiter(rate.Every(time.Second)*5, 10), middleware.Authentication(global.ROLE_USER), api.GetProfile)
		rg.POST("/profile", middleware.Limiter(rate.Every(time.Second)*3, 6), middleware.Authentication(global.ROLE_USER), api.UpdateProfile)
		rg.GET("/ws", middleware.Authentication(global.ROLE_USER), api.WebsocketConnect)
	})

	routeManager.RegisterLoginRoutes(func(rg *gin.RouterGroup) {
		rg.POST("/register", middleware.Limiter(rate.Every(time.Minute), 5), api.Register)
		rg.POST("/login", middleware.Limiter(rate.Every(time.Minute), 10), api.Login)
	})

	routeManager.RegisterBattleRoutes(func(rg *gin.RouterGroup) {
		rg.POST("", middleware.Authentication(global.ROLE_USER), api.CreateBattle)
		rg.GET("", api.GetBattleInfo)
		rg.GET("/mine", middleware.Authentication(global.ROLE_USER), api.GetMyBattle)
		rg.GET("/list", api.ListBattles)
		rg.POST("/join", middleware.Authentication(global.ROLE_USER), api.JoinBattle)
		rg.POST("/move", middleware.Authentication(global.ROLE_USER), api.MovePlayer)
		rg.POST("/leave", middleware.Authentication(global.ROLE_USER), api.LeaveBattle)
		rg.POST("/remove", middleware.Authentication(global.ROLE_USER), api.RemovePlayer)
		rg.POST("/start", middleware.Authentication(global.ROLE_USER), api.StartBattle)
		rg.GET("/stats", api.GetBattleStats)
	})
}
