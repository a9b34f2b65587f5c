package middleware

import (
	"fmt"
	"sync"

	"cfbattle/log/zlog"
	"cfbattle/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	limiterMu sync.Mutex
	limiters  = make(map[string]*rate.Limiter)
)

func ipLimiter(ip string, r rate.Limit, b int) *rate.Limiter {
	key := fmt.Sprintf("%s|%v|%d", ip, r, b)
	limiterMu.Lock()
	defer limiterMu.Unlock()
	l, ok := limiters[key]
	if !ok {
		l = rate.NewLimiter(r, b)
		limiters[key] = l
	}
	return l
}

// Limiter 按客户端IP限流
func Limiter(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := zlog.GetCtxFromGin(c)
		if !ipLimiter(c.ClientIP(), r, b).Allow() {
			zlog.CtxInfof(ctx, "请求过于频繁")
			response.NewResponse(c).Error(response.REQUEST_FREQUENTLY)
			c.Abort()
			return
		}
		c.Next()
	}
}
