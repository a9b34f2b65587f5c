package types

import (
	"github.com/gin-gonic/gin"

	"cfbattle/response"
)

// BindReq 统一绑定请求参数，失败时直接写回参数错误
func BindReq[T any](c *gin.Context) (T, error) {
	var req T
	if err := c.ShouldBind(&req); err != nil {
		response.NewResponse(c).Error(response.PARAM_NOT_VALID)
		return req, err
	}
	return req, nil
}
