package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RespCode struct {
	Code int
	Msg  string
}

var (
	SUCCESS     = RespCode{Code: 200, Msg: "成功"}
	COMMON_FAIL = RespCode{Code: 500, Msg: "失败"}

	PARAM_NOT_COMPLETE = RespCode{Code: 10001, Msg: "参数缺失"}
	PARAM_NOT_VALID    = RespCode{Code: 10002, Msg: "参数无效"}

	USER_NOT_LOGIN     = RespCode{Code: 20001, Msg: "用户未登录"}
	TOKEN_IS_BLANK     = RespCode{Code: 20002, Msg: "token为空"}
	TOKEN_FORMAT_ERROR = RespCode{Code: 20003, Msg: "token格式错误"}
	TOKEN_IS_EXPIRED   = RespCode{Code: 20004, Msg: "token已过期"}
	PERMISSION_DENIED  = RespCode{Code: 20005, Msg: "权限不足"}
	MEMBER_NOT_EXIST   = RespCode{Code: 20006, Msg: "用户不存在"}
	PASSWORD_ERROR     = RespCode{Code: 20007, Msg: "密码错误"}
	EMAIL_EXIST        = RespCode{Code: 20008, Msg: "邮箱已注册"}
	HANDLE_NOT_LINKED  = RespCode{Code: 20009, Msg: "未绑定Codeforces账号"}

	BATTLE_NOT_EXIST   = RespCode{Code: 30001, Msg: "对战不存在"}
	BATTLE_NOT_WAITING = RespCode{Code: 30002, Msg: "对战已开始或已结束"}
	BATTLE_FULL        = RespCode{Code: 30003, Msg: "对战人数已满"}
	ALREADY_IN_BATTLE  = RespCode{Code: 30004, Msg: "已在对战中"}
	NOT_IN_BATTLE      = RespCode{Code: 30005, Msg: "不在对战中"}
	SLOT_OCCUPIED      = RespCode{Code: 30006, Msg: "位置已被占用"}
	NOT_BATTLE_CREATOR = RespCode{Code: 30007, Msg: "不是对战创建者"}
	TEAM_NOT_READY     = RespCode{Code: 30008, Msg: "双方队伍均需至少一名玩家"}
	PROBLEM_POOL_EMPTY = RespCode{Code: 30009, Msg: "未找到符合条件的题目"}
	PROBLEM_LINK_ERROR = RespCode{Code: 30010, Msg: "题目链接格式错误"}

	CF_API_ERROR       = RespCode{Code: 40001, Msg: "Codeforces接口异常"}
	REQUEST_FREQUENTLY = RespCode{Code: 40002, Msg: "请求过于频繁"}
	DATABASE_ERROR     = RespCode{Code: 50001, Msg: "数据库异常"}
	REDIS_ERROR        = RespCode{Code: 50002, Msg: "缓存异常"}
	MESSAGE_NOT_EXIST  = RespCode{Code: 50003, Msg: "资源不存在"}
)

// CodeError 业务错误，携带响应码
type CodeError struct {
	Resp RespCode
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%v", e.Resp.Msg, e.Err)
	}
	return e.Resp.Msg
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// ErrResp 包装底层错误为业务错误
func ErrResp(err error, code RespCode) error {
	return &CodeError{Resp: code, Err: err}
}

type body struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

type Builder struct {
	c *gin.Context
}

func NewResponse(c *gin.Context) *Builder {
	return &Builder{c: c}
}

func (b *Builder) Success(data interface{}) {
	b.c.JSON(http.StatusOK, body{Code: SUCCESS.Code, Msg: SUCCESS.Msg, Data: data})
}

func (b *Builder) Error(code RespCode) {
	b.c.JSON(http.StatusOK, body{Code: code.Code, Msg: code.Msg})
}

// Response 统一出口：err为CodeError时返回对应码，否则按成功处理
func Response(c *gin.Context, data interface{}, err error) {
	if err == nil {
		NewResponse(c).Success(data)
		return
	}
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		NewResponse(c).Error(codeErr.Resp)
		return
	}
	NewResponse(c).Error(COMMON_FAIL)
}
