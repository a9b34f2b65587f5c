package zlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cfbattle/configs"
)

type ctxKey string

const TraceIDKey ctxKey = "trace_id"

var logger *zap.SugaredLogger

func init() {
	// 配置加载前使用默认logger，避免空指针
	base, _ := zap.NewDevelopment(zap.AddCallerSkip(1))
	logger = base.Sugar()
}

// InitLog 根据配置初始化zap日志
func InitLog(conf *configs.Config) {
	level := zapcore.InfoLevel
	if conf != nil {
		_ = level.Set(conf.Log.Level)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	}
	if conf != nil && conf.Log.Path != "" {
		_ = os.MkdirAll(conf.Log.Path, 0o755)
		file, err := os.OpenFile(filepath.Join(conf.Log.Path, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level))
		}
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	logger = base.Sugar()
}

func Sync() {
	_ = logger.Sync()
}

// NewCtx 生成携带trace id的context
func NewCtx() context.Context {
	return context.WithValue(context.Background(), TraceIDKey, uuid.NewString())
}

// GetCtxFromGin 从gin上下文取出带trace id的context
func GetCtxFromGin(c *gin.Context) context.Context {
	if v, ok := c.Get(string(TraceIDKey)); ok {
		if traceID, ok := v.(string); ok {
			return context.WithValue(c.Request.Context(), TraceIDKey, traceID)
		}
	}
	traceID := uuid.NewString()
	c.Set(string(TraceIDKey), traceID)
	return context.WithValue(c.Request.Context(), TraceIDKey, traceID)
}

func traceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

func withTrace(ctx context.Context, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if id := traceID(ctx); id != "" {
		return fmt.Sprintf("[%s] %s", id, msg)
	}
	return msg
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func CtxDebugf(ctx context.Context, format string, args ...interface{}) {
	logger.Debug(withTrace(ctx, format, args...))
}

func CtxInfof(ctx context.Context, format string, args ...interface{}) {
	logger.Info(withTrace(ctx, format, args...))
}

func CtxWarnf(ctx context.Context, format string, args ...interface{}) {
	logger.Warn(withTrace(ctx, format, args...))
}

func CtxErrorf(ctx context.Context, format string, args ...interface{}) {
	logger.Error(withTrace(ctx, format, args...))
}
