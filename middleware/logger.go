package middleware

import (
	"time"

	"github.com/TIANLI0/CompositeKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger Zap日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if cache := c.Writer.Header().Get("X-Cache"); cache != "" {
			fields = append(fields, zap.String("cache", cache))
		}

		if c.Writer.Status() >= 500 {
			utils.Logger.Error("request", fields...)
		} else {
			utils.Logger.Info("request", fields...)
		}
	}
}
