package utils

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the small logging surface handlers depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps a *slog.Logger in the Logger interface.
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// ContextLogger stores a request-scoped logger (carrying the request ID)
// in the gin context under "logger".
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("request_id")
		c.Set("logger", &requestLogger{base: logger, requestID: requestID})
		c.Next()
	}
}

type requestLogger struct {
	base      Logger
	requestID string
}

func (l *requestLogger) Debug(msg string, args ...any) {
	l.base.Debug(msg, append(args, "request_id", l.requestID)...)
}
func (l *requestLogger) Info(msg string, args ...any) {
	l.base.Info(msg, append(args, "request_id", l.requestID)...)
}
func (l *requestLogger) Warn(msg string, args ...any) {
	l.base.Warn(msg, append(args, "request_id", l.requestID)...)
}
func (l *requestLogger) Error(msg string, args ...any) {
	l.base.Error(msg, append(args, "request_id", l.requestID)...)
}

// LoggerMiddleware logs one line per request after completion.
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request completed",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		)
	}
}
