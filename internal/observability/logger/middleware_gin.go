package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/pqio/internal/observability/context"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in and out of the API.
const RequestIDHeader = "X-Request-Id"

// ErrorClassifier names the class and code of a failed request.
type ErrorClassifier func(err error) (class, code string)

// GinMiddleware gives each request an id and writes one access line for it.
// Import and export handlers store their batch id under "batch_id".
func GinMiddleware(log *zap.Logger, classify ErrorClassifier) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = obscontext.NewID()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if batchID := c.GetString("batch_id"); batchID != "" {
			fields = append(fields, zap.String("batch_id", batchID))
		}
		if last := c.Errors.Last(); last != nil && classify != nil {
			class, code := classify(last.Err)
			fields = append(fields, zap.String("error_class", class), zap.String("error_code", code))
		}

		reqLog := WithContext(c.Request.Context(), log)
		switch {
		case route == "/health" || route == "/metrics":
			reqLog.Debug("http request", fields...)
		case status >= http.StatusInternalServerError:
			reqLog.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			reqLog.Warn("http request", fields...)
		default:
			reqLog.Info("http request", fields...)
		}
	}
}
