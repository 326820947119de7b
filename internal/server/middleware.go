package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"growth-engine/internal/apperr"
	"growth-engine/internal/auth"
	"growth-engine/internal/profile"
	"growth-engine/pkg/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		reqLog := log.With("request_id", c.GetString(requestIDKey))
		if claims, ok := auth.ClaimsFromContext(c.Request.Context()); ok {
			reqLog = reqLog.With("user_id", claims.Subject)
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		}
		switch {
		case status >= 500:
			reqLog.Errorw("request", fields...)
		case status >= 400:
			reqLog.Warnw("request", fields...)
		default:
			reqLog.Infow("request", fields...)
		}
	}
}

// ensureProfile creates the caller's profile on first sight, so every /api
// handler can assume it exists.
func ensureProfile(profiles *profile.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok || claims.Subject == "" {
			respondError(c, log, apperr.Unauthorized("missing auth context"))
			c.Abort()
			return
		}
		if _, err := profiles.Ensure(c.Request.Context(), claims.Subject, claims.Email); err != nil {
			respondError(c, log, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	claims, _ := auth.ClaimsFromContext(c.Request.Context())
	if claims == nil {
		return ""
	}
	return claims.Subject
}
