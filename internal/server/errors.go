package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"growth-engine/internal/apperr"
	"growth-engine/pkg/logger"
)

// retryAfterSeconds is sent with 503 responses.
const retryAfterSeconds = "5"

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Internal causes are logged and
// never sent to the client.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("internal error", err)
	}
	status := statusFor(e.Kind)

	body := gin.H{"error": e.Message}
	if e.Field != "" {
		body["field"] = e.Field
	}

	switch e.Kind {
	case apperr.KindInternal:
		log.Errorw("request failed", "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey), "error", err)
		body["error"] = "internal error"
	case apperr.KindUnavailable:
		log.Warnw("dependency unavailable", "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey), "error", err)
		c.Header("Retry-After", retryAfterSeconds)
	}

	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
