package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"growth-engine/pkg/logger"
)

// DevUserHeader picks the caller identity when auth is disabled.
const DevUserHeader = "X-Dev-User"

const devSubject = "local-dev"

// TokenVerifier is satisfied by *Verifier.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

type MiddlewareConfig struct {
	// Disabled trusts every request as a local development user.
	Disabled bool
}

// Middleware enforces bearer token auth and injects claims into the request
// context.
func Middleware(verifier TokenVerifier, cfg MiddlewareConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Disabled {
			subject := strings.TrimSpace(c.GetHeader(DevUserHeader))
			if subject == "" {
				subject = devSubject
			}
			claims := &Claims{
				Subject: subject,
				Issuer:  "local",
				Raw:     map[string]any{"sub": subject},
			}
			c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
			c.Next()
			return
		}

		if verifier == nil {
			respondUnauthorized(c, "auth verifier not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debugw("auth failure: missing Authorization header", "path", c.Request.URL.Path)
			respondUnauthorized(c, "missing authorization header")
			return
		}

		token, ok := extractBearerToken(authHeader)
		if !ok {
			log.Debugw("auth failure: malformed Authorization header", "path", c.Request.URL.Path)
			respondUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Infow("auth failure: token invalid", "path", c.Request.URL.Path, "error", err)
			respondUnauthorized(c, "invalid token")
			return
		}

		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
