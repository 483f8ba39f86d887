package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type ScanTokenMiddleware struct {
	log   *logger.Logger
	token string
}

func NewScanTokenMiddleware(log *logger.Logger, token string) *ScanTokenMiddleware {
	return &ScanTokenMiddleware{
		log:   log.With("middleware", "ScanTokenMiddleware"),
		token: token,
	}
}

// RequireToken guards scheduler-only routes with a shared token carried in
// X-Scan-Token. An empty configured token closes the routes entirely.
func (m *ScanTokenMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "scan trigger disabled"})
			return
		}
		got := c.GetHeader("X-Scan-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.token)) != 1 {
			m.log.Warn("rejected scan trigger", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Next()
	}
}
