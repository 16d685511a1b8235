package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────
// Bearer Token Authentication Middleware
//
// Reads COORDINATOR_AUTH_TOKEN from environment. If set, the mutating
// get_work/finish_work RPCs require: Authorization: Bearer <token>
//
// Public endpoints (health, status, the dashboard stream) are excluded.
// ──────────────────────────────────────────────────────────────────

// AuthMiddleware returns a Gin middleware that validates bearer tokens.
// If COORDINATOR_AUTH_TOKEN is not set, all requests are allowed (dev mode).
// WARNING: in GIN_MODE=release, leaving COORDINATOR_AUTH_TOKEN unset
// exposes get_work/finish_work to anyone who can reach the coordinator.
func AuthMiddleware() gin.HandlerFunc {
	token := os.Getenv("COORDINATOR_AUTH_TOKEN")

	if token == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[SECURITY WARNING] COORDINATOR_AUTH_TOKEN is not set in release mode. " +
			"get_work/finish_work are publicly accessible. " +
			"Set COORDINATOR_AUTH_TOKEN in your environment to enforce authentication.")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing Authorization header",
				"hint":  "Use: Authorization: Bearer <COORDINATOR_AUTH_TOKEN>",
			})
			c.Abort()
			return
		}

		// Parse "Bearer <token>"
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid Authorization header format"})
			c.Abort()
			return
		}

		// Use constant-time comparison to prevent timing-based token enumeration.
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
