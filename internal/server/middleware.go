package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// loggingMiddleware logs method, path, status, and latency for every request.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// authMiddleware gates the group it's attached to behind X-API-Key when
// AuthEnabled is set. A disabled config leaves every route open.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.AuthEnabled {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" || !s.keyAllowed(key) {
			writeError(c, http.StatusUnauthorized, 401, "invalid or missing API key")
			return
		}
		c.Next()
	}
}

func (s *Server) keyAllowed(key string) bool {
	for _, k := range s.cfg.APIKeys {
		if k == key {
			return true
		}
	}
	return false
}

// corsMiddleware reflects Origin when it appears in CORSOrigins, or allows
// every origin when the allowlist is empty.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.CORSOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
