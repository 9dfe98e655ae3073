package audit

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// WriteAuditMiddleware records every non-read request under /api/. Routes
// listed in covered, as "METHOD /route/:param", already emit their own domain
// event on success, so only their failures are recorded here.
func WriteAuditMiddleware(sink Sink, covered ...string) gin.HandlerFunc {
	if sink == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skip := make(map[string]struct{}, len(covered))
	for _, route := range covered {
		skip[route] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		if _, ok := skip[method+" "+c.FullPath()]; ok && status < http.StatusBadRequest {
			return
		}
		sink.Record(c.Request.Context(), "http_write", LevelFromStatus(status), map[string]any{
			"method":   method,
			"path":     path,
			"route":    c.FullPath(),
			"status":   status,
			"duration": time.Since(start).String(),
		})
	}
}

func LevelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
