package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustwork/discovery/api/handlers"
	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/logger"
)

func loggingMiddleware(logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	}
}

// principalMiddleware trusts the identity header set by the auth gateway in
// front of this service; absent means anonymous.
func principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principalID := c.GetHeader("X-Principal-ID")
		if principalID == "" {
			principalID = datastore.PrincipalAnonymous
		}
		c.Set(handlers.ContextKeyPrincipal, principalID)
		c.Next()
	}
}

// _CORSMiddleware starts with _ so that it is not imported outside of the server package.
func _CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Authentication, accept, origin, Cache-Control, X-Requested-With, X-Principal-ID") // nolint:lll
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}
