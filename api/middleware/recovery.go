package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/demand-predictor/internal/logger"
)

// Recovery turns a handler panic into a JSON 500 and logs it with the trace id.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.FromContext(c.Request.Context()).
			WithField("path", c.Request.URL.Path).
			Errorf("panic recovered: %v", recovered)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
	})
}
