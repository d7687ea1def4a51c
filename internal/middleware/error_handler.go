package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apiError "design-review-server/internal/errors"
)

func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var apiErr *apiError.APIError

			// if it's our custom APIError
			if !errors.As(err, &apiErr) {
				// If it's a raw error we didn't wrap, treat as Internal
				apiErr = apiError.Internal(err)
			}

			if apiErr.Status >= 500 {
				logger.Error("request failed",
					zap.Int("status", apiErr.Status),
					zap.String("path", c.Request.URL.Path),
					zap.Error(apiErr.Internal),
				)
			} else {
				logger.Info("request rejected",
					zap.Int("status", apiErr.Status),
					zap.String("path", c.Request.URL.Path),
					zap.String("reason", apiErr.Message),
				)
			}

			c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		}
	}
}
