package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
)

// respondError maps an application error onto the HTTP response. Unknown
// errors are logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{
		"error": err.Error(),
	}
	if code := apperrors.CodeOf(err); code != "" {
		body["code"] = code
	}
	if apperrors.IsRetryable(err) {
		body["retryable"] = true
	}
	c.JSON(status, body)
}
