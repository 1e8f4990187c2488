package utils

import "github.com/gin-gonic/gin"

// RespondWithError writes {"error": message} and aborts the chain.
func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondWithErrorDetails is RespondWithError with an extra payload, e.g. a
// partial sale result.
func RespondWithErrorDetails(c *gin.Context, status int, message string, details gin.H) {
	body := gin.H{"error": message}
	for k, v := range details {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}
