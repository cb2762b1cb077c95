package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse writes {"error": message} and stops the handler chain.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// ValidationErrorResponse writes a 400 carrying the binding error.
func ValidationErrorResponse(c *gin.Context, message string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
}

// SuccessResponse writes data as the JSON body.
func SuccessResponse(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}
