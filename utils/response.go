package utils

import (
	"github.com/gin-gonic/gin"
)

// RespondError writes the error envelope:
// {"success": false, "message": "...", "error": {"code": "...", "details": ...}}
func RespondError(c *gin.Context, status int, code, message string, details ...interface{}) {
	errBody := gin.H{"code": code}
	if len(details) > 0 && details[0] != nil {
		errBody["details"] = details[0]
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   errBody,
	})
}

// RespondData writes {"success": true, "data": data}
func RespondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}
