package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// Page wraps a list with its paging window.
func Page(c *gin.Context, items interface{}, limit, offset int, extra gin.H) {
	data := gin.H{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	}
	for k, v := range extra {
		data[k] = v
	}
	Success(c, http.StatusOK, data)
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	ErrorWithDetails(c, statusCode, code, message, nil)
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   body,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
	c.Abort()
}
