package common

import "github.com/gin-gonic/gin"

// JSON writes a JSON response, the shared helper controllers and middleware
// use instead of calling c.JSON directly.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}
