package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventboard/utils"
)

// Authenticate verifies the JWT in the Authorization header and puts the
// user id into the context for downstream handlers.
func Authenticate(c *gin.Context) {
	token := c.Request.Header.Get("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}

	userId, err := utils.VerifyToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}

	c.Set("userId", userId)
	c.Next()
}
