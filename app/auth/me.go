package auth

import (
	"net/http"

	"bitwise74/auth-api/internal"

	"github.com/gin-gonic/gin"
)

// Me returns the profile of the account the bearer token was issued for
func Me(c *gin.Context, d *internal.Deps) {
	user, err := d.Auth.Profile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile fetched",
		"user":    user,
	})
}
