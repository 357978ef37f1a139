package auth

import (
	"net/http"

	"bitwise74/auth-api/internal"
	"bitwise74/auth-api/internal/service"

	"github.com/gin-gonic/gin"
)

type forgotPasswordBody struct {
	Email string `json:"email"`
}

// ForgotPassword answers the same way whether or not the email belongs to
// an account
func ForgotPassword(c *gin.Context, d *internal.Deps) {
	var data forgotPasswordBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	if err := d.Auth.ForgotPassword(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": service.MsgResetLinkSent,
	})
}
