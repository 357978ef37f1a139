package auth

import (
	"net/http"

	"bitwise74/auth-api/internal"

	"github.com/gin-gonic/gin"
)

type verifyResetTokenBody struct {
	Token string `json:"token"`
}

func VerifyResetToken(c *gin.Context, d *internal.Deps) {
	var data verifyResetTokenBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	email, err := d.Auth.VerifyResetToken(c.Request.Context(), data.Token)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Token is valid",
		"email":   email,
	})
}
