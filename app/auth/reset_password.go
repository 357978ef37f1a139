package auth

import (
	"net/http"

	"bitwise74/auth-api/internal"
	"bitwise74/auth-api/internal/service"

	"github.com/gin-gonic/gin"
)

type resetPasswordBody struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func ResetPassword(c *gin.Context, d *internal.Deps) {
	var data resetPasswordBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	s, err := d.Auth.ResetPassword(c.Request.Context(), &service.ResetPasswordInput{
		Token:           data.Token,
		Password:        data.Password,
		ConfirmPassword: data.ConfirmPassword,
	})
	if err != nil {
		fail(c, err)
		return
	}

	session(c, d, http.StatusOK, "Password reset successfully", s)
}
