package auth

import (
	"net/http"

	"bitwise74/auth-api/internal"
	"bitwise74/auth-api/internal/service"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func Register(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	s, err := d.Auth.Register(c.Request.Context(), &service.RegisterInput{
		FirstName:       data.FirstName,
		LastName:        data.LastName,
		Email:           data.Email,
		Password:        data.Password,
		ConfirmPassword: data.ConfirmPassword,
	})
	if err != nil {
		fail(c, err)
		return
	}

	session(c, d, http.StatusCreated, "User registered successfully", s)
}
