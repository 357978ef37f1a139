package internal

import (
	"bitwise74/auth-api/config"
	"bitwise74/auth-api/internal/service"
)

// Deps is handed to every handler
type Deps struct {
	Config *config.Config
	Auth   *service.AuthService
}
