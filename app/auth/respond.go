// Package auth contains the handlers of the /api/auth routes
package auth

import (
	"net/http"
	"time"

	"bitwise74/auth-api/internal"
	"bitwise74/auth-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	service.CodeValidation:          http.StatusBadRequest,
	service.CodeEmailTaken:          http.StatusConflict,
	service.CodeInvalidCredentials:  http.StatusUnauthorized,
	service.CodeInvalidResetToken:   http.StatusBadRequest,
	service.CodeAccountNotFound:     http.StatusNotFound,
	service.CodeResetDeliveryFailed: http.StatusInternalServerError,
	service.CodeInternal:            http.StatusInternalServerError,
}

// fail writes the response for an error returned by the auth service.
// Internal errors are logged and replaced by a generic message.
func fail(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)

	code := service.ErrorCode(err)
	msg := err.Error()

	if code == service.CodeInternal {
		msg = service.MsgInternal

		fields := []zap.Field{zap.Error(err), zap.String("requestID", requestID)}
		if o, ok := oops.AsOops(err); ok {
			fields = append(fields, zap.Any("context", o.Context()))
		}

		zap.L().Error("Auth request failed", fields...)
	}

	c.JSON(statusByCode[code], gin.H{
		"success":   false,
		"message":   msg,
		"code":      code,
		"requestID": requestID,
	})
}

func badBody(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)

	c.JSON(http.StatusBadRequest, gin.H{
		"success":   false,
		"message":   "Invalid request body",
		"code":      service.CodeValidation,
		"requestID": requestID,
	})

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
}

// session writes a successful authentication and sets the auth_token cookie
// so browser clients don't have to store the token themselves
func session(c *gin.Context, d *internal.Deps, status int, msg string, s *service.Session) {
	maxAge := int(d.Config.JWT.TTL / time.Second)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("auth_token", s.Token, maxAge, "/", "", d.Config.Host.SSLEnabled, true)

	c.JSON(status, gin.H{
		"success": true,
		"message": msg,
		"token":   s.Token,
		"user":    s.User,
	})
}
