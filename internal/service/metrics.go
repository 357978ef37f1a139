package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Registration attempts by outcome",
	}, []string{"outcome"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	resetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_reset_requests_total",
		Help: "Forgot-password requests by outcome",
	}, []string{"outcome"})

	resetCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_reset_completions_total",
		Help: "Reset-password attempts by outcome",
	}, []string{"outcome"})

	expiredTokensCleared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_expired_reset_tokens_cleared_total",
		Help: "Reset tokens cleared by the cleanup job after expiring",
	})
)
