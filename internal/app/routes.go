package app

import (
	"github.com/gorilla/mux"

	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/common/ratelimit"
	"alarm-relay/internal/handlers"
	"alarm-relay/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application. A nil
// limiter leaves the alarm endpoint unthrottled.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, limiter *ratelimit.Limiter) {
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey, logging.GetGlobalLogger()))
	}
	api.HandleFunc("/alarms", h.HandleAlarm).Methods("POST")
}
