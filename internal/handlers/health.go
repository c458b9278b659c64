package handlers

import (
	"net/http"
	"time"
)

// HealthCheck reports the loaded adapters. A configured Redis that cannot
// be reached degrades the status but the relay keeps accepting alarms.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"adapters":  h.dispatcher.Loaded(),
	}

	if h.redis != nil {
		if err := h.redis.Health(); err != nil {
			status["status"] = "degraded"
			status["redis_status"] = "unhealthy"
			status["redis_error"] = err.Error()
		} else {
			status["redis_status"] = "healthy"
		}
	}

	h.sendJSONResponse(w, http.StatusOK, status)
}
