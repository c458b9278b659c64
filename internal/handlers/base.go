// Package handlers serves the inbound HTTP API of the relay
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/common/validation"
	"alarm-relay/internal/models"
)

// Dispatcher is the part of the dispatcher the handlers need
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.AlarmEvent) bool
	Loaded() []string
}

// HealthChecker reports the health of an optional dependency
type HealthChecker interface {
	Health() error
}

type Handlers struct {
	dispatcher Dispatcher
	redis      HealthChecker
	validator  *validation.StructValidator
	logger     logging.Logger

	// background dispatches outlive the request that started them
	background context.Context
	inflight   sync.WaitGroup
}

// Option configures Handlers
type Option func(*Handlers)

// WithRedis adds the double filter's Redis to the health report
func WithRedis(hc HealthChecker) Option {
	return func(h *Handlers) {
		h.redis = hc
	}
}

// WithLogger sets the handler logger
func WithLogger(logger logging.Logger) Option {
	return func(h *Handlers) {
		h.logger = logger
	}
}

// WithBaseContext sets the parent context of background dispatches
func WithBaseContext(ctx context.Context) Option {
	return func(h *Handlers) {
		h.background = ctx
	}
}

func New(dispatcher Dispatcher, opts ...Option) *Handlers {
	h := &Handlers{
		dispatcher: dispatcher,
		validator:  validation.NewStructValidator(),
		logger:     logging.GetGlobalLogger(),
		background: context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait blocks until every background dispatch has finished
func (h *Handlers) Wait() {
	h.inflight.Wait()
}

func (h *Handlers) sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

func (h *Handlers) sendJSONError(w http.ResponseWriter, status int, message string) {
	h.sendJSONResponse(w, status, map[string]string{"error": message})
}
