// Package base provides the infrastructure shared by the provider adapters:
// naming, logging, settings lookup and the panic-safe run boundary.
package base

import (
	"context"
	"fmt"
	"sort"

	"alarm-relay/internal/adapters"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/http"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/config"
	"alarm-relay/internal/models"
)

// Adapter carries the dependencies every provider adapter needs. Provider
// packages embed it.
type Adapter struct {
	name      string
	section   string
	logger    logging.Logger
	settings  *config.Settings
	transport *http.Transport
}

// New creates a base adapter. section is the settings section the adapter
// reads; missing dependencies are replaced with process defaults.
func New(name, section string, deps adapters.Dependencies) (*Adapter, error) {
	if deps.Settings == nil {
		return nil, errors.FatalInitError(fmt.Sprintf("%s: settings are required", name), nil)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	transport := deps.Transport
	if transport == nil {
		transport = http.NewTransport(nil, http.WithLogger(logger))
	}

	return &Adapter{
		name:      name,
		section:   section,
		logger:    logger.WithFields(logging.String("adapter", name)),
		settings:  deps.Settings,
		transport: transport,
	}, nil
}

// Name returns the adapter name
func (a *Adapter) Name() string {
	return a.name
}

// Section returns the settings section the adapter reads
func (a *Adapter) Section() string {
	return a.section
}

// Logger returns the adapter scoped logger
func (a *Adapter) Logger() logging.Logger {
	return a.logger
}

// Settings returns the shared settings
func (a *Adapter) Settings() *config.Settings {
	return a.settings
}

// Transport returns the delivery transport
func (a *Adapter) Transport() *http.Transport {
	return a.transport
}

// CheckConfig reports whether the adapter's section exists
func (a *Adapter) CheckConfig() bool {
	return a.settings.CheckConfig(a.section)
}

// Get reads a required key from the adapter's section
func (a *Adapter) Get(key string) (string, error) {
	return a.settings.Get(a.section, key)
}

// Lookup reads several required keys at once. The first missing key
// aborts with a ConfigMissing error before anything else happens.
func (a *Adapter) Lookup(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := a.Get(key)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	return values, nil
}

// Guard runs fn as the outer boundary of one Run call. A panic or returned
// error is logged at the level its type calls for and never escapes. The
// outcome line carries the event id found in ctx.
func (a *Adapter) Guard(ctx context.Context, kind models.Kind, fn func() error) {
	logger := a.logger.WithContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("unknown error", fmt.Errorf("panic: %v", r), logging.String("kind", string(kind)))
		}
	}()

	a.logOutcome(logger, kind, fn())
}

// LogOutcome converts a run result into a log line
func (a *Adapter) LogOutcome(kind models.Kind, err error) {
	a.logOutcome(a.logger, kind, err)
}

func (a *Adapter) logOutcome(logger logging.Logger, kind models.Kind, err error) {
	if err == nil {
		return
	}

	fields := []logging.Field{logging.String("kind", string(kind))}
	appErr, ok := errors.AsAppError(err)
	if ok {
		keys := make([]string, 0, len(appErr.Context))
		for k := range appErr.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, logging.Any(k, appErr.Context[k]))
		}
	}

	switch errors.GetType(err) {
	case errors.ErrTypeUnsupported:
		logger.Warn(appErr.Message, fields...)
	case errors.ErrTypeConfigMissing, errors.ErrTypeValidation:
		logger.Warn("invalid or missing configuration, skipping delivery", append(fields, logging.Err(err))...)
	case errors.ErrTypeProviderRejected:
		logger.Warn(fmt.Sprintf("%s response: %v - %v", a.name, appErr.Context["status"], appErr.Context["reason"]), fields...)
	case errors.ErrTypeMalformedResponse:
		logger.Warn("unexpected provider response", append(fields, logging.Err(err))...)
	case errors.ErrTypeConnection, errors.ErrTypeTimeout:
		logger.Error("cannot reach provider", err, fields...)
		logger.Debug("provider request failed", append(fields, logging.String("detail", err.Error()))...)
	default:
		logger.Error("delivery failed", err, fields...)
	}
}
