// Package bosmon delivers POCSAG alarms to a BosMon status board through its
// telegram input endpoint.
package bosmon

import (
	"context"
	"fmt"
	"net/url"

	"alarm-relay/internal/adapters"
	"alarm-relay/internal/adapters/base"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/http"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/models"
)

// Name is the registry name and settings section of this adapter
const Name = "bosmon"

// Adapter is the status board adapter
type Adapter struct {
	*base.Adapter
}

// New creates the adapter
func New(deps adapters.Dependencies) (adapters.Adapter, error) {
	b, err := base.New(Name, Name, deps)
	if err != nil {
		return nil, err
	}
	return &Adapter{Adapter: b}, nil
}

// Factory returns the registry factory for this adapter
func Factory() adapters.Factory {
	return adapters.NewFactory(Name, New)
}

// OnLoad has nothing to prepare
func (a *Adapter) OnLoad(ctx context.Context) error {
	return nil
}

// Run delivers event to the status board
func (a *Adapter) Run(ctx context.Context, kind models.Kind, frequency string, event models.AlarmEvent) {
	a.Guard(ctx, kind, func() error {
		return a.run(ctx, kind, event)
	})
}

func (a *Adapter) run(ctx context.Context, kind models.Kind, event models.AlarmEvent) error {
	if !a.CheckConfig() {
		return nil
	}

	cfg, err := loadConfig(a.Adapter)
	if err != nil {
		return err
	}

	switch kind {
	case models.KindPOC:
		return a.sendPOC(ctx, cfg, event)
	default:
		return errors.UnsupportedKindError(string(kind))
	}
}

func (a *Adapter) sendPOC(ctx context.Context, cfg *Config, event models.AlarmEvent) error {
	form := url.Values{
		"type":     {"pocsag"},
		"address":  {event.RIC},
		"flags":    {"0"},
		"function": {models.FunctionLetter(event.Function)},
		"message":  {event.Msg},
	}
	a.Logger().Debug("Start POC to BosMon", logging.String("params", form.Encode()))

	req := &http.Request{
		Method:  "POST",
		URL:     cfg.InputURL(),
		Headers: map[string]string{"Accept": "text/plain"},
		Form:    form,
	}
	if cfg.User != "" {
		req.BasicAuth = &http.BasicAuth{Username: cfg.User, Password: cfg.Password}
	}

	res, err := a.Transport().Do(ctx, req)
	if err != nil {
		return err
	}
	if !res.Succeeded {
		return errors.ProviderRejectedError(res.StatusCode, res.Reason)
	}

	a.Logger().Debug(fmt.Sprintf("BosMon response: %d - %s", res.StatusCode, res.Reason))
	return nil
}
