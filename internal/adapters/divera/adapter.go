// Package divera delivers alarms to Divera 24/7. A delivery is a chain of
// three requests: the alarm itself, a lookup of the alarm's message
// channel, and a chat message posted into that channel. Each stage runs
// only if the previous one succeeded.
package divera

import (
	"bytes"
	"context"
	"encoding/json"
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
const Name = "divera"

const (
	stageAlarm     = "alarm"
	stageLastAlarm = "last-alarm"
	stageMessage   = "message"
)

// Adapter is the team alerting adapter
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

// Run delivers event to Divera
func (a *Adapter) Run(ctx context.Context, kind models.Kind, frequency string, event models.AlarmEvent) {
	a.Guard(ctx, kind, func() error {
		return a.run(ctx, kind, event)
	})
}

func (a *Adapter) run(ctx context.Context, kind models.Kind, event models.AlarmEvent) error {
	if !a.CheckConfig() {
		return nil
	}

	if kind == models.KindPOC && isNetIdent(a.Settings(), event.RIC) {
		a.Logger().Info("RIC is net ident", logging.String("ric", event.RIC))
		return nil
	}

	cfg, err := loadConfig(a.Adapter, kind, event)
	if err != nil {
		return err
	}

	al := buildAlarm(cfg, kind, event)
	a.Logger().Debug("send Divera",
		logging.String("kind", string(kind)),
		logging.String("title", al.title),
		logging.String("text", al.text),
		logging.String("target", al.target),
	)

	if !al.validPriority() {
		a.Logger().Info(fmt.Sprintf("No priority configured for type '%s', skipping Divera alarm", kind),
			logging.String("priority", al.priority),
		)
		return nil
	}
	if note := al.missingTarget(); note != "" {
		a.Logger().Info(note, logging.String("kind", string(kind)))
	}

	if err := a.sendAlarm(ctx, cfg, al); err != nil {
		return err
	}
	channelID, err := a.fetchChannel(ctx, cfg)
	if err != nil {
		return err
	}
	return a.postMessage(ctx, cfg, channelID, al.text)
}

// sendAlarm is Stage A
func (a *Adapter) sendAlarm(ctx context.Context, cfg *Config, al alarm) error {
	query := url.Values{"accesskey": {cfg.AccessKey}}
	for k, v := range al.params() {
		query.Set(k, v)
	}

	res, err := a.Transport().Do(ctx, &http.Request{
		Method: "GET",
		URL:    cfg.BaseURL + al.endpoint(),
		Query:  query,
	})
	if err != nil {
		return withStage(err, stageAlarm)
	}
	if !res.Succeeded {
		return errors.ProviderRejectedError(res.StatusCode, res.Reason).WithContext("stage", stageAlarm)
	}

	a.Logger().Debug(fmt.Sprintf("Divera response: %d - %s", res.StatusCode, res.Reason))
	return nil
}

// fetchChannel is Stage B. It returns the message channel of the alarm just
// created.
func (a *Adapter) fetchChannel(ctx context.Context, cfg *Config) (interface{}, error) {
	res, err := a.Transport().Do(ctx, &http.Request{
		Method: "GET",
		URL:    cfg.BaseURL + "/api/last-alarm",
		Query:  url.Values{"accesskey": {cfg.AccessKey}},
	})
	if err != nil {
		return nil, withStage(err, stageLastAlarm)
	}
	if !res.Succeeded {
		return nil, errors.ProviderRejectedError(res.StatusCode, res.Reason).WithContext("stage", stageLastAlarm)
	}

	return parseChannelID(res.Body)
}

func parseChannelID(body []byte) (interface{}, error) {
	var payload map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.MalformedResponseError("cannot decode last-alarm response", err).WithContext("stage", stageLastAlarm)
	}

	switch id := payload["message_channel_id"].(type) {
	case json.Number:
		return id, nil
	case string:
		if id != "" {
			return id, nil
		}
	}
	return nil, errors.MalformedResponseError("last-alarm response has no message_channel_id", nil).WithContext("stage", stageLastAlarm)
}

type messagePayload struct {
	Message message `json:"Message"`
}

type message struct {
	MessageChannelID interface{} `json:"message_channel_id"`
	ParentID         int         `json:"parent_id"`
	Text             string      `json:"text"`
	Uploads          string      `json:"uploads"`
}

// postMessage is Stage C
func (a *Adapter) postMessage(ctx context.Context, cfg *Config, channelID interface{}, text string) error {
	res, err := a.Transport().Do(ctx, &http.Request{
		Method: "POST",
		URL:    cfg.BaseURL + "/api/v2/messages",
		Query:  url.Values{"accesskey": {cfg.MessageAccessKey}},
		JSON: messagePayload{Message: message{
			MessageChannelID: channelID,
			ParentID:         0,
			Text:             text,
			Uploads:          "Binary",
		}},
	})
	if err != nil {
		return withStage(err, stageMessage)
	}
	if !res.Succeeded {
		return errors.ProviderRejectedError(res.StatusCode, res.Reason).WithContext("stage", stageMessage)
	}

	a.Logger().Debug("Divera message posted", logging.Any("channel", channelID))
	return nil
}

func withStage(err error, stage string) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithContext("stage", stage)
	}
	return err
}
