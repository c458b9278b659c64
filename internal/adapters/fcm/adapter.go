// Package fcm publishes POCSAG alarms as Firebase Cloud Messaging data
// messages to a topic.
package fcm

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	fcmapi "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"alarm-relay/internal/adapters"
	"alarm-relay/internal/adapters/base"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/models"
)

// Name is the registry name and settings section of this adapter
const Name = "fcm"

// DefaultTopic receives every alarm unless the topic setting overrides it
const DefaultTopic = "alarm"

// Adapter is the push notification adapter. The sender is created once in
// OnLoad and only read afterwards.
type Adapter struct {
	*base.Adapter

	newSender senderFactory
	sender    messageSender
}

// New creates the adapter
func New(deps adapters.Dependencies) (adapters.Adapter, error) {
	b, err := base.New(Name, Name, deps)
	if err != nil {
		return nil, err
	}
	return &Adapter{Adapter: b, newSender: newServiceSender}, nil
}

// Factory returns the registry factory for this adapter
func Factory() adapters.Factory {
	return adapters.NewFactory(Name, New)
}

// OnLoad reads the service account file and builds the FCM client. Without
// an fcm section the adapter stays idle.
func (a *Adapter) OnLoad(ctx context.Context) error {
	if !a.CheckConfig() {
		return nil
	}

	path, err := a.Get("certificatepath")
	if err != nil {
		return errors.FatalInitError("fcm certificate path not configured", err)
	}
	a.Logger().Debug("Loading FCM credentials", logging.String("certificatepath", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.FatalInitError("cannot read fcm certificate", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, fcmapi.FirebaseMessagingScope)
	if err != nil {
		return errors.FatalInitError("invalid fcm certificate", err)
	}
	if creds.ProjectID == "" {
		return errors.FatalInitError("fcm certificate has no project_id", nil)
	}

	opts := []option.ClientOption{option.WithCredentials(creds)}
	if endpoint := a.Settings().GetOptional(a.Section(), "endpoint"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	sender, err := a.newSender(ctx, creds.ProjectID, opts...)
	if err != nil {
		return errors.FatalInitError("cannot create fcm client", err)
	}
	a.sender = sender
	return nil
}

// Run publishes event to the configured topic
func (a *Adapter) Run(ctx context.Context, kind models.Kind, frequency string, event models.AlarmEvent) {
	a.Guard(ctx, kind, func() error {
		return a.run(ctx, kind, event)
	})
}

func (a *Adapter) run(ctx context.Context, kind models.Kind, event models.AlarmEvent) error {
	if !a.CheckConfig() {
		return nil
	}
	if kind != models.KindPOC {
		return errors.UnsupportedKindError(string(kind))
	}
	if a.sender == nil {
		return errors.InternalError("fcm client not initialized", nil)
	}

	msg := buildMessage(event, a.Settings().GetDefault(a.Section(), "topic", DefaultTopic))
	id, err := a.sender.Send(ctx, msg)
	if err != nil {
		return classify(ctx, err)
	}

	a.Logger().Info("FCM Message sent", logging.String("message_id", id), logging.String("topic", msg.Topic))
	return nil
}

func buildMessage(event models.AlarmEvent, topic string) *fcmapi.Message {
	return &fcmapi.Message{
		Data: map[string]string{
			"ric":      event.RIC,
			"function": event.Function,
			"message":  event.Msg,
		},
		Android: &fcmapi.AndroidConfig{Priority: "HIGH"},
		Topic:   topic,
	}
}

func classify(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		reason := apiErr.Message
		if reason == "" {
			reason = http.StatusText(apiErr.Code)
		}
		return errors.ProviderRejectedError(apiErr.Code, reason)
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.TimeoutError("fcm send")
	}
	return errors.ConnectionError("fcm send failed", err)
}
