package fcm

import (
	"context"

	fcmapi "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

// messageSender sends one message and returns the provider's message name
type messageSender interface {
	Send(ctx context.Context, msg *fcmapi.Message) (string, error)
}

type senderFactory func(ctx context.Context, projectID string, opts ...option.ClientOption) (messageSender, error)

// serviceSender sends through the FCM HTTP v1 API
type serviceSender struct {
	svc    *fcmapi.Service
	parent string
}

func newServiceSender(ctx context.Context, projectID string, opts ...option.ClientOption) (messageSender, error) {
	svc, err := fcmapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &serviceSender{svc: svc, parent: "projects/" + projectID}, nil
}

func (s *serviceSender) Send(ctx context.Context, msg *fcmapi.Message) (string, error) {
	resp, err := s.svc.Projects.Messages.Send(s.parent, &fcmapi.SendMessageRequest{Message: msg}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.Name, nil
}
