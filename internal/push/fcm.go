package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"medreminder/internal/model"
)

// messagingClient is the subset of *messaging.Client the transport uses.
type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM delivers through Firebase Cloud Messaging, one Send call per token.
//
// Tokens are registered by the web client (service worker) or the mobile
// apps; FCM routes each message to that one device even when the app is closed.
type FCM struct {
	client messagingClient
}

// NewFCM gets the messaging client from an initialised Firebase app.
func NewFCM(ctx context.Context, app *firebase.App) (*FCM, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}
	return &FCM{client: client}, nil
}

// Send delivers n to token. Unregistered tokens wrap ErrUnregistered.
func (f *FCM) Send(ctx context.Context, token string, n model.Notification) error {
	_, err := f.client.Send(ctx, buildFCMMessage(token, n))
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
			return fmt.Errorf("fcm send: %w: %v", ErrUnregistered, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

func buildFCMMessage(token string, n model.Notification) *messaging.Message {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high", // Ensures delivery even in battery-saving mode
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
		Data: n.Data,
	}

	if n.Icon != "" {
		msg.Webpush = &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Icon: n.Icon,
			},
		}
	}
	return msg
}
