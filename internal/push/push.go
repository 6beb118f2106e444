// Package push delivers notifications to a single endpoint token.
package push

import (
	"context"
	"errors"
	"strings"

	"medreminder/internal/model"
)

var (
	// ErrUnregistered means the token is invalid or expired and will never succeed again.
	ErrUnregistered = errors.New("endpoint not registered")
	// ErrNoTransport means no configured transport accepts the token's shape.
	ErrNoTransport = errors.New("no transport for endpoint")
)

// Transport sends one notification to one endpoint.
type Transport interface {
	Send(ctx context.Context, token string, n model.Notification) error
}

// IsExpoToken reports whether token was issued by Expo rather than FCM.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// Router sends Expo-shaped tokens through Expo and everything else through FCM.
type Router struct {
	FCM  Transport
	Expo Transport
}

func (r *Router) Send(ctx context.Context, token string, n model.Notification) error {
	if IsExpoToken(token) {
		if r.Expo == nil {
			return ErrNoTransport
		}
		return r.Expo.Send(ctx, token, n)
	}
	if r.FCM == nil {
		return ErrNoTransport
	}
	return r.FCM.Send(ctx, token, n)
}
