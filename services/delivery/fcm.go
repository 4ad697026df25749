package delivery

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

const fcmSendTimeout = 10 * time.Second

// fcmNotificationKey is the data key the device app reads the message from.
const fcmNotificationKey = "NOTIFICATION"

// TokenSource resolves the current FCM registration token of a client. The
// token is refreshed by the device, so it is looked up per push.
type TokenSource interface {
	FCMToken(ctx context.Context, clientID string) (string, error)
}

// FCMBackend forwards notifications through Firebase Cloud Messaging. High
// priority messages reach the device even in doze mode; normal priority
// messages may be deferred by the OS.
type FCMBackend struct {
	clientID string
	client   *messaging.Client
	tokens   TokenSource
	log      *zap.Logger
}

func NewFCMBackend(clientID string, client *messaging.Client, tokens TokenSource, log *zap.Logger) *FCMBackend {
	return &FCMBackend{clientID: clientID, client: client, tokens: tokens, log: log}
}

func (b *FCMBackend) Forward(message string, highPriority bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), fcmSendTimeout)
	defer cancel()

	token, err := b.tokens.FCMToken(ctx, b.clientID)
	if err != nil {
		return fmt.Errorf("resolve FCM token for client %s: %w", b.clientID, err)
	}
	if token == "" {
		return fmt.Errorf("client %s has no FCM registration token", b.clientID)
	}

	priority := "normal"
	if highPriority {
		priority = "high"
	}
	msg := &messaging.Message{
		Token: token,
		Data:  map[string]string{fcmNotificationKey: message},
		Android: &messaging.AndroidConfig{
			Priority: priority,
		},
	}

	if _, err := b.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("send FCM message for client %s: %w", b.clientID, err)
	}
	b.log.Debug("push request sent to FCM",
		zap.String("clientId", b.clientID),
		zap.Bool("highPriority", highPriority))
	return nil
}
