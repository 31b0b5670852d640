// README: FCM topic notifier announcing offer decisions to subscribed clients.
package offer

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// Notifier tells other clients that an offer changed hands. Best-effort.
type Notifier interface {
	OfferResolved(ctx context.Context, o *Offer, operation string) error
}

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMNotifier struct {
	client messageSender
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

// TopicFor is the FCM topic every client showing ride id subscribes to.
func TopicFor(o *Offer) string {
	return "ride_" + string(o.ID)
}

func (n *FCMNotifier) OfferResolved(ctx context.Context, o *Offer, operation string) error {
	msg := &messaging.Message{
		Topic: TopicFor(o),
		Data: map[string]string{
			"type":      "offer_" + operation,
			"ride_id":   string(o.ID),
			"status":    string(o.Status),
			"driver_id": string(o.DriverID),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	if _, err := n.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send for ride %s: %w", o.ID, err)
	}
	return nil
}
