package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
	"github.com/soundbridge-live/service-bookings/internal/kafka"
)

// Dispatcher enqueues user-facing booking notifications. Dispatch happens
// after the durable write; a failed dispatch is logged by the caller and never
// rolls back the status change.
type Dispatcher interface {
	QueueBookingRequested(ctx context.Context, b *bookingDomain.Booking) error
	QueueBookingConfirmed(ctx context.Context, b *bookingDomain.Booking) error
	QueueBookingCancelled(ctx context.Context, b *bookingDomain.Booking, reason string) error
	QueueBookingDisputed(ctx context.Context, b *bookingDomain.Booking, reason string) error
}

// KafkaDispatcher publishes notification events to the notifications topic.
type KafkaDispatcher struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

// NewKafkaDispatcher creates a KafkaDispatcher publishing to the given topic.
func NewKafkaDispatcher(producer *kafka.Producer, topic string, logger *zap.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic, logger: logger}
}

// QueueBookingRequested enqueues the new-request notification pair.
func (d *KafkaDispatcher) QueueBookingRequested(ctx context.Context, b *bookingDomain.Booking) error {
	return d.queue(ctx, b, NotifyBookingRequest, "")
}

// QueueBookingConfirmed enqueues the confirmation notification pair.
func (d *KafkaDispatcher) QueueBookingConfirmed(ctx context.Context, b *bookingDomain.Booking) error {
	return d.queue(ctx, b, NotifyBookingConfirmed, "")
}

// QueueBookingCancelled enqueues the cancellation notification pair.
func (d *KafkaDispatcher) QueueBookingCancelled(ctx context.Context, b *bookingDomain.Booking, reason string) error {
	return d.queue(ctx, b, NotifyBookingCancelled, reason)
}

// QueueBookingDisputed enqueues the dispute notification set.
func (d *KafkaDispatcher) QueueBookingDisputed(ctx context.Context, b *bookingDomain.Booking, reason string) error {
	return d.queue(ctx, b, NotifyBookingDisputed, reason)
}

func (d *KafkaDispatcher) queue(ctx context.Context, b *bookingDomain.Booking, kind, reason string) error {
	evt := NotificationEvent{
		Kind:       kind,
		BookingID:  b.ID(),
		ProviderID: b.ProviderID(),
		BookerID:   b.BookerID(),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	ce, err := kafka.NewCloudEvent(Source, NotificationQueued, evt)
	if err != nil {
		return err
	}
	return d.producer.PublishEventWithKey(ctx, d.topic, b.ID().String(), ce)
}
