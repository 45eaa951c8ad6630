package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/soundbridge-live/service-bookings/internal/kafka"
)

// Notifier delivers one queued booking notification to its recipients.
// The production implementation talks to the email/push gateway; delivery
// itself is outside this service.
type Notifier interface {
	Notify(ctx context.Context, evt NotificationEvent) error
}

// LogNotifier records notifications in the service log instead of delivering
// them. Used in development and as the default when no gateway is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, evt NotificationEvent) error {
	n.logger.Info("booking notification",
		zap.String("kind", evt.Kind),
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("provider_id", evt.ProviderID.String()),
		zap.String("booker_id", evt.BookerID.String()),
		zap.String("reason", evt.Reason),
	)
	return nil
}

// NotificationWorker consumes the notifications topic and hands each queued
// notification to a Notifier.
type NotificationWorker struct {
	consumer *kafka.Consumer
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationWorker creates a NotificationWorker.
func NewNotificationWorker(
	brokers []string,
	groupID string,
	topic string,
	notifier Notifier,
	logger *zap.Logger,
) *NotificationWorker {
	consumer := kafka.NewConsumer(brokers, groupID, topic, logger)
	return &NotificationWorker{
		consumer: consumer,
		notifier: notifier,
		logger:   logger,
	}
}

// Start begins consuming notification events. This blocks until the context
// is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (w *NotificationWorker) Close() error {
	return w.consumer.Close()
}

func (w *NotificationWorker) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		w.logger.Error("failed to parse cloud event from notifications topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	if ce.Type != NotificationQueued {
		w.logger.Debug("ignoring unhandled notification event type",
			zap.String("type", ce.Type),
		)
		return nil
	}

	var evt NotificationEvent
	if err := ce.ParseData(&evt); err != nil {
		w.logger.Error("failed to parse notification event data", zap.Error(err))
		return nil // Don't retry malformed data
	}

	if err := w.notifier.Notify(ctx, evt); err != nil {
		w.logger.Error("failed to deliver booking notification",
			zap.String("kind", evt.Kind),
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
