package events

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies this service in CloudEvent envelopes.
const Source = "service-bookings"

// Kafka topics owned by the booking service.
const (
	// TopicBookingEvents carries domain facts for other services
	// (payments, analytics, the payout job).
	TopicBookingEvents = "booking.events"

	// TopicBookingNotifications is the queue consumed by the notification
	// worker to produce user-facing email/push messages.
	TopicBookingNotifications = "booking.notifications"
)

// Event types published to TopicBookingEvents.
const (
	BookingRequested = "booking.requested"
	BookingConfirmed = "booking.confirmed"
	BookingPaid      = "booking.paid"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
	BookingDisputed  = "booking.disputed"
)

// NotificationQueued is the event type published to TopicBookingNotifications.
const NotificationQueued = "booking.notification.queued"

// Notification kinds understood by the notification worker.
const (
	NotifyBookingRequest   = "booking_request"
	NotifyBookingConfirmed = "booking_confirmed"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyBookingDisputed  = "booking_disputed"
)

// BookingStatusEvent is the payload for all TopicBookingEvents facts.
type BookingStatusEvent struct {
	BookingID      uuid.UUID  `json:"booking_id"`
	ProviderID     uuid.UUID  `json:"provider_id"`
	BookerID       uuid.UUID  `json:"booker_id"`
	FromStatus     string     `json:"from_status,omitempty"`
	Status         string     `json:"status"`
	TotalAmount    int64      `json:"total_amount"`
	Currency       string     `json:"currency"`
	PlatformFee    int64      `json:"platform_fee"`
	ProviderPayout int64      `json:"provider_payout"`
	AutoReleaseAt  *time.Time `json:"auto_release_at,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// NotificationEvent is the payload queued for the notification worker.
type NotificationEvent struct {
	Kind       string    `json:"kind"`
	BookingID  uuid.UUID `json:"booking_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	BookerID   uuid.UUID `json:"booker_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
