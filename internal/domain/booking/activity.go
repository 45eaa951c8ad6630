package booking

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction identifies the kind of event an activity record captures.
type ActivityAction string

// ActionBookingRequested is recorded when a booking is created.
const ActionBookingRequested ActivityAction = "booking_requested"

// StatusChangedAction returns the activity action for a transition into the
// given status, e.g. "status_changed_paid".
func StatusChangedAction(to BookingStatus) ActivityAction {
	return ActivityAction("status_changed_" + string(to))
}

// Metadata keys used in activity records.
const (
	MetaFrom               = "from"
	MetaTo                 = "to"
	MetaNotes              = "notes"
	MetaTimezone           = "timezone"
	MetaHoldDays           = "hold_days"
	MetaAutoReleaseAt      = "auto_release_at"
	MetaHoldLookupError    = "hold_lookup_error"
	MetaCancellationReason = "cancellation_reason"
	MetaDisputeReason      = "dispute_reason"
)

// Activity is one immutable audit record for a booking event. Records are
// append-only: never updated, never deleted.
type Activity struct {
	id        uuid.UUID
	bookingID uuid.UUID
	actorID   uuid.UUID
	action    ActivityAction
	metadata  map[string]any
	createdAt time.Time
}

// NewActivity creates an audit record for the given booking event.
func NewActivity(bookingID, actorID uuid.UUID, action ActivityAction, metadata map[string]any) *Activity {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Activity{
		id:        uuid.New(),
		bookingID: bookingID,
		actorID:   actorID,
		action:    action,
		metadata:  metadata,
		createdAt: time.Now().UTC(),
	}
}

// ReconstructActivity rebuilds an Activity from persistence data.
func ReconstructActivity(id, bookingID, actorID uuid.UUID, action ActivityAction, metadata map[string]any, createdAt time.Time) *Activity {
	return &Activity{
		id:        id,
		bookingID: bookingID,
		actorID:   actorID,
		action:    action,
		metadata:  metadata,
		createdAt: createdAt,
	}
}

// ID returns the record's unique identifier.
func (a *Activity) ID() uuid.UUID { return a.id }

// BookingID returns the booking this record belongs to.
func (a *Activity) BookingID() uuid.UUID { return a.bookingID }

// ActorID returns the user who caused the event.
func (a *Activity) ActorID() uuid.UUID { return a.actorID }

// Action returns the recorded action.
func (a *Activity) Action() ActivityAction { return a.action }

// Metadata returns the structured snapshot captured with the event.
func (a *Activity) Metadata() map[string]any { return a.metadata }

// CreatedAt returns when the record was appended.
func (a *Activity) CreatedAt() time.Time { return a.createdAt }
