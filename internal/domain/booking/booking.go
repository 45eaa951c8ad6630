package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundbridge-live/service-bookings/internal/domain"
)

// BookingType indicates whether a booking targets a service offering or a venue rental.
type BookingType string

const (
	TypeService BookingType = "service"
	TypeVenue   BookingType = "venue"
)

// IsValid returns true if the booking type is recognized.
func (t BookingType) IsValid() bool {
	return t == TypeService || t == TypeVenue
}

// Default reason text applied when a cancellation or dispute carries no notes.
const (
	defaultCancellationReason = "Booking cancelled"
	defaultDisputeReason      = "Booking disputed"
)

// Booking is the aggregate root for the service-booking domain. A booking
// references exactly one of a service offering or a venue; legacy rows with
// neither are treated as service bookings.
type Booking struct {
	id                uuid.UUID
	providerID        uuid.UUID
	bookerID          uuid.UUID
	bookingType       BookingType
	serviceOfferingID *uuid.UUID
	venueID           *uuid.UUID

	scheduledStart *time.Time
	scheduledEnd   *time.Time
	timezone       string

	totalAmount    int64
	currency       string
	platformFee    int64
	providerPayout int64

	status BookingStatus

	confirmedAt   *time.Time
	paidAt        *time.Time
	completedAt   *time.Time
	cancelledAt   *time.Time
	disputedAt    *time.Time
	autoReleaseAt *time.Time

	bookingNotes       string
	cancellationReason string
	disputeReason      string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking aggregate with status=pending.
func NewBooking(
	providerID uuid.UUID,
	bookerID uuid.UUID,
	bookingType BookingType,
	serviceOfferingID *uuid.UUID,
	venueID *uuid.UUID,
	scheduledStart time.Time,
	scheduledEnd time.Time,
	timezone string,
	totalAmount int64,
	currency string,
	fees FeeBreakdown,
	notes string,
) (*Booking, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if bookerID == uuid.Nil {
		return nil, domain.NewValidationError("booker ID is required")
	}
	if !bookingType.IsValid() {
		return nil, domain.NewValidationError("booking type must be either \"service\" or \"venue\"")
	}
	if bookingType == TypeService && serviceOfferingID == nil {
		return nil, domain.NewValidationError("service bookings require a service offering reference")
	}
	if bookingType == TypeVenue && venueID == nil {
		return nil, domain.NewValidationError("venue bookings require a venue reference")
	}
	if serviceOfferingID != nil && venueID != nil {
		return nil, domain.NewValidationError("a booking cannot reference both a service offering and a venue")
	}
	if scheduledStart.IsZero() || scheduledEnd.IsZero() {
		return nil, domain.NewValidationError("scheduled start and end are required")
	}
	if !scheduledEnd.After(scheduledStart) {
		return nil, domain.NewValidationError("scheduled end must be after scheduled start")
	}
	if totalAmount <= 0 {
		return nil, domain.NewValidationError("total amount must be positive")
	}
	if currency == "" {
		return nil, domain.NewValidationError("currency is required")
	}

	start := scheduledStart.UTC()
	end := scheduledEnd.UTC()
	now := time.Now().UTC()
	return &Booking{
		id:                uuid.New(),
		providerID:        providerID,
		bookerID:          bookerID,
		bookingType:       bookingType,
		serviceOfferingID: serviceOfferingID,
		venueID:           venueID,
		scheduledStart:    &start,
		scheduledEnd:      &end,
		timezone:          timezone,
		totalAmount:       totalAmount,
		currency:          currency,
		platformFee:       fees.PlatformFee,
		providerPayout:    fees.ProviderPayout,
		status:            StatusPending,
		bookingNotes:      notes,
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	providerID uuid.UUID,
	bookerID uuid.UUID,
	bookingType BookingType,
	serviceOfferingID *uuid.UUID,
	venueID *uuid.UUID,
	scheduledStart *time.Time,
	scheduledEnd *time.Time,
	timezone string,
	totalAmount int64,
	currency string,
	platformFee int64,
	providerPayout int64,
	status BookingStatus,
	confirmedAt *time.Time,
	paidAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	disputedAt *time.Time,
	autoReleaseAt *time.Time,
	bookingNotes string,
	cancellationReason string,
	disputeReason string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	// Legacy rows persisted before the venue feature carry neither reference.
	if !bookingType.IsValid() {
		bookingType = TypeService
	}
	return &Booking{
		id:                 id,
		providerID:         providerID,
		bookerID:           bookerID,
		bookingType:        bookingType,
		serviceOfferingID:  serviceOfferingID,
		venueID:            venueID,
		scheduledStart:     scheduledStart,
		scheduledEnd:       scheduledEnd,
		timezone:           timezone,
		totalAmount:        totalAmount,
		currency:           currency,
		platformFee:        platformFee,
		providerPayout:     providerPayout,
		status:             status,
		confirmedAt:        confirmedAt,
		paidAt:             paidAt,
		completedAt:        completedAt,
		cancelledAt:        cancelledAt,
		disputedAt:         disputedAt,
		autoReleaseAt:      autoReleaseAt,
		bookingNotes:       bookingNotes,
		cancellationReason: cancellationReason,
		disputeReason:      disputeReason,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// ProviderID returns the service provider's user ID.
func (b *Booking) ProviderID() uuid.UUID { return b.providerID }

// BookerID returns the booker's user ID.
func (b *Booking) BookerID() uuid.UUID { return b.bookerID }

// Type returns whether the booking targets a service offering or a venue.
func (b *Booking) Type() BookingType { return b.bookingType }

// ServiceOfferingID returns the referenced service offering, or nil.
func (b *Booking) ServiceOfferingID() *uuid.UUID { return b.serviceOfferingID }

// VenueID returns the referenced venue, or nil.
func (b *Booking) VenueID() *uuid.UUID { return b.venueID }

// ScheduledStart returns the scheduled start instant, or nil on legacy rows.
func (b *Booking) ScheduledStart() *time.Time { return b.scheduledStart }

// ScheduledEnd returns the scheduled end instant, or nil on legacy rows.
func (b *Booking) ScheduledEnd() *time.Time { return b.scheduledEnd }

// Timezone returns the booker-facing IANA timezone identifier. Informational
// only; all instants are stored in absolute time.
func (b *Booking) Timezone() string { return b.timezone }

// TotalAmount returns the total amount in the smallest currency unit.
func (b *Booking) TotalAmount() int64 { return b.totalAmount }

// Currency returns the ISO 4217 currency code.
func (b *Booking) Currency() string { return b.currency }

// PlatformFee returns the platform's share of the total amount.
func (b *Booking) PlatformFee() int64 { return b.platformFee }

// ProviderPayout returns the provider's share of the total amount.
func (b *Booking) ProviderPayout() int64 { return b.providerPayout }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// ConfirmedAt returns when the booking was confirmed, or nil.
func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }

// PaidAt returns when the booking was paid, or nil.
func (b *Booking) PaidAt() *time.Time { return b.paidAt }

// CompletedAt returns when the booking was completed, or nil.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns when the booking was cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// DisputedAt returns when the booking was disputed, or nil.
func (b *Booking) DisputedAt() *time.Time { return b.disputedAt }

// AutoReleaseAt returns the escrow auto-release deadline, or nil if the
// booking has not entered the paid state.
func (b *Booking) AutoReleaseAt() *time.Time { return b.autoReleaseAt }

// Notes returns the free-text booking notes.
func (b *Booking) Notes() string { return b.bookingNotes }

// CancellationReason returns the cancellation reason, if any.
func (b *Booking) CancellationReason() string { return b.cancellationReason }

// DisputeReason returns the dispute reason, if any.
func (b *Booking) DisputeReason() string { return b.disputeReason }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// IsParticipant reports whether the given user is the booking's provider or booker.
func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.providerID == userID || b.bookerID == userID
}

// --- Behavior ---

// EnsureTransition returns nil if the requested status is reachable from the
// current status, a finalized error if the booking is in a terminal state, or
// an invalid-transition error carrying both states otherwise.
func (b *Booking) EnsureTransition(target BookingStatus) error {
	if b.status.IsTerminal() {
		return domain.NewFinalizedError(string(b.status))
	}
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidTransitionError(string(b.status), string(target))
	}
	return nil
}

// Rerequest applies the idempotent pending -> pending self-transition.
func (b *Booking) Rerequest() error {
	if err := b.EnsureTransition(StatusPending); err != nil {
		return err
	}
	b.touch()
	return nil
}

// Confirm transitions the booking into confirmed_awaiting_payment. A repeated
// confirmation is accepted but does not refresh confirmedAt.
func (b *Booking) Confirm() error {
	if err := b.EnsureTransition(StatusConfirmedAwaitingPayment); err != nil {
		return err
	}
	if b.status == StatusConfirmedAwaitingPayment {
		b.touch()
		return nil
	}
	now := time.Now().UTC()
	b.status = StatusConfirmedAwaitingPayment
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

// MarkPaid transitions the booking into paid and records the escrow
// auto-release deadline. A repeated payment confirmation is accepted but
// does not refresh paidAt or the release deadline.
func (b *Booking) MarkPaid(autoReleaseAt time.Time) error {
	if err := b.EnsureTransition(StatusPaid); err != nil {
		return err
	}
	if b.status == StatusPaid {
		b.touch()
		return nil
	}
	now := time.Now().UTC()
	release := autoReleaseAt.UTC()
	b.status = StatusPaid
	b.paidAt = &now
	b.autoReleaseAt = &release
	b.updatedAt = now
	return nil
}

// Complete transitions the booking from paid to completed.
func (b *Booking) Complete() error {
	if err := b.EnsureTransition(StatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	b.status = StatusCompleted
	b.completedAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking into cancelled with the given reason,
// falling back to any previously recorded reason, then a generic one.
func (b *Booking) Cancel(reason string) error {
	if err := b.EnsureTransition(StatusCancelled); err != nil {
		return err
	}
	if reason == "" {
		reason = b.cancellationReason
	}
	if reason == "" {
		reason = defaultCancellationReason
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancellationReason = reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// Dispute transitions the booking from paid to disputed with the given reason,
// falling back to any previously recorded reason, then a generic one.
func (b *Booking) Dispute(reason string) error {
	if err := b.EnsureTransition(StatusDisputed); err != nil {
		return err
	}
	if reason == "" {
		reason = b.disputeReason
	}
	if reason == "" {
		reason = defaultDisputeReason
	}
	now := time.Now().UTC()
	b.status = StatusDisputed
	b.disputeReason = reason
	b.disputedAt = &now
	b.updatedAt = now
	return nil
}

// SetNotes overwrites the booking notes. Notes changes are independent of the
// state machine and always permitted alongside any legal transition.
func (b *Booking) SetNotes(notes string) {
	b.bookingNotes = notes
	b.touch()
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.touch()
}

func (b *Booking) touch() {
	b.updatedAt = time.Now().UTC()
}
