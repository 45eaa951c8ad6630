package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByProviderID retrieves a provider's bookings ordered by scheduled
	// start ascending.
	FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*Booking, error)

	// FindByBookerID retrieves a booker's bookings ordered by creation time
	// descending, optionally filtered to the given statuses.
	FindByBookerID(ctx context.Context, bookerID uuid.UUID, statuses []BookingStatus) ([]*Booking, error)

	// CountCompletedByProvider returns the provider's completed-booking count.
	CountCompletedByProvider(ctx context.Context, providerID uuid.UUID) (int64, error)

	// CountByStatus returns booking counts grouped by status (ops).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}

// ActivityRepository defines the persistence contract for the append-only
// booking audit trail.
type ActivityRepository interface {
	// Append durably stores one audit record.
	Append(ctx context.Context, activity *Activity) error

	// FindByBookingID retrieves a booking's audit trail, oldest first.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*Activity, error)
}

// SummaryRepository supplies the read-only display projections joined onto
// booking responses. Summaries are assembled at response time, never stored
// on the booking.
type SummaryRepository interface {
	BookerSummary(ctx context.Context, userID uuid.UUID) (*BookerSummary, error)
	OfferingSummary(ctx context.Context, offeringID uuid.UUID) (*OfferingSummary, error)
	VenueSummary(ctx context.Context, venueID uuid.UUID) (*VenueSummary, error)
}
