package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbridge-live/service-bookings/internal/domain"
	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
)

// BookingModel is the GORM model for the service_bookings table.
type BookingModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProviderID        uuid.UUID  `gorm:"type:uuid;index;not null"`
	BookerID          uuid.UUID  `gorm:"type:uuid;index;not null"`
	BookingType       string     `gorm:"not null;size:10;default:'service'"`
	ServiceOfferingID *uuid.UUID `gorm:"type:uuid;index"`
	VenueID           *uuid.UUID `gorm:"type:uuid;index"`

	ScheduledStart *time.Time `gorm:"index"`
	ScheduledEnd   *time.Time `gorm:""`
	Timezone       string     `gorm:"size:64"`

	TotalAmount    int64  `gorm:"not null"`
	Currency       string `gorm:"not null;size:3"`
	PlatformFee    int64  `gorm:"not null"`
	ProviderPayout int64  `gorm:"not null"`

	Status string `gorm:"not null;size:30;index"`

	ConfirmedAt   *time.Time `gorm:""`
	PaidAt        *time.Time `gorm:""`
	CompletedAt   *time.Time `gorm:""`
	CancelledAt   *time.Time `gorm:""`
	DisputedAt    *time.Time `gorm:""`
	AutoReleaseAt *time.Time `gorm:"index"`

	BookingNotes       string `gorm:"size:2000"`
	CancellationReason string `gorm:"size:500"`
	DisputeReason      string `gorm:"size:500"`

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "service_bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByProviderID retrieves a provider's bookings ordered by scheduled start ascending.
func (r *GormBookingRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("scheduled_start ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find provider bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindByBookerID retrieves a booker's bookings ordered by creation time
// descending, optionally filtered by status.
func (r *GormBookingRepository) FindByBookerID(ctx context.Context, bookerID uuid.UUID, statuses []bookingDomain.BookingStatus) ([]*bookingDomain.Booking, error) {
	query := r.db.WithContext(ctx).
		Where("booker_id = ?", bookerID).
		Order("created_at DESC")
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query = query.Where("status IN ?", values)
	}

	var models []BookingModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find booker bookings: %w", err)
	}
	return toDomainBookings(models)
}

// CountCompletedByProvider returns the provider's completed-booking count.
func (r *GormBookingRepository) CountCompletedByProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("provider_id = ? AND status = ?", providerID, string(bookingDomain.StatusCompleted)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completed bookings: %w", err)
	}
	return count, nil
}

// CountByStatus returns booking counts grouped by status (ops).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// Optimistic locking: only update if the version matches (current version - 1
	// since IncrementVersion was called before persisting).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"confirmed_at":        model.ConfirmedAt,
			"paid_at":             model.PaidAt,
			"completed_at":        model.CompletedAt,
			"cancelled_at":        model.CancelledAt,
			"disputed_at":         model.DisputedAt,
			"auto_release_at":     model.AutoReleaseAt,
			"booking_notes":       model.BookingNotes,
			"cancellation_reason": model.CancellationReason,
			"dispute_reason":      model.DisputeReason,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:                 bk.ID(),
		ProviderID:         bk.ProviderID(),
		BookerID:           bk.BookerID(),
		BookingType:        string(bk.Type()),
		ServiceOfferingID:  bk.ServiceOfferingID(),
		VenueID:            bk.VenueID(),
		ScheduledStart:     bk.ScheduledStart(),
		ScheduledEnd:       bk.ScheduledEnd(),
		Timezone:           bk.Timezone(),
		TotalAmount:        bk.TotalAmount(),
		Currency:           bk.Currency(),
		PlatformFee:        bk.PlatformFee(),
		ProviderPayout:     bk.ProviderPayout(),
		Status:             string(bk.Status()),
		ConfirmedAt:        bk.ConfirmedAt(),
		PaidAt:             bk.PaidAt(),
		CompletedAt:        bk.CompletedAt(),
		CancelledAt:        bk.CancelledAt(),
		DisputedAt:         bk.DisputedAt(),
		AutoReleaseAt:      bk.AutoReleaseAt(),
		BookingNotes:       bk.Notes(),
		CancellationReason: bk.CancellationReason(),
		DisputeReason:      bk.DisputeReason(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.ProviderID,
		m.BookerID,
		bookingDomain.BookingType(m.BookingType),
		m.ServiceOfferingID,
		m.VenueID,
		m.ScheduledStart,
		m.ScheduledEnd,
		m.Timezone,
		m.TotalAmount,
		m.Currency,
		m.PlatformFee,
		m.ProviderPayout,
		status,
		m.ConfirmedAt,
		m.PaidAt,
		m.CompletedAt,
		m.CancelledAt,
		m.DisputedAt,
		m.AutoReleaseAt,
		m.BookingNotes,
		m.CancellationReason,
		m.DisputeReason,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
