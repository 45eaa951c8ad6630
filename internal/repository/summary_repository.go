package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbridge-live/service-bookings/internal/domain"
	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
)

// ProfileModel is the read-only GORM model for the profiles table, owned by
// the identity service. Only the display columns used for hydration are mapped.
type ProfileModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName string    `gorm:"size:120"`
	Username    string    `gorm:"size:60"`
	AvatarURL   string    `gorm:"size:500"`
}

// TableName returns the table name for the GORM model.
func (ProfileModel) TableName() string {
	return "profiles"
}

// OfferingModel is the read-only GORM model for the service_offerings table.
type OfferingModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string    `gorm:"size:200"`
	Category     string    `gorm:"size:60"`
	RateAmount   int64     `gorm:""`
	RateCurrency string    `gorm:"size:3"`
	RateUnit     string    `gorm:"size:20"`
}

// TableName returns the table name for the GORM model.
func (OfferingModel) TableName() string {
	return "service_offerings"
}

// VenueModel is the read-only GORM model for the venues table.
type VenueModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name    string    `gorm:"size:200"`
	Address string    `gorm:"size:500"`
}

// TableName returns the table name for the GORM model.
func (VenueModel) TableName() string {
	return "venues"
}

// GormSummaryRepository is the GORM-based implementation of SummaryRepository.
type GormSummaryRepository struct {
	db *gorm.DB
}

// NewGormSummaryRepository creates a new GormSummaryRepository.
func NewGormSummaryRepository(db *gorm.DB) *GormSummaryRepository {
	return &GormSummaryRepository{db: db}
}

// BookerSummary retrieves the display projection for a booker profile.
func (r *GormSummaryRepository) BookerSummary(ctx context.Context, userID uuid.UUID) (*bookingDomain.BookerSummary, error) {
	var model ProfileModel
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("profile", userID.String())
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &bookingDomain.BookerSummary{
		ID:          model.ID,
		DisplayName: model.DisplayName,
		Username:    model.Username,
		AvatarURL:   model.AvatarURL,
	}, nil
}

// OfferingSummary retrieves the display projection for a service offering.
func (r *GormSummaryRepository) OfferingSummary(ctx context.Context, offeringID uuid.UUID) (*bookingDomain.OfferingSummary, error) {
	var model OfferingModel
	if err := r.db.WithContext(ctx).Where("id = ?", offeringID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("service offering", offeringID.String())
		}
		return nil, fmt.Errorf("failed to find service offering: %w", err)
	}
	return &bookingDomain.OfferingSummary{
		ID:           model.ID,
		Title:        model.Title,
		Category:     model.Category,
		RateAmount:   model.RateAmount,
		RateCurrency: model.RateCurrency,
		RateUnit:     model.RateUnit,
	}, nil
}

// VenueSummary retrieves the display projection for a venue.
func (r *GormSummaryRepository) VenueSummary(ctx context.Context, venueID uuid.UUID) (*bookingDomain.VenueSummary, error) {
	var model VenueModel
	if err := r.db.WithContext(ctx).Where("id = ?", venueID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("venue", venueID.String())
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}
	return &bookingDomain.VenueSummary{
		ID:      model.ID,
		Name:    model.Name,
		Address: model.Address,
	}, nil
}
