package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
)

// ActivityModel is the GORM model for the booking_activity table. Rows are
// append-only; there is no update path.
type ActivityModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID       `gorm:"type:uuid;index;not null"`
	ActorID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Action    string          `gorm:"not null;size:64;index"`
	Metadata  json.RawMessage `gorm:"type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (ActivityModel) TableName() string {
	return "booking_activity"
}

// GormActivityRepository is the GORM-based implementation of ActivityRepository.
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository.
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Append durably stores one audit record.
func (r *GormActivityRepository) Append(ctx context.Context, activity *bookingDomain.Activity) error {
	metadata, err := json.Marshal(activity.Metadata())
	if err != nil {
		return fmt.Errorf("failed to marshal activity metadata: %w", err)
	}

	model := ActivityModel{
		ID:        activity.ID(),
		BookingID: activity.BookingID(),
		ActorID:   activity.ActorID(),
		Action:    string(activity.Action()),
		Metadata:  metadata,
		CreatedAt: activity.CreatedAt(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append booking activity: %w", err)
	}
	return nil
}

// FindByBookingID retrieves a booking's audit trail, oldest first.
func (r *GormActivityRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*bookingDomain.Activity, error) {
	var models []ActivityModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find booking activity: %w", err)
	}

	activities := make([]*bookingDomain.Activity, len(models))
	for i, m := range models {
		var metadata map[string]any
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity metadata: %w", err)
		}
		activities[i] = bookingDomain.ReconstructActivity(
			m.ID,
			m.BookingID,
			m.ActorID,
			bookingDomain.ActivityAction(m.Action),
			metadata,
			m.CreatedAt,
		)
	}
	return activities, nil
}
