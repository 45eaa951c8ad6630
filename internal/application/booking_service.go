package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundbridge-live/service-bookings/internal/domain"
	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
	"github.com/soundbridge-live/service-bookings/internal/events"
	"github.com/soundbridge-live/service-bookings/internal/kafka"
)

// maxUpdateAttempts bounds the optimistic-lock retry loop in UpdateStatus.
const maxUpdateAttempts = 3

// EventPublisher publishes CloudEvents to a topic. Satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	ProviderID        uuid.UUID  `json:"provider_id" binding:"required"`
	BookerID          uuid.UUID  `json:"booker_id"`
	BookingType       string     `json:"booking_type" binding:"required"`
	ServiceOfferingID *uuid.UUID `json:"service_offering_id"`
	VenueID           *uuid.UUID `json:"venue_id"`
	ScheduledStart    time.Time  `json:"scheduled_start" binding:"required"`
	ScheduledEnd      time.Time  `json:"scheduled_end" binding:"required"`
	Timezone          string     `json:"timezone"`
	TotalAmount       int64      `json:"total_amount" binding:"required"`
	Currency          string     `json:"currency" binding:"required"`
	BookingNotes      string     `json:"booking_notes"`
}

// UpdateStatusRequest holds the data for a status transition request. Notes is
// a pointer so absent and empty are distinguishable: when present it always
// overwrites the booking notes, whatever transition is requested.
type UpdateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// BookingDTO is the response representation of a booking, optionally hydrated
// with read-only display projections.
type BookingDTO struct {
	ID                 uuid.UUID  `json:"id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	BookerID           uuid.UUID  `json:"booker_id"`
	BookingType        string     `json:"booking_type"`
	ServiceOfferingID  *uuid.UUID `json:"service_offering_id,omitempty"`
	VenueID            *uuid.UUID `json:"venue_id,omitempty"`
	ScheduledStart     *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd       *time.Time `json:"scheduled_end,omitempty"`
	Timezone           string     `json:"timezone,omitempty"`
	TotalAmount        int64      `json:"total_amount"`
	Currency           string     `json:"currency"`
	PlatformFee        int64      `json:"platform_fee"`
	ProviderPayout     int64      `json:"provider_payout"`
	Status             string     `json:"status"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	DisputedAt         *time.Time `json:"disputed_at,omitempty"`
	AutoReleaseAt      *time.Time `json:"auto_release_at,omitempty"`
	BookingNotes       string     `json:"booking_notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	DisputeReason      string     `json:"dispute_reason,omitempty"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Booker   *bookingDomain.BookerSummary   `json:"booker,omitempty"`
	Offering *bookingDomain.OfferingSummary `json:"offering,omitempty"`
	Venue    *bookingDomain.VenueSummary    `json:"venue,omitempty"`
}

// ActivityDTO is the response representation of one audit record.
type ActivityDTO struct {
	ID        uuid.UUID      `json:"id"`
	BookingID uuid.UUID      `json:"booking_id"`
	ActorID   uuid.UUID      `json:"actor_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// BookingStatsDTO holds booking counts grouped by status (ops).
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// BookingService orchestrates the booking lifecycle: validation, fee
// computation, the transition state machine, escrow hold scheduling, durable
// persistence, audit logging, and best-effort notifications.
type BookingService struct {
	repo        bookingDomain.BookingRepository
	activities  bookingDomain.ActivityRepository
	summaries   bookingDomain.SummaryRepository
	fees        bookingDomain.FeePolicy
	hold        bookingDomain.HoldPolicy
	dispatcher  events.Dispatcher
	publisher   EventPublisher
	eventsTopic string
	logger      *zap.Logger
}

// NewBookingService creates a new BookingService. An empty eventsTopic falls
// back to the default booking-events topic.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	activities bookingDomain.ActivityRepository,
	summaries bookingDomain.SummaryRepository,
	fees bookingDomain.FeePolicy,
	hold bookingDomain.HoldPolicy,
	dispatcher events.Dispatcher,
	publisher EventPublisher,
	eventsTopic string,
	logger *zap.Logger,
) *BookingService {
	if eventsTopic == "" {
		eventsTopic = events.TopicBookingEvents
	}
	return &BookingService{
		repo:        repo,
		activities:  activities,
		summaries:   summaries,
		fees:        fees,
		hold:        hold,
		dispatcher:  dispatcher,
		publisher:   publisher,
		eventsTopic: eventsTopic,
		logger:      logger,
	}
}

// RequestBooking creates a booking in pending state for the given provider.
// The actor becomes the booker unless the request names one explicitly.
func (s *BookingService) RequestBooking(ctx context.Context, actorID, providerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	if req.ProviderID != providerID {
		return nil, domain.NewValidationError("provider ID mismatch with URL parameter")
	}

	bookerID := req.BookerID
	if bookerID == uuid.Nil {
		bookerID = actorID
	}

	bookingType := bookingDomain.BookingType(req.BookingType)
	serviceCategory := s.lookupServiceCategory(ctx, bookingType, req.ServiceOfferingID)

	fees, err := s.fees.Calculate(req.TotalAmount, bookingType, serviceCategory)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		providerID,
		bookerID,
		bookingType,
		req.ServiceOfferingID,
		req.VenueID,
		req.ScheduledStart,
		req.ScheduledEnd,
		req.Timezone,
		req.TotalAmount,
		req.Currency,
		fees,
		req.BookingNotes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, bk.ID(), actorID, bookingDomain.ActionBookingRequested, map[string]any{
		bookingDomain.MetaTimezone: req.Timezone,
	})

	s.publishBookingEvent(ctx, bk, "", events.BookingRequested)

	if err := s.dispatcher.QueueBookingRequested(ctx, bk); err != nil {
		s.logger.Warn("failed to queue booking request notification",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}

	return s.hydrate(ctx, bk), nil
}

// ListProviderBookings returns a provider's bookings ordered by scheduled
// start ascending. Only the provider may view their own list.
func (s *BookingService) ListProviderBookings(ctx context.Context, providerID, requestingUserID uuid.UUID) ([]BookingDTO, error) {
	if providerID != requestingUserID {
		return nil, domain.NewForbiddenError("you can only view your own bookings")
	}

	bookings, err := s.repo.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, bookings), nil
}

// ListBookerBookings returns the actor's own bookings, newest first,
// optionally filtered to the given statuses.
func (s *BookingService) ListBookerBookings(ctx context.Context, bookerID uuid.UUID, statusFilter []string) ([]BookingDTO, error) {
	statuses := make([]bookingDomain.BookingStatus, 0, len(statusFilter))
	for _, raw := range statusFilter {
		status, err := bookingDomain.ParseBookingStatus(raw)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		statuses = append(statuses, status)
	}

	bookings, err := s.repo.FindByBookerID(ctx, bookerID, statuses)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, bookings), nil
}

// GetBooking returns a single hydrated booking. The actor must be its
// provider or booker.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParticipant(actorID) {
		return nil, domain.NewForbiddenError("you do not have permission to view this booking")
	}
	return s.hydrate(ctx, bk), nil
}

// ListActivity returns a booking's audit trail, oldest first. The actor must
// be the booking's provider or booker.
func (s *BookingService) ListActivity(ctx context.Context, bookingID, actorID uuid.UUID) ([]ActivityDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParticipant(actorID) {
		return nil, domain.NewForbiddenError("you do not have permission to view this booking")
	}

	records, err := s.activities.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ActivityDTO, len(records))
	for i, a := range records {
		dtos[i] = ActivityDTO{
			ID:        a.ID(),
			BookingID: a.BookingID(),
			ActorID:   a.ActorID(),
			Action:    string(a.Action()),
			Metadata:  a.Metadata(),
			CreatedAt: a.CreatedAt(),
		}
	}
	return dtos, nil
}

// BookingStats returns aggregate booking counts by status (ops).
func (s *BookingService) BookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// UpdateStatus applies a validated status transition. The sequence is:
// load, authorize, validate against the fetched snapshot, apply side effects,
// persist under the optimistic lock (re-fetching and re-validating on
// conflict), append one audit record, then dispatch notifications
// best-effort. A transition either fully succeeds or fully fails before any
// durable write; post-commit side effects degrade silently.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID uuid.UUID, actorID uuid.UUID, req UpdateStatusRequest) (*BookingDTO, error) {
	target, err := bookingDomain.ParseBookingStatus(req.Status)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		dto, err := s.updateStatusOnce(ctx, bookingID, actorID, target, req.Notes)
		if err == nil {
			return dto, nil
		}
		if !domain.IsConflict(err) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("booking update conflicted, retrying with fresh state",
			zap.String("booking_id", bookingID.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

func (s *BookingService) updateStatusOnce(ctx context.Context, bookingID, actorID uuid.UUID, target bookingDomain.BookingStatus, notes *string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !bk.IsParticipant(actorID) {
		return nil, domain.NewForbiddenError("you do not have permission to modify this booking")
	}

	if err := bk.EnsureTransition(target); err != nil {
		return nil, err
	}

	from := bk.Status()
	reason := ""
	if notes != nil {
		reason = *notes
	}

	var holdDecision *bookingDomain.HoldDecision
	switch target {
	case bookingDomain.StatusPending:
		err = bk.Rerequest()
	case bookingDomain.StatusConfirmedAwaitingPayment:
		err = bk.Confirm()
	case bookingDomain.StatusPaid:
		// The hold is computed only on entry into paid; a retried payment
		// confirmation keeps the original release deadline.
		if from != bookingDomain.StatusPaid {
			decision := s.hold.Decide(ctx, bk, time.Now().UTC())
			holdDecision = &decision
			if decision.LookupFailed {
				s.logger.Warn("completed-booking count lookup failed, applying conservative hold",
					zap.String("booking_id", bk.ID().String()),
					zap.Int("hold_days", decision.HoldDays),
				)
			}
			err = bk.MarkPaid(decision.AutoReleaseAt)
		} else {
			err = bk.MarkPaid(time.Time{})
		}
	case bookingDomain.StatusCompleted:
		err = bk.Complete()
	case bookingDomain.StatusCancelled:
		err = bk.Cancel(reason)
	case bookingDomain.StatusDisputed:
		err = bk.Dispute(reason)
	}
	if err != nil {
		return nil, err
	}

	if notes != nil {
		bk.SetNotes(*notes)
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	metadata := map[string]any{
		bookingDomain.MetaFrom: string(from),
		bookingDomain.MetaTo:   string(target),
	}
	if notes != nil {
		metadata[bookingDomain.MetaNotes] = *notes
	}
	if holdDecision != nil {
		metadata[bookingDomain.MetaHoldDays] = holdDecision.HoldDays
		metadata[bookingDomain.MetaAutoReleaseAt] = holdDecision.AutoReleaseAt.Format(time.RFC3339)
		if holdDecision.LookupFailed {
			metadata[bookingDomain.MetaHoldLookupError] = true
		}
	}
	if target == bookingDomain.StatusCancelled {
		metadata[bookingDomain.MetaCancellationReason] = bk.CancellationReason()
	}
	if target == bookingDomain.StatusDisputed {
		metadata[bookingDomain.MetaDisputeReason] = bk.DisputeReason()
	}
	s.recordActivity(ctx, bk.ID(), actorID, bookingDomain.StatusChangedAction(target), metadata)

	s.publishBookingEvent(ctx, bk, string(from), statusEventType(target))
	s.dispatchStatusNotification(ctx, bk, target)

	return s.hydrate(ctx, bk), nil
}

// dispatchStatusNotification enqueues user-facing notifications for the
// transitions that notify (confirmed, cancelled, disputed). Paid and completed
// are intentionally silent. Failures are logged, never propagated.
func (s *BookingService) dispatchStatusNotification(ctx context.Context, bk *bookingDomain.Booking, target bookingDomain.BookingStatus) {
	var err error
	switch target {
	case bookingDomain.StatusConfirmedAwaitingPayment:
		err = s.dispatcher.QueueBookingConfirmed(ctx, bk)
	case bookingDomain.StatusCancelled:
		err = s.dispatcher.QueueBookingCancelled(ctx, bk, bk.CancellationReason())
	case bookingDomain.StatusDisputed:
		err = s.dispatcher.QueueBookingDisputed(ctx, bk, bk.DisputeReason())
	default:
		return
	}
	if err != nil {
		s.logger.Warn("failed to queue booking status notification",
			zap.String("booking_id", bk.ID().String()),
			zap.String("status", string(target)),
			zap.Error(err),
		)
	}
}

// recordActivity appends one audit record. The booking state is already
// durably committed by this point, so a dropped log entry is an acceptable
// degradation and is only logged.
func (s *BookingService) recordActivity(ctx context.Context, bookingID, actorID uuid.UUID, action bookingDomain.ActivityAction, metadata map[string]any) {
	activity := bookingDomain.NewActivity(bookingID, actorID, action, metadata)
	if err := s.activities.Append(ctx, activity); err != nil {
		s.logger.Error("failed to append booking activity",
			zap.String("booking_id", bookingID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func (s *BookingService) publishBookingEvent(ctx context.Context, bk *bookingDomain.Booking, from, eventType string) {
	evt := events.BookingStatusEvent{
		BookingID:      bk.ID(),
		ProviderID:     bk.ProviderID(),
		BookerID:       bk.BookerID(),
		FromStatus:     from,
		Status:         string(bk.Status()),
		TotalAmount:    bk.TotalAmount(),
		Currency:       bk.Currency(),
		PlatformFee:    bk.PlatformFee(),
		ProviderPayout: bk.ProviderPayout(),
		AutoReleaseAt:  bk.AutoReleaseAt(),
		OccurredAt:     time.Now().UTC(),
	}

	ce, err := kafka.NewCloudEvent(events.Source, eventType, evt)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, s.eventsTopic, ce); err != nil {
		s.logger.Error("failed to publish booking event",
			zap.String("event_type", eventType),
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}
}

// lookupServiceCategory resolves the offering's category for category-based
// fee rates. A failed lookup falls back to the default service rate.
func (s *BookingService) lookupServiceCategory(ctx context.Context, bookingType bookingDomain.BookingType, offeringID *uuid.UUID) string {
	if bookingType != bookingDomain.TypeService || offeringID == nil {
		return ""
	}
	offering, err := s.summaries.OfferingSummary(ctx, *offeringID)
	if err != nil {
		s.logger.Debug("failed to resolve offering category for fee calculation",
			zap.String("offering_id", offeringID.String()),
			zap.Error(err),
		)
		return ""
	}
	return offering.Category
}

// hydrate converts a booking to its DTO and attaches read-only display
// projections. A failed projection lookup degrades to the bare booking.
func (s *BookingService) hydrate(ctx context.Context, bk *bookingDomain.Booking) *BookingDTO {
	dto := toBookingDTO(bk)

	if booker, err := s.summaries.BookerSummary(ctx, bk.BookerID()); err == nil {
		dto.Booker = booker
	}
	if bk.ServiceOfferingID() != nil {
		if offering, err := s.summaries.OfferingSummary(ctx, *bk.ServiceOfferingID()); err == nil {
			dto.Offering = offering
		}
	}
	if bk.VenueID() != nil {
		if venue, err := s.summaries.VenueSummary(ctx, *bk.VenueID()); err == nil {
			dto.Venue = venue
		}
	}
	return &dto
}

func (s *BookingService) hydrateAll(ctx context.Context, bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = *s.hydrate(ctx, bk)
	}
	return dtos
}

func statusEventType(target bookingDomain.BookingStatus) string {
	switch target {
	case bookingDomain.StatusConfirmedAwaitingPayment:
		return events.BookingConfirmed
	case bookingDomain.StatusPaid:
		return events.BookingPaid
	case bookingDomain.StatusCompleted:
		return events.BookingCompleted
	case bookingDomain.StatusCancelled:
		return events.BookingCancelled
	case bookingDomain.StatusDisputed:
		return events.BookingDisputed
	default:
		return events.BookingRequested
	}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
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
