package application

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soundbridge-live/service-bookings/internal/domain"
	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
	"github.com/soundbridge-live/service-bookings/internal/events"
	"github.com/soundbridge-live/service-bookings/internal/kafka"
)

// --- In-memory fakes ---

type fakeBookingRepo struct {
	store           map[uuid.UUID]bookingDomain.Booking
	completedCount  int64
	forcedConflicts int
	updateCalls     int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{store: map[uuid.UUID]bookingDomain.Booking{}}
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	bk, ok := r.store[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	snapshot := bk
	return &snapshot, nil
}

func (r *fakeBookingRepo) FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var out []*bookingDomain.Booking
	for _, bk := range r.store {
		if bk.ProviderID() == providerID {
			snapshot := bk
			out = append(out, &snapshot)
		}
	}
	// Scheduled start ascending, matching the GORM adapter.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ScheduledStart(), out[j].ScheduledStart()
		if a == nil || b == nil {
			return b == nil
		}
		return a.Before(*b)
	})
	return out, nil
}

func (r *fakeBookingRepo) FindByBookerID(ctx context.Context, bookerID uuid.UUID, statuses []bookingDomain.BookingStatus) ([]*bookingDomain.Booking, error) {
	var out []*bookingDomain.Booking
	for _, bk := range r.store {
		if bk.BookerID() != bookerID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if bk.Status() == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		snapshot := bk
		out = append(out, &snapshot)
	}
	// Creation time descending, matching the GORM adapter.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out, nil
}

func (r *fakeBookingRepo) CountCompletedByProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return r.completedCount, nil
}

func (r *fakeBookingRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, bk := range r.store {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *fakeBookingRepo) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	r.store[bk.ID()] = *bk
	return nil
}

func (r *fakeBookingRepo) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	r.updateCalls++
	if r.forcedConflicts > 0 {
		r.forcedConflicts--
		return domain.NewConflictError("booking was modified concurrently, please retry")
	}
	stored, ok := r.store[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("booking", bk.ID().String())
	}
	if stored.Version() != bk.Version()-1 {
		return domain.NewConflictError("booking was modified concurrently, please retry")
	}
	r.store[bk.ID()] = *bk
	return nil
}

func (r *fakeBookingRepo) mustGet(t *testing.T, id uuid.UUID) *bookingDomain.Booking {
	t.Helper()
	bk, ok := r.store[id]
	require.True(t, ok, "booking %s not in store", id)
	return &bk
}

type fakeActivityRepo struct {
	records   []*bookingDomain.Activity
	appendErr error
}

func (r *fakeActivityRepo) Append(ctx context.Context, a *bookingDomain.Activity) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.records = append(r.records, a)
	return nil
}

func (r *fakeActivityRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*bookingDomain.Activity, error) {
	var out []*bookingDomain.Activity
	for _, a := range r.records {
		if a.BookingID() == bookingID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) forBooking(bookingID uuid.UUID) []*bookingDomain.Activity {
	out, _ := r.FindByBookingID(context.Background(), bookingID)
	return out
}

type fakeSummaryRepo struct {
	offerings map[uuid.UUID]*bookingDomain.OfferingSummary
}

func (r *fakeSummaryRepo) BookerSummary(ctx context.Context, userID uuid.UUID) (*bookingDomain.BookerSummary, error) {
	return &bookingDomain.BookerSummary{ID: userID, DisplayName: "Test Booker", Username: "testbooker"}, nil
}

func (r *fakeSummaryRepo) OfferingSummary(ctx context.Context, offeringID uuid.UUID) (*bookingDomain.OfferingSummary, error) {
	if s, ok := r.offerings[offeringID]; ok {
		return s, nil
	}
	return nil, domain.NewNotFoundError("service offering", offeringID.String())
}

func (r *fakeSummaryRepo) VenueSummary(ctx context.Context, venueID uuid.UUID) (*bookingDomain.VenueSummary, error) {
	return nil, domain.NewNotFoundError("venue", venueID.String())
}

type fakeDispatcher struct {
	requested, confirmed, cancelled, disputed int
	err                                       error
}

func (d *fakeDispatcher) QueueBookingRequested(ctx context.Context, b *bookingDomain.Booking) error {
	d.requested++
	return d.err
}

func (d *fakeDispatcher) QueueBookingConfirmed(ctx context.Context, b *bookingDomain.Booking) error {
	d.confirmed++
	return d.err
}

func (d *fakeDispatcher) QueueBookingCancelled(ctx context.Context, b *bookingDomain.Booking, reason string) error {
	d.cancelled++
	return d.err
}

func (d *fakeDispatcher) QueueBookingDisputed(ctx context.Context, b *bookingDomain.Booking, reason string) error {
	d.disputed++
	return d.err
}

type fakePublisher struct {
	published []kafka.CloudEvent
	topics    []string
}

func (p *fakePublisher) PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error {
	p.published = append(p.published, event)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakePublisher) lastEventType(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, p.published)
	return p.published[len(p.published)-1].Type
}

type fixedHoldPolicy struct {
	decision bookingDomain.HoldDecision
	calls    int
}

func (p *fixedHoldPolicy) Decide(ctx context.Context, b *bookingDomain.Booking, now time.Time) bookingDomain.HoldDecision {
	p.calls++
	return p.decision
}

// --- Test harness ---

type serviceFixture struct {
	service    *BookingService
	repo       *fakeBookingRepo
	activities *fakeActivityRepo
	summaries  *fakeSummaryRepo
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
	hold       *fixedHoldPolicy
}

func newServiceFixture() *serviceFixture {
	return newServiceFixtureWithTopic(events.TopicBookingEvents)
}

func newServiceFixtureWithTopic(eventsTopic string) *serviceFixture {
	repo := newFakeBookingRepo()
	activities := &fakeActivityRepo{}
	summaries := &fakeSummaryRepo{offerings: map[uuid.UUID]*bookingDomain.OfferingSummary{}}
	dispatcher := &fakeDispatcher{}
	publisher := &fakePublisher{}
	hold := &fixedHoldPolicy{decision: bookingDomain.HoldDecision{
		HoldDays:      14,
		AutoReleaseAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}}

	service := NewBookingService(
		repo,
		activities,
		summaries,
		bookingDomain.NewStandardFeePolicy(),
		hold,
		dispatcher,
		publisher,
		eventsTopic,
		zap.NewNop(),
	)
	return &serviceFixture{
		service:    service,
		repo:       repo,
		activities: activities,
		summaries:  summaries,
		dispatcher: dispatcher,
		publisher:  publisher,
		hold:       hold,
	}
}

func (f *serviceFixture) seedBooking(t *testing.T, status bookingDomain.BookingStatus) *bookingDomain.Booking {
	t.Helper()
	offeringID := uuid.New()
	start := time.Now().UTC().Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)
	bk, err := bookingDomain.NewBooking(
		uuid.New(), uuid.New(),
		bookingDomain.TypeService, &offeringID, nil,
		start, end, "Europe/Berlin",
		10000, "EUR",
		bookingDomain.FeeBreakdown{PlatformFee: 1000, ProviderPayout: 9000},
		"",
	)
	require.NoError(t, err)

	switch status {
	case bookingDomain.StatusConfirmedAwaitingPayment:
		require.NoError(t, bk.Confirm())
	case bookingDomain.StatusPaid:
		require.NoError(t, bk.Confirm())
		require.NoError(t, bk.MarkPaid(time.Now().UTC().AddDate(0, 0, 14)))
	case bookingDomain.StatusCancelled:
		require.NoError(t, bk.Cancel("seeded"))
	}
	require.NoError(t, f.repo.Save(context.Background(), bk))
	return bk
}

func (f *serviceFixture) seedBookingAt(t *testing.T, providerID, bookerID uuid.UUID, start time.Time) *bookingDomain.Booking {
	t.Helper()
	offeringID := uuid.New()
	bk, err := bookingDomain.NewBooking(
		providerID, bookerID,
		bookingDomain.TypeService, &offeringID, nil,
		start, start.Add(2*time.Hour), "Europe/Berlin",
		10000, "EUR",
		bookingDomain.FeeBreakdown{PlatformFee: 1000, ProviderPayout: 9000},
		"",
	)
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(context.Background(), bk))
	return bk
}

func strPtr(s string) *string { return &s }

// --- RequestBooking ---

func TestRequestBooking_HappyPath(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	providerID := uuid.New()
	bookerID := uuid.New()
	offeringID := uuid.New()
	f.summaries.offerings[offeringID] = &bookingDomain.OfferingSummary{
		ID: offeringID, Title: "Studio Production", Category: "production",
	}

	start := time.Now().UTC().Add(72 * time.Hour)
	dto, err := f.service.RequestBooking(ctx, bookerID, providerID, CreateBookingRequest{
		ProviderID:        providerID,
		BookingType:       "service",
		ServiceOfferingID: &offeringID,
		ScheduledStart:    start,
		ScheduledEnd:      start.Add(2 * time.Hour),
		Timezone:          "Europe/Berlin",
		TotalAmount:       10000,
		Currency:          "EUR",
		BookingNotes:      "two sessions",
	})
	require.NoError(t, err)

	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, bookerID, dto.BookerID, "actor becomes the booker when none is named")
	assert.Equal(t, int64(1200), dto.PlatformFee, "production category carries the 12% rate")
	assert.Equal(t, int64(8800), dto.ProviderPayout)
	assert.Equal(t, int64(1), dto.Version)
	require.NotNil(t, dto.Offering)
	assert.Equal(t, "Studio Production", dto.Offering.Title)

	stored := f.repo.mustGet(t, dto.ID)
	assert.Equal(t, bookingDomain.StatusPending, stored.Status())

	records := f.activities.forBooking(dto.ID)
	require.Len(t, records, 1)
	assert.Equal(t, bookingDomain.ActionBookingRequested, records[0].Action())
	assert.Equal(t, "Europe/Berlin", records[0].Metadata()[bookingDomain.MetaTimezone])

	assert.Equal(t, events.BookingRequested, f.publisher.lastEventType(t))
	assert.Equal(t, 1, f.dispatcher.requested)
}

func TestRequestBooking_ProviderMismatch(t *testing.T) {
	f := newServiceFixture()
	offeringID := uuid.New()
	start := time.Now().UTC().Add(time.Hour)

	_, err := f.service.RequestBooking(context.Background(), uuid.New(), uuid.New(), CreateBookingRequest{
		ProviderID:        uuid.New(),
		BookingType:       "service",
		ServiceOfferingID: &offeringID,
		ScheduledStart:    start,
		ScheduledEnd:      start.Add(time.Hour),
		TotalAmount:       5000,
		Currency:          "EUR",
	})
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.activities.records)
}

func TestRequestBooking_NotificationFailureAbsorbed(t *testing.T) {
	f := newServiceFixture()
	f.dispatcher.err = errors.New("kafka unreachable")

	providerID := uuid.New()
	offeringID := uuid.New()
	start := time.Now().UTC().Add(time.Hour)

	dto, err := f.service.RequestBooking(context.Background(), uuid.New(), providerID, CreateBookingRequest{
		ProviderID:        providerID,
		BookingType:       "service",
		ServiceOfferingID: &offeringID,
		ScheduledStart:    start,
		ScheduledEnd:      start.Add(time.Hour),
		TotalAmount:       5000,
		Currency:          "EUR",
	})
	require.NoError(t, err, "notification failure must not fail the request")
	assert.Equal(t, "pending", dto.Status)
}

// --- Listing and reads ---

func TestListProviderBookings_OnlySelf(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	_, err := f.service.ListProviderBookings(context.Background(), bk.ProviderID(), uuid.New())
	assert.True(t, domain.IsForbidden(err))

	result, err := f.service.ListProviderBookings(context.Background(), bk.ProviderID(), bk.ProviderID())
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestListProviderBookings_OrderedByScheduledStart(t *testing.T) {
	f := newServiceFixture()
	providerID := uuid.New()
	base := time.Now().UTC().Add(24 * time.Hour)

	late := f.seedBookingAt(t, providerID, uuid.New(), base.Add(72*time.Hour))
	early := f.seedBookingAt(t, providerID, uuid.New(), base)
	mid := f.seedBookingAt(t, providerID, uuid.New(), base.Add(24*time.Hour))

	result, err := f.service.ListProviderBookings(context.Background(), providerID, providerID)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, early.ID(), result[0].ID)
	assert.Equal(t, mid.ID(), result[1].ID)
	assert.Equal(t, late.ID(), result[2].ID)
}

func TestListBookerBookings_NewestFirst(t *testing.T) {
	f := newServiceFixture()
	bookerID := uuid.New()
	start := time.Now().UTC().Add(24 * time.Hour)

	first := f.seedBookingAt(t, uuid.New(), bookerID, start)
	time.Sleep(2 * time.Millisecond)
	second := f.seedBookingAt(t, uuid.New(), bookerID, start)
	time.Sleep(2 * time.Millisecond)
	third := f.seedBookingAt(t, uuid.New(), bookerID, start)

	result, err := f.service.ListBookerBookings(context.Background(), bookerID, nil)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, third.ID(), result[0].ID)
	assert.Equal(t, second.ID(), result[1].ID)
	assert.Equal(t, first.ID(), result[2].ID)
}

func TestListBookerBookings_StatusFilter(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	result, err := f.service.ListBookerBookings(context.Background(), bk.BookerID(), []string{"pending", "paid"})
	require.NoError(t, err)
	assert.Len(t, result, 1)

	result, err = f.service.ListBookerBookings(context.Background(), bk.BookerID(), []string{"cancelled"})
	require.NoError(t, err)
	assert.Empty(t, result)

	_, err = f.service.ListBookerBookings(context.Background(), bk.BookerID(), []string{"refunded"})
	assert.True(t, domain.IsValidation(err))
}

func TestGetBooking_ParticipantsOnly(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	_, err := f.service.GetBooking(context.Background(), bk.ID(), uuid.New())
	assert.True(t, domain.IsForbidden(err))

	dto, err := f.service.GetBooking(context.Background(), bk.ID(), bk.BookerID())
	require.NoError(t, err)
	assert.Equal(t, bk.ID(), dto.ID)

	_, err = f.service.GetBooking(context.Background(), uuid.New(), bk.BookerID())
	assert.True(t, domain.IsNotFound(err))
}

func TestBookingStats(t *testing.T) {
	f := newServiceFixture()
	f.seedBooking(t, bookingDomain.StatusPending)
	f.seedBooking(t, bookingDomain.StatusPending)
	f.seedBooking(t, bookingDomain.StatusPaid)

	stats, err := f.service.BookingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBookings)
	assert.Equal(t, int64(2), stats.ByStatus["pending"])
	assert.Equal(t, int64(1), stats.ByStatus["paid"])
}

// --- UpdateStatus ---

func TestUpdateStatus_Confirm(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed_awaiting_payment", dto.Status)
	assert.NotNil(t, dto.ConfirmedAt)
	assert.Equal(t, int64(2), dto.Version)

	records := f.activities.forBooking(bk.ID())
	require.Len(t, records, 1)
	last := records[0]
	assert.Equal(t, bookingDomain.StatusChangedAction(bookingDomain.StatusConfirmedAwaitingPayment), last.Action())
	assert.Equal(t, "pending", last.Metadata()[bookingDomain.MetaFrom])
	assert.Equal(t, "confirmed_awaiting_payment", last.Metadata()[bookingDomain.MetaTo])

	assert.Equal(t, events.BookingConfirmed, f.publisher.lastEventType(t))
	assert.Equal(t, 1, f.dispatcher.confirmed)
}

func TestUpdateStatus_MarkPaidRecordsHold(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusConfirmedAwaitingPayment)

	release := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.hold.decision = bookingDomain.HoldDecision{HoldDays: 7, AutoReleaseAt: release}

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.BookerID(), UpdateStatusRequest{
		Status: "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", dto.Status)
	require.NotNil(t, dto.AutoReleaseAt)
	assert.Equal(t, release, *dto.AutoReleaseAt)
	assert.Equal(t, 1, f.hold.calls)

	last := f.activities.records[len(f.activities.records)-1]
	assert.Equal(t, 7, last.Metadata()[bookingDomain.MetaHoldDays])
	assert.Equal(t, release.Format(time.RFC3339), last.Metadata()[bookingDomain.MetaAutoReleaseAt])

	// Payment confirmations are silent.
	assert.Zero(t, f.dispatcher.confirmed+f.dispatcher.cancelled+f.dispatcher.disputed)
	assert.Equal(t, events.BookingPaid, f.publisher.lastEventType(t))
}

func TestUpdateStatus_PaidRetryKeepsDeadline(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPaid)
	original := *f.repo.mustGet(t, bk.ID()).AutoReleaseAt()

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.BookerID(), UpdateStatusRequest{
		Status: "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", dto.Status)
	require.NotNil(t, dto.AutoReleaseAt)
	assert.Equal(t, original, *dto.AutoReleaseAt)
	assert.Zero(t, f.hold.calls, "the hold is computed only on first entry into paid")
}

func TestUpdateStatus_HoldLookupFailureInMetadata(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusConfirmedAwaitingPayment)
	f.hold.decision = bookingDomain.HoldDecision{
		HoldDays:      14,
		AutoReleaseAt: time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
		LookupFailed:  true,
	}

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.BookerID(), UpdateStatusRequest{
		Status: "paid",
	})
	require.NoError(t, err, "a failed hold lookup must not abort the payment")

	last := f.activities.records[len(f.activities.records)-1]
	assert.Equal(t, true, last.Metadata()[bookingDomain.MetaHoldLookupError])
	assert.Equal(t, 14, last.Metadata()[bookingDomain.MetaHoldDays])
}

func TestUpdateStatus_IdempotentRerequest(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "pending",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", dto.Status)

	// The no-op transition is still audited with from == to.
	last := f.activities.records[len(f.activities.records)-1]
	assert.Equal(t, "pending", last.Metadata()[bookingDomain.MetaFrom])
	assert.Equal(t, "pending", last.Metadata()[bookingDomain.MetaTo])
	assert.Zero(t, f.dispatcher.confirmed+f.dispatcher.cancelled+f.dispatcher.disputed)
}

func TestUpdateStatus_CancelWithReason(t *testing.T) {
	f := newServiceFixture()

	t.Run("explicit reason", func(t *testing.T) {
		bk := f.seedBooking(t, bookingDomain.StatusPending)
		dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.BookerID(), UpdateStatusRequest{
			Status: "cancelled",
			Notes:  strPtr("venue flooded"),
		})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", dto.Status)
		assert.Equal(t, "venue flooded", dto.CancellationReason)
		assert.Equal(t, "venue flooded", dto.BookingNotes)

		last := f.activities.records[len(f.activities.records)-1]
		assert.Equal(t, "venue flooded", last.Metadata()[bookingDomain.MetaCancellationReason])
		assert.Equal(t, 1, f.dispatcher.cancelled)
	})

	t.Run("default reason", func(t *testing.T) {
		bk := f.seedBooking(t, bookingDomain.StatusPending)
		dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.BookerID(), UpdateStatusRequest{
			Status: "cancelled",
		})
		require.NoError(t, err)
		assert.Equal(t, "Booking cancelled", dto.CancellationReason)
	})
}

func TestUpdateStatus_Dispute(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPaid)

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.BookerID(), UpdateStatusRequest{
		Status: "disputed",
		Notes:  strPtr("provider never showed up"),
	})
	require.NoError(t, err)
	assert.Equal(t, "disputed", dto.Status)
	assert.Equal(t, "provider never showed up", dto.DisputeReason)
	assert.Equal(t, 1, f.dispatcher.disputed)
	assert.Equal(t, events.BookingDisputed, f.publisher.lastEventType(t))
}

func TestUpdateStatus_Forbidden(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)
	before := f.repo.mustGet(t, bk.ID())

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), uuid.New(), UpdateStatusRequest{
		Status: "cancelled",
	})
	assert.True(t, domain.IsForbidden(err))

	after := f.repo.mustGet(t, bk.ID())
	assert.Equal(t, before.Status(), after.Status())
	assert.Equal(t, before.Version(), after.Version())
	assert.Empty(t, f.activities.forBooking(bk.ID()))
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPaid)

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "cancelled",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))

	after := f.repo.mustGet(t, bk.ID())
	assert.Equal(t, bookingDomain.StatusPaid, after.Status())
	assert.Empty(t, f.activities.forBooking(bk.ID()))
}

func TestUpdateStatus_FinalizedBooking(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusCancelled)

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "pending",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindFinalized, domain.KindOf(err))
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "shipped",
	})
	assert.True(t, domain.IsValidation(err))
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.UpdateStatus(context.Background(), uuid.New(), uuid.New(), UpdateStatusRequest{
		Status: "cancelled",
	})
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdateStatus_ConflictRetries(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)
	f.repo.forcedConflicts = 2

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	require.NoError(t, err, "transient conflicts should be retried with fresh state")
	assert.Equal(t, "confirmed_awaiting_payment", dto.Status)
	assert.Equal(t, 3, f.repo.updateCalls)
	assert.Len(t, f.activities.forBooking(bk.ID()), 1, "only the winning attempt is audited")
}

func TestUpdateStatus_ConflictExhausted(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)
	f.repo.forcedConflicts = 10

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, 3, f.repo.updateCalls)
}

func TestUpdateStatus_ActivityFailureAbsorbed(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)
	f.activities.appendErr = errors.New("jsonb column overflow")

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	require.NoError(t, err, "a dropped audit record must not fail the committed transition")
	assert.Equal(t, "confirmed_awaiting_payment", dto.Status)
}

func TestUpdateStatus_NotificationFailureAbsorbed(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)
	f.dispatcher.err = errors.New("kafka unreachable")

	dto, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed_awaiting_payment", dto.Status)
}

func TestPublishBookingEvent_UsesConfiguredTopic(t *testing.T) {
	f := newServiceFixtureWithTopic("staging.booking.events")
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	require.NoError(t, err)

	require.NotEmpty(t, f.publisher.topics)
	for _, topic := range f.publisher.topics {
		assert.Equal(t, "staging.booking.events", topic)
	}
}

// --- ListActivity ---

func TestListActivity(t *testing.T) {
	f := newServiceFixture()
	bk := f.seedBooking(t, bookingDomain.StatusPending)

	_, err := f.service.UpdateStatus(context.Background(), bk.ID(), bk.ProviderID(), UpdateStatusRequest{
		Status: "confirmed_awaiting_payment",
	})
	require.NoError(t, err)

	records, err := f.service.ListActivity(context.Background(), bk.ID(), bk.BookerID())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "status_changed_confirmed_awaiting_payment", records[0].Action)

	_, err = f.service.ListActivity(context.Background(), bk.ID(), uuid.New())
	assert.True(t, domain.IsForbidden(err))
}
