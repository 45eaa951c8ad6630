package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CompletedBookingCounter supplies the number of completed bookings a provider
// has at the moment of calculation.
type CompletedBookingCounter interface {
	CountCompletedByProvider(ctx context.Context, providerID uuid.UUID) (int64, error)
}

// HoldDecision is the outcome of computing the escrow hold for a booking
// entering the paid state. It only establishes when release becomes eligible;
// moving funds is an external payout job.
type HoldDecision struct {
	HoldDays      int
	AutoReleaseAt time.Time

	// LookupFailed is set when the completed-booking count could not be
	// obtained and the conservative hold period was applied instead.
	LookupFailed bool
}

// HoldPolicy computes the escrow auto-release deadline for a booking entering
// the paid state.
type HoldPolicy interface {
	Decide(ctx context.Context, b *Booking, now time.Time) HoldDecision
}

// StandardHoldPolicy shortens the hold for providers with an established
// completion history: 7 days once a provider has 3 or more completed
// bookings, 14 days otherwise.
type StandardHoldPolicy struct {
	counter            CompletedBookingCounter
	standardHoldDays   int
	trustedHoldDays    int
	trustedThreshold   int64
	countLookupTimeout time.Duration
}

// HoldPolicyConfig carries the tunable knobs for StandardHoldPolicy.
// Zero values fall back to the platform defaults.
type HoldPolicyConfig struct {
	StandardHoldDays   int
	TrustedHoldDays    int
	TrustedThreshold   int64
	CountLookupTimeout time.Duration
}

// NewStandardHoldPolicy creates a StandardHoldPolicy backed by the given counter.
func NewStandardHoldPolicy(counter CompletedBookingCounter, cfg HoldPolicyConfig) *StandardHoldPolicy {
	if cfg.StandardHoldDays <= 0 {
		cfg.StandardHoldDays = 14
	}
	if cfg.TrustedHoldDays <= 0 {
		cfg.TrustedHoldDays = 7
	}
	if cfg.TrustedThreshold <= 0 {
		cfg.TrustedThreshold = 3
	}
	if cfg.CountLookupTimeout <= 0 {
		cfg.CountLookupTimeout = 3 * time.Second
	}
	return &StandardHoldPolicy{
		counter:            counter,
		standardHoldDays:   cfg.StandardHoldDays,
		trustedHoldDays:    cfg.TrustedHoldDays,
		trustedThreshold:   cfg.TrustedThreshold,
		countLookupTimeout: cfg.CountLookupTimeout,
	}
}

// Decide computes the hold period and auto-release deadline. The release base
// is the booking's scheduled end, falling back to the scheduled start, then to
// the moment of payment. A failed count lookup must not abort the payment
// confirmation: the conservative hold period is applied and the failure is
// surfaced via HoldDecision.LookupFailed.
func (p *StandardHoldPolicy) Decide(ctx context.Context, b *Booking, now time.Time) HoldDecision {
	decision := HoldDecision{HoldDays: p.standardHoldDays}

	lookupCtx, cancel := context.WithTimeout(ctx, p.countLookupTimeout)
	defer cancel()

	completed, err := p.counter.CountCompletedByProvider(lookupCtx, b.ProviderID())
	switch {
	case err != nil:
		decision.LookupFailed = true
	case completed >= p.trustedThreshold:
		decision.HoldDays = p.trustedHoldDays
	}

	base := now.UTC()
	if b.ScheduledEnd() != nil {
		base = b.ScheduledEnd().UTC()
	} else if b.ScheduledStart() != nil {
		base = b.ScheduledStart().UTC()
	}

	decision.AutoReleaseAt = base.AddDate(0, 0, decision.HoldDays)
	return decision
}
