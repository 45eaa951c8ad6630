package booking

import (
	"github.com/soundbridge-live/service-bookings/internal/domain"
)

// FeeBreakdown is the result of splitting a booking amount between the
// platform and the provider. PlatformFee + ProviderPayout always equals the
// input amount; the integer rounding remainder lands on the platform fee.
type FeeBreakdown struct {
	PlatformFee    int64 `json:"platform_fee"`
	ProviderPayout int64 `json:"provider_payout"`
}

// FeePolicy defines the interface for computing the platform fee split.
type FeePolicy interface {
	// Calculate splits amount (smallest currency unit) for the given booking
	// type and, for service bookings, an optional service category.
	Calculate(amount int64, bookingType BookingType, serviceCategory string) (FeeBreakdown, error)
}

// StandardFeePolicy implements the platform's published fee schedule using
// basis-point rates: a flat rate per booking type, with per-category overrides
// for service bookings.
type StandardFeePolicy struct {
	serviceBps  int64
	venueBps    int64
	categoryBps map[string]int64
}

const bpsDenominator = 10_000

// Default rates per the published fee schedule (10-15% band).
const (
	defaultServiceBps = 1_000
	defaultVenueBps   = 1_000
)

func defaultCategoryBps() map[string]int64 {
	return map[string]int64{
		"production":       1_200,
		"mixing_mastering": 1_200,
		"session_musician": 1_200,
		"dj":               1_500,
	}
}

// NewStandardFeePolicy creates a StandardFeePolicy with the default rates.
func NewStandardFeePolicy() *StandardFeePolicy {
	return &StandardFeePolicy{
		serviceBps:  defaultServiceBps,
		venueBps:    defaultVenueBps,
		categoryBps: defaultCategoryBps(),
	}
}

// NewStandardFeePolicyWithRates creates a StandardFeePolicy with explicit
// basis-point rates, typically sourced from configuration.
func NewStandardFeePolicyWithRates(serviceBps, venueBps int64, categoryBps map[string]int64) *StandardFeePolicy {
	if categoryBps == nil {
		categoryBps = map[string]int64{}
	}
	return &StandardFeePolicy{
		serviceBps:  serviceBps,
		venueBps:    venueBps,
		categoryBps: categoryBps,
	}
}

// Calculate is pure and deterministic: identical inputs always yield identical
// outputs. It fails only on a non-positive amount.
func (p *StandardFeePolicy) Calculate(amount int64, bookingType BookingType, serviceCategory string) (FeeBreakdown, error) {
	if amount <= 0 {
		return FeeBreakdown{}, domain.NewValidationError("amount must be positive")
	}

	rate := p.rateFor(bookingType, serviceCategory)
	payout := amount * (bpsDenominator - rate) / bpsDenominator
	return FeeBreakdown{
		PlatformFee:    amount - payout,
		ProviderPayout: payout,
	}, nil
}

func (p *StandardFeePolicy) rateFor(bookingType BookingType, serviceCategory string) int64 {
	if bookingType == TypeVenue {
		return p.venueBps
	}
	if serviceCategory != "" {
		if bps, ok := p.categoryBps[serviceCategory]; ok {
			return bps
		}
	}
	return p.serviceBps
}
