package booking

import "github.com/google/uuid"

// BookerSummary is a read-only profile projection for display alongside a booking.
type BookerSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// OfferingSummary is a read-only service offering projection.
type OfferingSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	RateAmount   int64     `json:"rate_amount"`
	RateCurrency string    `json:"rate_currency"`
	RateUnit     string    `json:"rate_unit"`
}

// VenueSummary is a read-only venue projection.
type VenueSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
}
