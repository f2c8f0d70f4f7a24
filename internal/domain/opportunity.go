package domain

import "time"

// Opportunity is one detected instance of cross-venue divergence.
// Invariant: BuyPrice <= SellPrice, BuyVenue is the venue that reported
// the lower price, and DivergencePct = (sell-buy)/buy*100.
type Opportunity struct {
	Symbol        string
	Address       string
	BuyVenue      Venue
	SellVenue     Venue
	BuyPrice      float64
	SellPrice     float64
	DivergencePct float64
	DetectedAt    time.Time
}

// Divergence returns the relative price gap between two quotes for the
// same token, as a percentage of the lower price.
func Divergence(a, b float64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	min := a
	if b < a {
		min = b
	}
	return diff / min * 100
}

// NewOpportunity builds an Opportunity from a Raydium and a Jupiter quote.
// The lower-priced venue becomes the buy side. An exact price tie assigns
// Raydium as buy and Jupiter as sell via float equality; divergence is then
// zero, so a tie never crosses a positive detection threshold.
func NewOpportunity(spec TokenSpec, rayPrice, jupPrice float64, at time.Time) Opportunity {
	buyPrice := rayPrice
	sellPrice := jupPrice
	buyVenue := VenueRaydium
	sellVenue := VenueJupiter
	if jupPrice < rayPrice {
		buyPrice, sellPrice = jupPrice, rayPrice
		buyVenue, sellVenue = VenueJupiter, VenueRaydium
	}

	return Opportunity{
		Symbol:        spec.Symbol,
		Address:       spec.Address,
		BuyVenue:      buyVenue,
		SellVenue:     sellVenue,
		BuyPrice:      buyPrice,
		SellPrice:     sellPrice,
		DivergencePct: Divergence(rayPrice, jupPrice),
		DetectedAt:    at,
	}
}
