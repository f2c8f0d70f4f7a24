package domain

import "time"

// PriceObservation is a single normalized USD quote from one venue.
// Created fresh on every successful fetch and discarded after the
// comparison that consumes it.
type PriceObservation struct {
	Venue      Venue
	Symbol     string
	Price      float64 // USD, > 0
	ObservedAt time.Time
}
