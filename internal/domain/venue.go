package domain

// Venue identifies a price source consulted during a check.
type Venue string

const (
	VenueRaydium Venue = "Raydium"
	VenueJupiter Venue = "Jupiter"
)

// String returns the string representation of Venue.
func (v Venue) String() string {
	return string(v)
}

// IsValid checks if the venue is a valid value.
func (v Venue) IsValid() bool {
	return v == VenueRaydium || v == VenueJupiter
}
