package domain

import (
	"math"
	"testing"
	"time"
)

func TestDivergence(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"two percent gap", 100.0, 102.0, 2.0},
		{"half percent gap", 100.0, 100.5, 0.5},
		{"order independent", 102.0, 100.0, 2.0},
		{"equal prices", 55.5, 55.5, 0.0},
		{"small denominator", 0.5, 1.0, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Divergence(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Divergence(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNewOpportunity_VenueAssignment(t *testing.T) {
	spec := TokenSpec{Symbol: "BONK", Address: "mint111", Decimals: 5}
	now := time.Now()

	t.Run("raydium cheaper", func(t *testing.T) {
		opp := NewOpportunity(spec, 100.0, 102.0, now)
		if opp.BuyVenue != VenueRaydium || opp.SellVenue != VenueJupiter {
			t.Errorf("expected buy Raydium / sell Jupiter, got %s/%s", opp.BuyVenue, opp.SellVenue)
		}
		if opp.BuyPrice != 100.0 || opp.SellPrice != 102.0 {
			t.Errorf("expected prices 100/102, got %v/%v", opp.BuyPrice, opp.SellPrice)
		}
		if math.Abs(opp.DivergencePct-2.0) > 1e-9 {
			t.Errorf("expected divergence 2.0, got %v", opp.DivergencePct)
		}
	})

	t.Run("jupiter cheaper", func(t *testing.T) {
		opp := NewOpportunity(spec, 102.0, 100.0, now)
		if opp.BuyVenue != VenueJupiter || opp.SellVenue != VenueRaydium {
			t.Errorf("expected buy Jupiter / sell Raydium, got %s/%s", opp.BuyVenue, opp.SellVenue)
		}
	})

	t.Run("exact tie defaults to raydium buy", func(t *testing.T) {
		opp := NewOpportunity(spec, 100.0, 100.0, now)
		if opp.BuyVenue != VenueRaydium || opp.SellVenue != VenueJupiter {
			t.Errorf("expected buy Raydium / sell Jupiter on tie, got %s/%s", opp.BuyVenue, opp.SellVenue)
		}
		if opp.DivergencePct != 0 {
			t.Errorf("expected zero divergence on tie, got %v", opp.DivergencePct)
		}
	})

	t.Run("invariant buy <= sell", func(t *testing.T) {
		pairs := [][2]float64{{1, 2}, {2, 1}, {3, 3}, {0.0001, 0.0002}}
		for _, p := range pairs {
			opp := NewOpportunity(spec, p[0], p[1], now)
			if opp.BuyPrice > opp.SellPrice {
				t.Errorf("buy price %v exceeds sell price %v", opp.BuyPrice, opp.SellPrice)
			}
		}
	})
}

func TestVenue(t *testing.T) {
	if !VenueRaydium.IsValid() || !VenueJupiter.IsValid() {
		t.Error("expected known venues to be valid")
	}
	if Venue("Orca").IsValid() {
		t.Error("expected unknown venue to be invalid")
	}
	if VenueRaydium.String() != "Raydium" {
		t.Errorf("unexpected string: %s", VenueRaydium.String())
	}
}
