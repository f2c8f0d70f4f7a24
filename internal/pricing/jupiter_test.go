package pricing

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"solana-arb-monitor/internal/domain"
	"solana-arb-monitor/internal/fetch"
)

// jupiterStub answers the two quote hops: SOL->USDC and token->SOL.
func jupiterStub(t *testing.T, solUSDCOut, tokenSOLOut string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("amount") != quoteAmount || q.Get("slippageBps") != slippageBps {
			t.Errorf("unexpected quote params: %v", q)
		}
		switch {
		case q.Get("inputMint") == domain.SOLMint && q.Get("outputMint") == domain.USDCMint:
			w.Write([]byte(`{"outAmount":"` + solUSDCOut + `"}`))
		case q.Get("outputMint") == domain.SOLMint:
			w.Write([]byte(`{"outAmount":"` + tokenSOLOut + `"}`))
		default:
			t.Errorf("unexpected mint pair %s -> %s", q.Get("inputMint"), q.Get("outputMint"))
		}
	}
}

func TestJupiterQuote_TwoHopPrice(t *testing.T) {
	// 1 SOL -> 150 USDC, 1e9 token units -> 2e6 lamports:
	// price = (2e6/1e9) * 150 = 0.3 USD at 9 decimals.
	server := httptest.NewServer(jupiterStub(t, "150000000", "2000000"))
	defer server.Close()

	spec := domain.TokenSpec{Symbol: "WIF", Address: "wifMint", Decimals: 9}
	src := NewJupiterSource(server.URL, fetch.New(), nil)

	obs, err := src.Quote(context.Background(), spec)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if obs == nil {
		t.Fatal("expected observation, got unavailable")
	}
	if obs.Venue != domain.VenueJupiter {
		t.Errorf("expected venue Jupiter, got %s", obs.Venue)
	}
	if math.Abs(obs.Price-0.3) > 1e-9 {
		t.Errorf("expected price 0.3, got %v", obs.Price)
	}
}

func TestJupiterQuote_DecimalAdjustment(t *testing.T) {
	server := httptest.NewServer(jupiterStub(t, "150000000", "2000000"))
	defer server.Close()

	// 6-decimal token: the raw price is divided by 10^(9-6).
	spec := domain.TokenSpec{Symbol: "USDT", Address: "usdtMint", Decimals: 6}
	src := NewJupiterSource(server.URL, fetch.New(), nil)

	obs, err := src.Quote(context.Background(), spec)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if obs == nil {
		t.Fatal("expected observation, got unavailable")
	}
	if math.Abs(obs.Price-0.0003) > 1e-12 {
		t.Errorf("expected price 0.0003, got %v", obs.Price)
	}
}

func TestJupiterQuote_MissingOutAmount(t *testing.T) {
	tests := []struct {
		name               string
		solResp, tokenResp string
	}{
		{"sol hop missing field", `{"error":"no route"}`, `{"outAmount":"1"}`},
		{"token hop missing field", `{"outAmount":"150000000"}`, `{"routePlan":[]}`},
		{"unparseable amount", `{"outAmount":"abc"}`, `{"outAmount":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("inputMint") == domain.SOLMint {
					w.Write([]byte(tt.solResp))
				} else {
					w.Write([]byte(tt.tokenResp))
				}
			}))
			defer server.Close()

			spec := domain.TokenSpec{Symbol: "WIF", Address: "wifMint", Decimals: 9}
			src := NewJupiterSource(server.URL, fetch.New(), nil)

			obs, err := src.Quote(context.Background(), spec)
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			if obs != nil {
				t.Errorf("expected unavailable, got %+v", obs)
			}
		})
	}
}

func TestJupiterQuote_SkipsSecondHopWhenFirstFails(t *testing.T) {
	var tokenHopCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("inputMint") != domain.SOLMint {
			tokenHopCalled = true
		}
		w.Write([]byte(`{"error":"no route"}`))
	}))
	defer server.Close()

	spec := domain.TokenSpec{Symbol: "WIF", Address: "wifMint", Decimals: 9}
	src := NewJupiterSource(server.URL, fetch.New(), nil)

	if obs, err := src.Quote(context.Background(), spec); err != nil || obs != nil {
		t.Fatalf("expected clean unavailable, got %v, %v", obs, err)
	}
	if tokenHopCalled {
		t.Error("token hop should not run when the SOL/USDC hop fails")
	}
}
