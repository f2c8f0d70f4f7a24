package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"solana-arb-monitor/internal/domain"
	"solana-arb-monitor/internal/fetch"
)

// DefaultDexScreenerEndpoint is the public DexScreener API base URL.
const DefaultDexScreenerEndpoint = "https://api.dexscreener.com"

// raydiumDexID is the DexScreener identifier for Raydium pairs.
const raydiumDexID = "raydium"

// RaydiumSource resolves a token's Raydium pool price by querying
// DexScreener for the token's trading pairs and filtering to the Raydium
// pair.
type RaydiumSource struct {
	endpoint string
	client   *fetch.Client
	log      *zap.Logger
}

// NewRaydiumSource creates a Raydium price source. An empty endpoint
// selects the public DexScreener API.
func NewRaydiumSource(endpoint string, client *fetch.Client, log *zap.Logger) *RaydiumSource {
	if endpoint == "" {
		endpoint = DefaultDexScreenerEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RaydiumSource{endpoint: endpoint, client: client, log: log}
}

// Venue implements Source.
func (s *RaydiumSource) Venue() domain.Venue {
	return domain.VenueRaydium
}

// dexScreenerResponse is the raw pair-discovery payload.
type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	PriceUsd    string `json:"priceUsd"`
}

// Quote implements Source. It returns the USD price of the first Raydium
// pair listed for the token, or (nil, nil) when no such pair exists.
func (s *RaydiumSource) Quote(ctx context.Context, spec domain.TokenSpec) (*domain.PriceObservation, error) {
	status, body, err := s.client.GetJSON(ctx, s.endpoint+"/latest/dex/tokens/"+spec.Address, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || body == nil {
		return nil, nil
	}

	var resp dexScreenerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.log.Debug("malformed dexscreener payload", zap.String("symbol", spec.Symbol), zap.Error(err))
		return nil, nil
	}

	for _, pair := range resp.Pairs {
		if pair.DexID != raydiumDexID {
			continue
		}
		price, err := strconv.ParseFloat(pair.PriceUsd, 64)
		if err != nil || price <= 0 {
			return nil, nil
		}
		return &domain.PriceObservation{
			Venue:      domain.VenueRaydium,
			Symbol:     spec.Symbol,
			Price:      price,
			ObservedAt: time.Now(),
		}, nil
	}
	return nil, nil
}
