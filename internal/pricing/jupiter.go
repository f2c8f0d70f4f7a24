package pricing

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"solana-arb-monitor/internal/domain"
	"solana-arb-monitor/internal/fetch"
)

// DefaultJupiterEndpoint is the public Jupiter v6 quote API URL.
const DefaultJupiterEndpoint = "https://quote-api.jup.ag/v6/quote"

const (
	// quoteAmount is the fixed input amount for both hops: 1 SOL in
	// lamports, and the same figure in the token's smallest units.
	quoteAmount = "1000000000"
	// slippageBps is the slippage tolerance sent with every quote.
	slippageBps = "50"
	// referenceDecimals is the lamport precision prices are quoted in.
	referenceDecimals = 9
)

// JupiterSource derives a USD price from Jupiter routing quotes. Jupiter
// only quotes token-to-token swap rates, so USD pricing takes two hops:
// SOL->USDC for the SOL/USD rate, then token->SOL for the token rate.
type JupiterSource struct {
	endpoint string
	client   *fetch.Client
	log      *zap.Logger
}

// NewJupiterSource creates a Jupiter price source. An empty endpoint
// selects the public v6 quote API.
func NewJupiterSource(endpoint string, client *fetch.Client, log *zap.Logger) *JupiterSource {
	if endpoint == "" {
		endpoint = DefaultJupiterEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &JupiterSource{endpoint: endpoint, client: client, log: log}
}

// Venue implements Source.
func (s *JupiterSource) Venue() domain.Venue {
	return domain.VenueJupiter
}

// quoteResponse carries the only field the price math needs. A missing
// outAmount marks the hop as unavailable.
type quoteResponse struct {
	OutAmount *string `json:"outAmount"`
}

// Quote implements Source.
func (s *JupiterSource) Quote(ctx context.Context, spec domain.TokenSpec) (*domain.PriceObservation, error) {
	solOut, err := s.quoteOut(ctx, domain.SOLMint, domain.USDCMint)
	if err != nil {
		return nil, err
	}
	if solOut == nil {
		s.log.Debug("jupiter SOL/USDC quote unavailable", zap.String("symbol", spec.Symbol))
		return nil, nil
	}
	// USDC has 6 decimals, so outAmount/1e6 is the SOL/USD rate.
	solPriceUSD := *solOut / 1e6

	tokenOut, err := s.quoteOut(ctx, spec.Address, domain.SOLMint)
	if err != nil {
		return nil, err
	}
	if tokenOut == nil {
		s.log.Debug("jupiter token quote unavailable", zap.String("symbol", spec.Symbol))
		return nil, nil
	}

	amount, _ := strconv.ParseFloat(quoteAmount, 64)
	solValue := *tokenOut / amount
	price := solValue * solPriceUSD

	// Quotes are denominated in the token's smallest units against the
	// 9-decimal lamport reference; rescale tokens with fewer decimals.
	if spec.Decimals < referenceDecimals {
		price /= math.Pow10(referenceDecimals - spec.Decimals)
	}

	return &domain.PriceObservation{
		Venue:      domain.VenueJupiter,
		Symbol:     spec.Symbol,
		Price:      price,
		ObservedAt: time.Now(),
	}, nil
}

// quoteOut performs one quote hop and returns the parsed outAmount, or nil
// when the hop is unavailable or the payload lacks the field.
func (s *JupiterSource) quoteOut(ctx context.Context, inputMint, outputMint string) (*float64, error) {
	params := url.Values{
		"inputMint":   {inputMint},
		"outputMint":  {outputMint},
		"amount":      {quoteAmount},
		"slippageBps": {slippageBps},
	}

	status, body, err := s.client.GetJSON(ctx, s.endpoint, params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || body == nil {
		return nil, nil
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.OutAmount == nil {
		return nil, nil
	}
	out, err := strconv.ParseFloat(*resp.OutAmount, 64)
	if err != nil {
		return nil, nil
	}
	return &out, nil
}
