// Package pricing implements the two price source adapters: Raydium pool
// prices via the DexScreener pair-discovery API, and Jupiter routing quotes
// converted to USD in two hops.
package pricing

import (
	"context"

	"solana-arb-monitor/internal/domain"
)

// Source yields a normalized USD quote for a token.
//
// A nil observation with a nil error means the source is cleanly
// unavailable for this token (no matching pair, missing field, non-200).
// A non-nil error means the fetch itself faulted after retries; callers
// count those against the per-symbol error budget but never propagate them.
type Source interface {
	Venue() domain.Venue
	Quote(ctx context.Context, spec domain.TokenSpec) (*domain.PriceObservation, error)
}
