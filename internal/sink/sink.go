// Package sink persists detected opportunities. The only implementation is
// an append-only CSV log; the monitoring loop depends on the interface.
package sink

import (
	"context"

	"solana-arb-monitor/internal/domain"
)

// Sink appends a batch of detected opportunities to durable storage.
// The sink owns durability; the caller discards the batch afterwards.
type Sink interface {
	Append(ctx context.Context, batch []domain.Opportunity) error
}
