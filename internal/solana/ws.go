package solana

import "context"

// ConfirmationClient defines the Solana WebSocket interface for tracking
// submitted transactions.
type ConfirmationClient interface {
	// SubscribeSignature subscribes to the confirmation of one signature.
	// The node delivers at most one notification and then drops the
	// subscription, so the returned channel yields a single result and
	// is closed.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureResult, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureResult is a signature confirmation notification. Err is non-nil
// when the transaction landed but failed on chain.
type SignatureResult struct {
	Slot int64
	Err  interface{}
}
