package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the trade path.
type RPCClient interface {
	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a signed, base64-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetBalance retrieves an account's balance in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// Blockhash is a recent blockhash with its expiry height.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}
