package domain

// Well-known mint addresses used for quoting.
const (
	// SOLMint is the wrapped SOL mint, the native quote asset.
	SOLMint = "So11111111111111111111111111111111111111112"
	// USDCMint is the USD-pegged stable asset used to anchor prices.
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// TokenSpec describes a monitored SPL token. Loaded once from the catalog
// at startup and never mutated afterwards.
type TokenSpec struct {
	Symbol   string // unique key, e.g. "BONK"
	Address  string // base58 mint address
	Decimals int    // decimal precision, >= 0
}
