// Package trade submits placeholder transactions when an opportunity is
// detected. The real swap legs are out of scope; each opportunity turns
// into two small system-program transfers so the submission path, signing
// and confirmation tracking are exercised end to end.
package trade

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-arb-monitor/internal/domain"
	"solana-arb-monitor/internal/observability"
	"solana-arb-monitor/internal/solana"
)

// Default configuration values.
const (
	DefaultLamports       = 5000
	DefaultConfirmTimeout = 30 * time.Second
)

// Options configures Initiator.
type Options struct {
	RPC solana.RPCClient
	// Confirmations is optional; without it submissions are fire-and-forget.
	Confirmations solana.ConfirmationClient
	Keypair       *solana.Keypair
	// BuyDestination and SellDestination receive the placeholder transfers.
	BuyDestination  string
	SellDestination string
	// Lamports per transfer; DefaultLamports when zero.
	Lamports uint64
	// ConfirmTimeout bounds the wait per signature.
	ConfirmTimeout time.Duration
	Logger         *zap.Logger
}

// Initiator submits two placeholder transfers per opportunity, one for the
// buy leg and one for the sell leg.
type Initiator struct {
	rpc            solana.RPCClient
	confirmations  solana.ConfirmationClient
	keypair        *solana.Keypair
	buyDest        string
	sellDest       string
	lamports       uint64
	confirmTimeout time.Duration
	log            *zap.Logger
}

// New creates a trade initiator. The keypair, RPC client and both
// destinations are required.
func New(opts Options) (*Initiator, error) {
	if opts.RPC == nil {
		return nil, fmt.Errorf("rpc client is required")
	}
	if opts.Keypair == nil {
		return nil, fmt.Errorf("keypair is required")
	}
	if _, err := solana.DecodePublicKey(opts.BuyDestination); err != nil {
		return nil, fmt.Errorf("buy destination: %w", err)
	}
	if _, err := solana.DecodePublicKey(opts.SellDestination); err != nil {
		return nil, fmt.Errorf("sell destination: %w", err)
	}

	i := &Initiator{
		rpc:            opts.RPC,
		confirmations:  opts.Confirmations,
		keypair:        opts.Keypair,
		buyDest:        opts.BuyDestination,
		sellDest:       opts.SellDestination,
		lamports:       opts.Lamports,
		confirmTimeout: opts.ConfirmTimeout,
		log:            opts.Logger,
	}
	if i.lamports == 0 {
		i.lamports = DefaultLamports
	}
	if i.confirmTimeout == 0 {
		i.confirmTimeout = DefaultConfirmTimeout
	}
	if i.log == nil {
		i.log = zap.NewNop()
	}
	return i, nil
}

// Execute submits the two placeholder legs for one opportunity. A failed
// leg does not stop the other; the combined error is returned so the
// caller can log it.
func (i *Initiator) Execute(ctx context.Context, opp domain.Opportunity) error {
	i.log.Info("initiating placeholder trades",
		zap.String("symbol", opp.Symbol),
		zap.String("buy_on", opp.BuyVenue.String()),
		zap.String("sell_on", opp.SellVenue.String()),
		zap.Float64("difference_percent", opp.DivergencePct))

	blockhash, err := i.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		observability.RecordTradeSubmission("failed")
		return fmt.Errorf("get blockhash: %w", err)
	}

	buyErr := i.submitLeg(ctx, "buy", opp.BuyVenue, i.buyDest, blockhash.Blockhash)
	sellErr := i.submitLeg(ctx, "sell", opp.SellVenue, i.sellDest, blockhash.Blockhash)

	if buyErr != nil {
		return fmt.Errorf("buy leg: %w", buyErr)
	}
	if sellErr != nil {
		return fmt.Errorf("sell leg: %w", sellErr)
	}
	return nil
}

// submitLeg builds, signs and submits one transfer, then optionally waits
// for its confirmation.
func (i *Initiator) submitLeg(ctx context.Context, leg string, venue domain.Venue, dest, blockhash string) error {
	txBase64, err := solana.BuildTransfer(i.keypair, dest, i.lamports, blockhash)
	if err != nil {
		observability.RecordTradeSubmission("failed")
		return fmt.Errorf("build transfer: %w", err)
	}

	signature, err := i.rpc.SendTransaction(ctx, txBase64)
	if err != nil {
		observability.RecordTradeSubmission("failed")
		return fmt.Errorf("send transaction: %w", err)
	}
	observability.RecordTradeSubmission("submitted")

	i.log.Info("placeholder trade submitted",
		zap.String("leg", leg),
		zap.String("venue", venue.String()),
		zap.String("signature", signature),
		zap.Uint64("lamports", i.lamports))

	if i.confirmations == nil {
		return nil
	}
	i.awaitConfirmation(ctx, leg, signature)
	return nil
}

// awaitConfirmation waits for the signature with a bounded timeout. An
// unconfirmed or failed transaction is logged and otherwise ignored; the
// placeholder transfers carry no value worth recovering.
func (i *Initiator) awaitConfirmation(ctx context.Context, leg, signature string) {
	ctx, cancel := context.WithTimeout(ctx, i.confirmTimeout)
	defer cancel()

	ch, err := i.confirmations.SubscribeSignature(ctx, signature)
	if err != nil {
		i.log.Warn("signature subscription failed",
			zap.String("leg", leg),
			zap.String("signature", signature),
			zap.Error(err))
		return
	}

	select {
	case result, ok := <-ch:
		switch {
		case !ok:
			i.log.Warn("confirmation stream closed",
				zap.String("leg", leg),
				zap.String("signature", signature))
		case result.Err != nil:
			observability.RecordTradeSubmission("reverted")
			i.log.Warn("placeholder trade failed on chain",
				zap.String("leg", leg),
				zap.String("signature", signature),
				zap.Any("err", result.Err))
		default:
			observability.RecordTradeSubmission("confirmed")
			i.log.Info("placeholder trade confirmed",
				zap.String("leg", leg),
				zap.String("signature", signature),
				zap.Int64("slot", result.Slot))
		}
	case <-ctx.Done():
		i.log.Warn("confirmation timed out",
			zap.String("leg", leg),
			zap.String("signature", signature))
	}
}
