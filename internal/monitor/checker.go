// Package monitor implements the per-token divergence check and the
// continuously-restarting monitoring loop that drives it.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-arb-monitor/internal/domain"
	"solana-arb-monitor/internal/observability"
	"solana-arb-monitor/internal/pricing"
)

// Default checker configuration values.
const (
	DefaultInterSourceDelay = 100 * time.Millisecond
	DefaultMaxErrors        = 5
)

// symbolState is the mutable per-symbol record: the pacing floor anchor
// and the consecutive-error count. Owned exclusively by the Checker.
type symbolState struct {
	lastCheck  time.Time
	errorCount int
}

// CheckerOptions configures a Checker.
type CheckerOptions struct {
	Raydium pricing.Source
	Jupiter pricing.Source

	// MinCheckInterval is the pacing floor between two checks of the
	// same symbol. Zero disables pacing.
	MinCheckInterval time.Duration
	// InterSourceDelay spaces the two source queries within one check.
	InterSourceDelay time.Duration
	// MinDivergencePct is the detection threshold (strictly exceeded).
	MinDivergencePct float64
	// MaxErrors is the tolerated consecutive failures per symbol before
	// a warning is surfaced. The symbol is never removed.
	MaxErrors int

	Logger *zap.Logger
}

// Checker performs one divergence check per call, enforcing the per-symbol
// pacing floor. It is owned by a single execution flow and holds its state
// without locking.
type Checker struct {
	raydium pricing.Source
	jupiter pricing.Source

	minInterval      time.Duration
	interSourceDelay time.Duration
	minDivergence    float64
	maxErrors        int

	states map[string]*symbolState
	log    *zap.Logger

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewChecker creates a Checker.
func NewChecker(opts CheckerOptions) *Checker {
	if opts.InterSourceDelay == 0 {
		opts.InterSourceDelay = DefaultInterSourceDelay
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		raydium:          opts.Raydium,
		jupiter:          opts.Jupiter,
		minInterval:      opts.MinCheckInterval,
		interSourceDelay: opts.InterSourceDelay,
		minDivergence:    opts.MinDivergencePct,
		maxErrors:        opts.MaxErrors,
		states:           make(map[string]*symbolState),
		log:              log,
		now:              time.Now,
		sleep:            sleepCtx,
	}
}

// Check runs one divergence check for the token. It returns nil when no
// opportunity was detected, for whatever reason: source unavailable,
// divergence under threshold, or a fault. Faults are counted per symbol
// and never propagate past this component.
func (c *Checker) Check(ctx context.Context, spec domain.TokenSpec) *domain.Opportunity {
	st := c.state(spec.Symbol)

	// Pacing floor: per-symbol, not global.
	if !st.lastCheck.IsZero() && c.minInterval > 0 {
		if elapsed := c.now().Sub(st.lastCheck); elapsed < c.minInterval {
			if err := c.sleep(ctx, c.minInterval-elapsed); err != nil {
				return nil
			}
		}
	}
	// Recorded unconditionally so a failing token is never retried
	// faster than the pacing floor.
	st.lastCheck = c.now()

	rayObs, err := c.raydium.Quote(ctx, spec)
	if err != nil {
		observability.RecordSourceError(domain.VenueRaydium.String())
		c.recordError(spec.Symbol, st, err)
		return nil
	}
	if rayObs == nil {
		// Raydium listing is the liquidity gate: without it, the
		// Jupiter quota is not spent on this token.
		observability.RecordSourceUnavailable(domain.VenueRaydium.String())
		observability.RecordCheck("raydium_unavailable")
		return nil
	}

	if err := c.sleep(ctx, c.interSourceDelay); err != nil {
		return nil
	}

	jupObs, err := c.jupiter.Quote(ctx, spec)
	if err != nil {
		observability.RecordSourceError(domain.VenueJupiter.String())
		c.recordError(spec.Symbol, st, err)
		return nil
	}
	if jupObs == nil {
		observability.RecordSourceUnavailable(domain.VenueJupiter.String())
		observability.RecordCheck("jupiter_unavailable")
		return nil
	}

	st.errorCount = 0

	c.log.Debug("price pair",
		zap.String("symbol", spec.Symbol),
		zap.Float64("raydium", rayObs.Price),
		zap.Float64("jupiter", jupObs.Price))

	divergence := domain.Divergence(rayObs.Price, jupObs.Price)
	if divergence <= c.minDivergence {
		observability.RecordCheck("no_divergence")
		return nil
	}

	opp := domain.NewOpportunity(spec, rayObs.Price, jupObs.Price, c.now())
	observability.RecordCheck("opportunity")
	observability.RecordOpportunity(spec.Symbol, opp.DivergencePct)
	return &opp
}

// recordError tracks a consecutive fault for the symbol. Crossing the
// budget only surfaces a warning; the symbol stays in rotation.
func (c *Checker) recordError(symbol string, st *symbolState, err error) {
	st.errorCount++
	observability.RecordCheck("error")
	if st.errorCount > c.maxErrors {
		observability.RecordErrorBudgetExceeded()
		c.log.Warn("too many consecutive errors for symbol, keeping it in rotation",
			zap.String("symbol", symbol),
			zap.Int("errors", st.errorCount),
			zap.Int("max", c.maxErrors),
			zap.Error(err))
		return
	}
	c.log.Debug("check failed",
		zap.String("symbol", symbol),
		zap.Int("errors", st.errorCount),
		zap.Error(err))
}

func (c *Checker) state(symbol string) *symbolState {
	st, ok := c.states[symbol]
	if !ok {
		st = &symbolState{}
		c.states[symbol] = st
	}
	return st
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
