package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-arb-monitor/internal/domain"
	"solana-arb-monitor/internal/observability"
	"solana-arb-monitor/internal/sink"
)

// Default loop configuration values.
const (
	DefaultCheckInterval   = 60 * time.Second
	DefaultRestartCooldown = 10 * time.Second
	DefaultPostTradeDelay  = 2 * time.Second
	DefaultReferenceSymbol = "SOL"
)

// State is a monitoring loop lifecycle state.
type State string

const (
	StateStarting   State = "STARTING"
	StateRunning    State = "RUNNING"
	StatePersisting State = "PERSISTING"
	StateActing     State = "ACTING"
	StateRestarting State = "RESTARTING"
	StateStopped    State = "STOPPED"
)

// TradeInitiator submits the stub trades for one detected opportunity.
type TradeInitiator interface {
	Execute(ctx context.Context, opp domain.Opportunity) error
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	Checker *Checker
	Tokens  []domain.TokenSpec
	Sink    sink.Sink
	// Initiator is optional; when nil, opportunities are only persisted.
	Initiator TradeInitiator

	// CheckInterval is the minimum duration of one full cycle.
	CheckInterval time.Duration
	// RestartCooldown is the fixed wait before re-entering Running
	// after a cycle-level fault. Restart attempts are unbounded.
	RestartCooldown time.Duration
	// PostTradeDelay is the settle wait after acting on a batch.
	PostTradeDelay time.Duration
	// ReferenceSymbol is skipped during cycles: the native asset is the
	// quote denominator, not a token to arbitrage.
	ReferenceSymbol string

	// ResetSession tears down session-scoped network state before a
	// restart. Typically the fetch client's connection-pool reset.
	ResetSession func()
	// OnTransition observes state changes; used by tests.
	OnTransition func(from, to State)

	Logger *zap.Logger
}

// Loop iterates the token set once per cycle, batches detected
// opportunities to the sink, and hands each one to the trade initiator.
// Any cycle-level fault transitions to Restarting and resumes after the
// cooldown; only context cancellation stops the loop.
type Loop struct {
	checker   *Checker
	tokens    []domain.TokenSpec
	sink      sink.Sink
	initiator TradeInitiator

	checkInterval   time.Duration
	restartCooldown time.Duration
	postTradeDelay  time.Duration
	referenceSymbol string

	resetSession func()
	onTransition func(from, to State)

	state State
	log   *zap.Logger

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a monitoring loop.
func NewLoop(opts LoopOptions) *Loop {
	if opts.CheckInterval == 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.RestartCooldown == 0 {
		opts.RestartCooldown = DefaultRestartCooldown
	}
	if opts.PostTradeDelay == 0 {
		opts.PostTradeDelay = DefaultPostTradeDelay
	}
	if opts.ReferenceSymbol == "" {
		opts.ReferenceSymbol = DefaultReferenceSymbol
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		checker:         opts.Checker,
		tokens:          opts.Tokens,
		sink:            opts.Sink,
		initiator:       opts.Initiator,
		checkInterval:   opts.CheckInterval,
		restartCooldown: opts.RestartCooldown,
		postTradeDelay:  opts.PostTradeDelay,
		referenceSymbol: opts.ReferenceSymbol,
		resetSession:    opts.ResetSession,
		onTransition:    opts.OnTransition,
		state:           StateStarting,
		log:             log,
		now:             time.Now,
		sleep:           sleepCtx,
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return l.state
}

// Run drives the loop until the context is canceled. A fault inside a
// session transitions to Restarting, resets session-scoped connections,
// waits the cooldown and re-enters Running with a fresh session. There is
// no restart budget: a long-running monitor restarts forever.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("starting monitoring loop",
		zap.Int("tokens", len(l.tokens)),
		zap.Duration("check_interval", l.checkInterval))

	for {
		err := l.runSession(ctx)
		if ctx.Err() != nil {
			l.transition(StateStopped)
			l.log.Info("monitoring loop stopped")
			return
		}

		l.transition(StateRestarting)
		observability.RecordLoopRestart()
		l.log.Error("monitoring session failed, restarting after cooldown",
			zap.Error(err),
			zap.Duration("cooldown", l.restartCooldown))
		if l.resetSession != nil {
			l.resetSession()
		}
		if err := l.sleep(ctx, l.restartCooldown); err != nil {
			l.transition(StateStopped)
			return
		}
	}
}

// runSession runs cycles until the context is canceled or a fault occurs.
// Per-token failures are swallowed by the Checker and never abort a cycle;
// only sink failures and escaped panics are session-fatal.
func (l *Loop) runSession(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	l.transition(StateRunning)

	for {
		if ctx.Err() != nil {
			return nil
		}

		cycleStart := l.now()
		var batch []domain.Opportunity

		for _, spec := range l.tokens {
			if ctx.Err() != nil {
				return nil
			}
			if spec.Symbol == l.referenceSymbol {
				continue
			}
			if opp := l.checker.Check(ctx, spec); opp != nil {
				batch = append(batch, *opp)
			}
		}

		if len(batch) > 0 {
			if err := l.handleBatch(ctx, batch); err != nil {
				return err
			}
			l.transition(StateRunning)
		}

		elapsed := l.now().Sub(cycleStart)
		observability.RecordCycle(elapsed.Seconds(), float64(l.now().Unix()))
		if elapsed < l.checkInterval {
			if err := l.sleep(ctx, l.checkInterval-elapsed); err != nil {
				return nil
			}
		}
	}
}

// handleBatch persists the cycle's opportunities as one batch, then acts
// on each sequentially. A sink failure is session-fatal; a trade failure
// is logged and skipped, matching the stub initiator's contract.
func (l *Loop) handleBatch(ctx context.Context, batch []domain.Opportunity) error {
	l.transition(StatePersisting)
	if err := l.sink.Append(ctx, batch); err != nil {
		return fmt.Errorf("persist opportunities: %w", err)
	}

	l.transition(StateActing)
	for _, opp := range batch {
		l.log.Info("opportunity found",
			zap.String("symbol", opp.Symbol),
			zap.String("buy_on", opp.BuyVenue.String()),
			zap.String("sell_on", opp.SellVenue.String()),
			zap.Float64("buy_price", opp.BuyPrice),
			zap.Float64("sell_price", opp.SellPrice),
			zap.Float64("difference_percent", opp.DivergencePct))

		if l.initiator == nil {
			continue
		}
		if err := l.initiator.Execute(ctx, opp); err != nil {
			l.log.Error("trade initiation failed",
				zap.String("symbol", opp.Symbol),
				zap.Error(err))
		}
	}

	return l.sleep(ctx, l.postTradeDelay)
}

func (l *Loop) transition(to State) {
	if l.state == to {
		return
	}
	from := l.state
	l.state = to
	l.log.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	if l.onTransition != nil {
		l.onTransition(from, to)
	}
}
