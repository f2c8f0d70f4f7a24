package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-arb-monitor/internal/domain"
)

// fakeSink records appended batches and optionally panics or cancels.
type fakeSink struct {
	batches  [][]domain.Opportunity
	panicOn  int // 1-based call number that panics, 0 disables
	onAppend func()
	calls    int
}

func (s *fakeSink) Append(_ context.Context, batch []domain.Opportunity) error {
	s.calls++
	if s.panicOn != 0 && s.calls == s.panicOn {
		panic("storage backend gone")
	}
	s.batches = append(s.batches, batch)
	if s.onAppend != nil {
		s.onAppend()
	}
	return nil
}

// fakeInitiator records executed opportunities.
type fakeInitiator struct {
	executed []domain.Opportunity
	err      error
}

func (i *fakeInitiator) Execute(_ context.Context, opp domain.Opportunity) error {
	i.executed = append(i.executed, opp)
	return i.err
}

// transitionRecorder captures the loop's state transitions.
type transitionRecorder struct {
	transitions []State
}

func (r *transitionRecorder) hook(_, to State) {
	r.transitions = append(r.transitions, to)
}

func (r *transitionRecorder) saw(s State) bool {
	for _, t := range r.transitions {
		if t == s {
			return true
		}
	}
	return false
}

var loopTokens = []domain.TokenSpec{
	{Symbol: "SOL", Address: domain.SOLMint, Decimals: 9},
	{Symbol: "AAA", Address: "mintAAA", Decimals: 9},
	{Symbol: "BBB", Address: "mintBBB", Decimals: 9},
}

// divergentSources yields a 2% gap on AAA and a 0.2% gap on BBB.
func divergentSources() (*stubSource, *stubSource) {
	ray := &stubSource{venue: domain.VenueRaydium, quoteFn: fixedPrice(domain.VenueRaydium, 100.0)}
	jup := &stubSource{venue: domain.VenueJupiter, quoteFn: func(spec domain.TokenSpec) (*domain.PriceObservation, error) {
		price := 100.2
		if spec.Symbol == "AAA" {
			price = 102.0
		}
		return &domain.PriceObservation{Venue: domain.VenueJupiter, Symbol: spec.Symbol, Price: price, ObservedAt: time.Now()}, nil
	}}
	return ray, jup
}

func newTestLoop(t *testing.T, opts LoopOptions) (*Loop, *fakeClock) {
	t.Helper()
	l := NewLoop(opts)
	clk := newFakeClock()
	l.now = clk.now
	l.sleep = clk.sleep
	if l.checker != nil {
		l.checker.now = clk.now
		l.checker.sleep = clk.sleep
	}
	return l, clk
}

func TestLoop_DetectPersistAct(t *testing.T) {
	ray, jup := divergentSources()
	checker := NewChecker(CheckerOptions{Raydium: ray, Jupiter: jup, MinDivergencePct: 1.0})

	ctx, cancel := context.WithCancel(context.Background())
	snk := &fakeSink{onAppend: cancel}
	init := &fakeInitiator{}
	rec := &transitionRecorder{}

	l, _ := newTestLoop(t, LoopOptions{
		Checker:      checker,
		Tokens:       loopTokens,
		Sink:         snk,
		Initiator:    init,
		OnTransition: rec.hook,
	})
	l.Run(ctx)

	// Only AAA crosses the 1% threshold; SOL is the reference asset.
	if len(snk.batches) != 1 || len(snk.batches[0]) != 1 {
		t.Fatalf("expected one batch with one opportunity, got %v", snk.batches)
	}
	if snk.batches[0][0].Symbol != "AAA" {
		t.Errorf("expected AAA opportunity, got %s", snk.batches[0][0].Symbol)
	}
	for _, sym := range ray.symbols {
		if sym == "SOL" {
			t.Error("reference symbol must not be checked")
		}
	}
	if len(init.executed) != 1 || init.executed[0].Symbol != "AAA" {
		t.Errorf("expected one trade for AAA, got %v", init.executed)
	}

	want := []State{StateRunning, StatePersisting, StateActing, StateStopped}
	if len(rec.transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, rec.transitions)
	}
	for i, s := range want {
		if rec.transitions[i] != s {
			t.Errorf("transition %d: expected %s, got %s", i, s, rec.transitions[i])
		}
	}
}

func TestLoop_AllCheckFailuresDoNotRestart(t *testing.T) {
	failing := func(domain.TokenSpec) (*domain.PriceObservation, error) {
		return nil, errors.New("fetch exhausted")
	}
	ray := &stubSource{venue: domain.VenueRaydium, quoteFn: failing}
	jup := &stubSource{venue: domain.VenueJupiter, quoteFn: failing}
	checker := NewChecker(CheckerOptions{Raydium: ray, Jupiter: jup})

	ctx, cancel := context.WithCancel(context.Background())
	snk := &fakeSink{}
	rec := &transitionRecorder{}

	l, clk := newTestLoop(t, LoopOptions{
		Checker:       checker,
		Tokens:        loopTokens,
		Sink:          snk,
		CheckInterval: 60 * time.Second,
		OnTransition:  rec.hook,
	})

	// Every sleep here is cycle pacing; stop after two full cycles.
	base := clk.sleep
	cycles := 0
	l.sleep = func(ctx context.Context, d time.Duration) error {
		cycles++
		if cycles >= 2 {
			cancel()
		}
		return base(ctx, d)
	}

	l.Run(ctx)

	if rec.saw(StateRestarting) {
		t.Error("per-token failures must not trigger a restart")
	}
	if len(snk.batches) != 0 {
		t.Errorf("expected no batches, got %v", snk.batches)
	}
	if cycles < 2 {
		t.Errorf("expected at least 2 cycles, got %d", cycles)
	}
	if rec.transitions[len(rec.transitions)-1] != StateStopped {
		t.Errorf("expected final state Stopped, got %v", rec.transitions)
	}
}

func TestLoop_PanicTriggersRestartWithCooldown(t *testing.T) {
	ray, jup := divergentSources()
	checker := NewChecker(CheckerOptions{Raydium: ray, Jupiter: jup, MinDivergencePct: 1.0})

	ctx, cancel := context.WithCancel(context.Background())
	snk := &fakeSink{panicOn: 1}
	snk.onAppend = cancel // second call succeeds, then stop
	rec := &transitionRecorder{}
	var resets int

	l, clk := newTestLoop(t, LoopOptions{
		Checker:         checker,
		Tokens:          loopTokens,
		Sink:            snk,
		RestartCooldown: 10 * time.Second,
		ResetSession:    func() { resets++ },
		OnTransition:    rec.hook,
	})
	l.Run(ctx)

	if !rec.saw(StateRestarting) {
		t.Fatalf("expected a Restarting transition, transitions: %v", rec.transitions)
	}
	if resets != 1 {
		t.Errorf("expected one session reset, got %d", resets)
	}
	var sawCooldown bool
	for _, d := range clk.sleeps {
		if d == 10*time.Second {
			sawCooldown = true
		}
	}
	if !sawCooldown {
		t.Errorf("expected a 10s cooldown sleep, got %v", clk.sleeps)
	}
	// The second session recovered and persisted the batch.
	if len(snk.batches) != 1 {
		t.Errorf("expected one persisted batch after restart, got %d", len(snk.batches))
	}
	if rec.transitions[len(rec.transitions)-1] != StateStopped {
		t.Errorf("expected final state Stopped, got %v", rec.transitions)
	}
}

func TestLoop_GracefulStopBetweenCycles(t *testing.T) {
	ray := &stubSource{venue: domain.VenueRaydium, quoteFn: func(domain.TokenSpec) (*domain.PriceObservation, error) {
		return nil, nil
	}}
	jup := &stubSource{venue: domain.VenueJupiter, quoteFn: fixedPrice(domain.VenueJupiter, 1.0)}
	checker := NewChecker(CheckerOptions{Raydium: ray, Jupiter: jup})

	ctx, cancel := context.WithCancel(context.Background())
	rec := &transitionRecorder{}
	l, clk := newTestLoop(t, LoopOptions{
		Checker:      checker,
		Tokens:       loopTokens,
		Sink:         &fakeSink{},
		OnTransition: rec.hook,
	})

	base := clk.sleep
	l.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return base(ctx, d)
	}

	l.Run(ctx)

	if l.State() != StateStopped {
		t.Errorf("expected Stopped, got %s", l.State())
	}
	if rec.saw(StateRestarting) {
		t.Error("graceful stop must not pass through Restarting")
	}
}
