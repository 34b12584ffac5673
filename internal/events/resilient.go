package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"aroundtable/pkg/platform/circuit"
	"aroundtable/pkg/requestcontext"
)

// DefaultTrialInterval is how long an open circuit sends everything to the
// fallback before one event is offered to the primary again.
const DefaultTrialInterval = 30 * time.Second

// ResilientPublisher sends to primary and falls back once the breaker opens.
// While open, the primary only sees one trial event per interval; a trial
// that succeeds lets the next event through straight away so the circuit can
// collect the successes it needs to close.
type ResilientPublisher struct {
	primary  Publisher
	fallback Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger

	trialInterval time.Duration
	mu            sync.Mutex
	nextTrial     time.Time
}

// ResilientOption configures a ResilientPublisher.
type ResilientOption func(*ResilientPublisher)

// WithTrialInterval sets the wait between trial events while the circuit is open.
func WithTrialInterval(d time.Duration) ResilientOption {
	return func(p *ResilientPublisher) {
		if d > 0 {
			p.trialInterval = d
		}
	}
}

func NewResilientPublisher(primary, fallback Publisher, breaker *circuit.Breaker, logger *slog.Logger, opts ...ResilientOption) *ResilientPublisher {
	p := &ResilientPublisher{
		primary:       primary,
		fallback:      fallback,
		breaker:       breaker,
		logger:        logger,
		trialInterval: DefaultTrialInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	now := requestcontext.Now(ctx)
	if p.breaker.IsOpen() && !p.claimTrial(now) {
		return p.fallback.Publish(ctx, event)
	}

	err := p.primary.Publish(ctx, event)
	if err == nil {
		_, change := p.breaker.RecordSuccess()
		if change.Closed {
			p.logger.InfoContext(ctx, "event broker recovered", "breaker", p.breaker.Name())
		}
		p.scheduleTrial(time.Time{})
		return nil
	}

	useFallback, change := p.breaker.RecordFailure()
	if change.Opened {
		p.logger.WarnContext(ctx, "event broker circuit opened",
			"breaker", p.breaker.Name(),
			"error", err,
		)
	}
	if useFallback {
		p.scheduleTrial(now.Add(p.trialInterval))
		return p.fallback.Publish(ctx, event)
	}
	return err
}

// claimTrial reports whether this call may try the primary while the circuit
// is open. At most one caller wins each trial slot.
func (p *ResilientPublisher) claimTrial(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.Before(p.nextTrial) {
		return false
	}
	p.nextTrial = now.Add(p.trialInterval)
	return true
}

func (p *ResilientPublisher) scheduleTrial(at time.Time) {
	p.mu.Lock()
	p.nextTrial = at
	p.mu.Unlock()
}
