package agent

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// ErrBreakerOpen is the error string returned while a step's circuit is
// open. Callers match on it verbatim.
const ErrBreakerOpen = "Circuit breaker open"

const (
	backoffBase = 150 * time.Millisecond
	backoffCap  = time.Second
)

// Config tunes a Runner. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	MaxRetries       int
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       2,
		Timeout:          time.Second,
		BreakerThreshold: 3,
		BreakerCooldown:  30 * time.Second,
	}
}

// Runner executes one step with timeout, retry, and a circuit breaker.
// Breaker state belongs to the Runner instance.
//
// The breaker is a two-state machine: Closed opens after BreakerThreshold
// consecutive exhausted executions; once BreakerCooldown has elapsed the
// next execution fully resets it to Closed. There is no half-open probe.
type Runner struct {
	step   Step
	cfg    Config
	logger log.Logger
	hooks  Hooks

	mu           sync.Mutex
	failureCount int
	circuitOpen  bool
	openedAt     time.Time
}

// NewRunner wraps a step. hooks may be zero-valued.
func NewRunner(step Step, cfg Config, logger log.Logger, hooks Hooks) *Runner {
	return &Runner{
		step:   step,
		cfg:    cfg,
		logger: logger.With("agent", step.Name()),
		hooks:  hooks,
	}
}

// Name returns the wrapped step's name.
func (r *Runner) Name() string { return r.step.Name() }

// Execute runs the step with up to MaxRetries+1 attempts. Each attempt
// races the step against the configured timeout; the losing step sees its
// context cancelled. Backoff sleeps happen between failed attempts, never
// after the last.
func (r *Runner) Execute(ctx context.Context, sctx Context, input any) Result {
	start := time.Now()

	if r.breakerOpen() {
		r.logger.Warn(ctx, "circuit breaker open, refusing execution")
		if r.hooks.OnStep != nil {
			r.hooks.OnStep(r.step.Name(), "breaker_open", 0, 0)
		}
		return Result{Success: false, Error: ErrBreakerOpen}
	}

	var lastErr error
	retries := 0

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		data, err := r.attempt(ctx, sctx, input)
		if err == nil {
			r.recordSuccess()
			res := Result{
				Success:  true,
				Data:     data,
				Duration: time.Since(start).Seconds(),
				Retries:  retries,
			}
			if r.hooks.OnStep != nil {
				r.hooks.OnStep(r.step.Name(), "success", res.Duration, retries)
			}
			return res
		}

		lastErr = err
		retries = attempt

		if attempt < r.cfg.MaxRetries {
			backoff := min(backoffBase<<attempt, backoffCap)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	r.recordFailure(ctx)
	res := Result{
		Success:  false,
		Error:    lastErr.Error(),
		Duration: time.Since(start).Seconds(),
		Retries:  retries,
	}
	if r.hooks.OnStep != nil {
		r.hooks.OnStep(r.step.Name(), "failure", res.Duration, retries)
	}
	r.logger.Error(ctx, lastErr, "step failed", "retries", retries)
	return res
}

func (r *Runner) attempt(ctx context.Context, sctx Context, input any) (any, error) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	type outcome struct {
		data any
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := r.step.Process(actx, sctx, input)
		done <- outcome{data, err}
	}()

	select {
	case out := <-done:
		return out.data, out.err
	case <-actx.Done():
		// The goroutine sees actx cancelled and unwinds on its own; its
		// buffered send never blocks.
		return nil, actx.Err()
	}
}

func (r *Runner) breakerOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.circuitOpen {
		return false
	}
	if time.Since(r.openedAt) > r.cfg.BreakerCooldown {
		r.circuitOpen = false
		r.failureCount = 0
		return false
	}
	return true
}

func (r *Runner) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failureCount = 0
}

func (r *Runner) recordFailure(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failureCount++
	if r.failureCount >= r.cfg.BreakerThreshold {
		r.circuitOpen = true
		r.openedAt = time.Now()
		r.logger.Warn(ctx, "circuit breaker opened", "failures", r.failureCount)
		if r.hooks.OnBreakerOpen != nil {
			r.hooks.OnBreakerOpen(r.step.Name())
		}
	}
}
