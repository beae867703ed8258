package errors

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	ErrorThreshold         = 0.5
	MinRequests            = 10
	MaxConsecutiveFailures = 5
	WindowDuration         = time.Minute
	TimeoutDuration        = 30 * time.Second
	HalfOpenMaxRequests    = 3
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var (
	// ErrCircuitOpen is returned without calling fn while the breaker is open.
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	errHalfOpenTooManyRequests = fmt.Errorf("%w: half-open probe limit reached", ErrCircuitOpen)
)

// CircuitBreaker stops hammering an upstream that keeps failing. While closed it trips on
// MaxConsecutiveFailures in a row, or on an error rate of ErrorThreshold over at least
// MinRequests calls within the current WindowDuration.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	requests        int
	consecutive     int
	windowStart     time.Time
	lastFailureTime time.Time
	isFailure       func(error) bool
	now             func() time.Time
}

// BreakerOption customises a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithFailureFilter limits which errors count against the upstream. Errors the filter
// rejects are returned to the caller but recorded as a healthy response.
func WithFailureFilter(isFailure func(error) bool) BreakerOption {
	return func(cb *CircuitBreaker) {
		if isFailure != nil {
			cb.isFailure = isFailure
		}
	}
}

func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:     StateClosed,
		isFailure: func(err error) bool { return err != nil },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.windowStart = cb.now()

	return cb
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < TimeoutDuration {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transitionToHalfOpenLocked()
	case StateClosed:
		if cb.now().Sub(cb.windowStart) >= WindowDuration {
			cb.resetCountersLocked()
		}
	}

	if cb.state == StateHalfOpen && cb.requests >= HalfOpenMaxRequests {
		cb.mu.Unlock()
		return errHalfOpenTooManyRequests
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++

	if callErr != nil && cb.isFailure(callErr) {
		cb.failures++
		cb.consecutive++

		if cb.state == StateHalfOpen {
			cb.tripToOpenLocked()
		} else {
			cb.evaluateState()
		}

		return callErr
	}

	cb.successes++
	cb.consecutive = 0

	if cb.state == StateHalfOpen && cb.successes >= HalfOpenMaxRequests {
		cb.state = StateClosed
		cb.resetCountersLocked()
	}

	return callErr
}

func (cb *CircuitBreaker) evaluateState() {
	if cb.consecutive >= MaxConsecutiveFailures {
		cb.tripToOpenLocked()
		return
	}

	if cb.requests < MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= ErrorThreshold {
		cb.tripToOpenLocked()
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
	cb.consecutive = 0
	cb.windowStart = cb.now()
}

func (cb *CircuitBreaker) transitionToHalfOpenLocked() {
	cb.state = StateHalfOpen
	cb.resetCountersLocked()
}

func (cb *CircuitBreaker) tripToOpenLocked() {
	cb.state = StateOpen
	cb.lastFailureTime = cb.now()
	cb.resetCountersLocked()
}
