package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/subfusion/checkout/internal/checkout/core/ports"
)

var ErrCircuitOpen = errors.New("circuit open")

var _ ports.Gateway = (*CircuitBreakerGateway)(nil)

type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	IsFailure        func(error) bool
}

// CircuitBreakerGateway fails fast while the gateway keeps timing out or
// answering 5xx. It never retries; a rejected call is the caller's to repeat.
type CircuitBreakerGateway struct {
	next ports.Gateway
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu           sync.Mutex
	state        int
	failures     int
	successes    int
	openedAt     time.Time
	halfInFlight bool
}

const (
	cbClosed = iota
	cbOpen
	cbHalfOpen
)

func NewCircuitBreakerGateway(next ports.Gateway, cfg CircuitBreakerConfig) *CircuitBreakerGateway {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool {
			return errors.Is(err, ErrTimeout) || errors.Is(err, ErrServer) || errors.Is(err, context.DeadlineExceeded)
		}
	}
	return &CircuitBreakerGateway{next: next, cfg: cfg, now: time.Now, state: cbClosed}
}

func (g *CircuitBreakerGateway) CreateSession(ctx context.Context, req ports.SessionRequest) (ports.SessionResponse, error) {
	if err := g.beforeCall(); err != nil {
		return ports.SessionResponse{}, err
	}
	resp, err := g.next.CreateSession(ctx, req)
	g.afterCall(err)
	return resp, err
}

func (g *CircuitBreakerGateway) Validate(ctx context.Context, valID string) (ports.Validation, error) {
	if err := g.beforeCall(); err != nil {
		return ports.Validation{}, err
	}
	v, err := g.next.Validate(ctx, valID)
	g.afterCall(err)
	return v, err
}

func (g *CircuitBreakerGateway) beforeCall() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case cbClosed:
		return nil
	case cbOpen:
		if g.now().Sub(g.openedAt) < g.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		g.state = cbHalfOpen
		g.successes = 0
		g.halfInFlight = false
		fallthrough
	case cbHalfOpen:
		if g.halfInFlight {
			return ErrCircuitOpen
		}
		g.halfInFlight = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (g *CircuitBreakerGateway) afterCall(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == cbHalfOpen {
		g.halfInFlight = false
	}

	if err == nil || !g.cfg.IsFailure(err) {
		switch g.state {
		case cbClosed:
			g.failures = 0
		case cbHalfOpen:
			g.successes++
			if g.successes >= g.cfg.SuccessThreshold {
				g.state = cbClosed
				g.failures = 0
				g.successes = 0
			}
		}
		return
	}

	switch g.state {
	case cbClosed:
		g.failures++
		if g.failures >= g.cfg.FailureThreshold {
			g.trip()
		}
	case cbHalfOpen:
		g.trip()
	}
}

func (g *CircuitBreakerGateway) trip() {
	g.state = cbOpen
	g.openedAt = g.now()
	g.failures = g.cfg.FailureThreshold
	g.successes = 0
	g.halfInFlight = false
}
