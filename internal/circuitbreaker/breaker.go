// Package circuitbreaker shields the chain data gateway from upstream
// providers that keep failing. Each provider and chain pair gets its own
// circuit, so an Etherscan outage on one chain does not block RPC calls
// or other chains.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State of a single circuit.
type State int

const (
	StateClosed   State = iota // calls flow through
	StateOpen                  // calls are rejected until the cooldown passes
	StateHalfOpen              // one trial call is in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

var stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "prescreen",
	Subsystem: "circuitbreaker",
	Name:      "state_transitions_total",
	Help:      "Circuit state transitions by key, from-state, and to-state.",
}, []string{"key", "from_state", "to_state"})

func init() {
	prometheus.MustRegister(stateTransitions)
}

type circuit struct {
	state    State
	failures int
	openedAt time.Time
}

// Breaker keeps an independent circuit per key. A circuit trips open after
// threshold consecutive failures, rejects calls for the cooldown period,
// then lets a single trial call decide whether it closes again.
type Breaker struct {
	mu        sync.Mutex
	circuits  map[string]*circuit
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// New returns a Breaker that trips after threshold consecutive failures
// and rejects calls for the given cooldown before trialing recovery.
// Non-positive arguments fall back to 5 failures and 30 seconds.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		circuits:  make(map[string]*circuit),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call under key may proceed. An open circuit whose
// cooldown has elapsed moves to half-open and admits exactly one trial call.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok {
		return true
	}
	switch c.state {
	case StateOpen:
		if b.now().Sub(c.openedAt) >= b.cooldown {
			b.shift(key, c, StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return false
	}
	return true
}

// RecordSuccess clears the failure streak. A successful trial call closes
// a half-open circuit.
func (b *Breaker) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok {
		return
	}
	c.failures = 0
	if c.state == StateHalfOpen {
		b.shift(key, c, StateClosed)
	}
}

// RecordFailure extends the failure streak and trips the circuit when the
// streak reaches the threshold. A failed trial call reopens immediately.
func (b *Breaker) RecordFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok {
		c = &circuit{}
		b.circuits[key] = c
	}
	c.failures++

	switch {
	case c.state == StateHalfOpen:
		c.openedAt = b.now()
		b.shift(key, c, StateOpen)
	case c.state == StateClosed && c.failures >= b.threshold:
		c.openedAt = b.now()
		b.shift(key, c, StateOpen)
	}
}

// State returns the circuit state for key. Keys never seen are closed.
func (b *Breaker) State(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.circuits[key]; ok {
		return c.state
	}
	return StateClosed
}

// shift moves c to a new state under b.mu.
func (b *Breaker) shift(key string, c *circuit, to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	stateTransitions.WithLabelValues(key, from.String(), to.String()).Inc()
}
