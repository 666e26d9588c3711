package service

import (
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// Breakers holds one circuit breaker per external dependency class. The set
// is constructed once per process and injected into every component that
// talks to a dependency, so tests can build isolated instances.
type Breakers struct {
	Embedding   *gobreaker.CircuitBreaker
	Generation  *gobreaker.CircuitBreaker
	VectorStore *gobreaker.CircuitBreaker
}

// NewBreakers builds the per-dependency breakers. Each trips open after
// threshold consecutive failures, fails fast for the cooldown period, then
// allows a single half-open trial call.
func NewBreakers(threshold uint32, cooldown time.Duration) *Breakers {
	if threshold == 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breakers{
		Embedding:   newBreaker("embedding-provider", threshold, cooldown),
		Generation:  newBreaker("generation-provider", threshold, cooldown),
		VectorStore: newBreaker("vector-store", threshold, cooldown),
	}
}

func newBreaker(name string, threshold uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// IsBreakerOpen reports whether err came from a breaker refusing the call.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
