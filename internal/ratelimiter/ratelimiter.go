// Package ratelimiter throttles connection admission with a token bucket.
package ratelimiter

import "golang.org/x/time/rate"

// RateLimiter wraps golang.org/x/time/rate for connection admission.
//
// Tokens refill at RequestsPerSecond up to Burst. The HTTP adapter calls
// Allow once per accepted socket and drops the socket when it returns false,
// so the limiter never blocks the acceptor.
//
// Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained with the given
// burst. A zero rate disables limiting. A zero burst with a non-zero rate is
// raised to the rate so at least one token can accumulate.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes one token if available and reports whether it did.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Unlimited reports whether the limiter admits everything.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Tokens returns the tokens currently in the bucket. Informational only.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
