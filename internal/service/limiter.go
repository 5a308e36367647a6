package service

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket refilled at perMinute/60 per second holding up to
// perMinute tokens. A fresh or idle limiter admits a whole minute's budget at
// once, so any 60 second window sees at most about twice perMinute calls.
// Callers past the budget block until a token frees.
type Limiter struct {
	limiter *rate.Limiter
}

func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)}
}

func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
