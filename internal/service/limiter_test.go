package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := NewLimiter(3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx))
}

func TestLimiter_DefaultRate(t *testing.T) {
	l := NewLimiter(0)
	require.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_AdmitsFullMinuteBudgetAtOnce(t *testing.T) {
	l := NewLimiter(60)
	require.Equal(t, 60, l.limiter.Burst())
	require.Equal(t, rate.Limit(1), l.limiter.Limit())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	for i := 0; i < 60; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	require.Less(t, time.Since(start), 200*time.Millisecond)
	// the 61st call waits about a second for the next token
	require.Error(t, l.Wait(ctx))
}
