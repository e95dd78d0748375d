package xbreaker_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xbreaker"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

var fastConfig = xretry.Config{
	MaxAttempts:       5,
	InitialDelay:      time.Millisecond,
	BackoffMultiplier: 2,
	MaxDelay:          5 * time.Millisecond,
}

func ExampleRetryThrough() {
	breaker := xbreaker.NewBreaker("inspections",
		xbreaker.WithTripPolicy(xbreaker.ConsecutiveFailures(2)),
	)

	res := xbreaker.RetryThrough(context.Background(), breaker, func(_ context.Context) (string, error) {
		return "", &xretry.StatusError{Code: 503}
	}, fastConfig)

	fmt.Println("attempts:", res.Attempts())
	fmt.Println("open:", xbreaker.IsOpen(res.Err()))
	fmt.Println("state:", breaker.State())
	// Output:
	// attempts: 3
	// open: true
	// state: open
}

func ExampleRetryThenBreak() {
	rtb := xbreaker.NewRetryThenBreak("routes",
		xbreaker.Config{ConsecutiveFailures: 1, Timeout: time.Minute}.Options()...,
	)

	var calls int
	err := rtb.Do(context.Background(), func(_ context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	}, fastConfig)
	fmt.Println("calls:", calls, "err:", err)

	err = rtb.Do(context.Background(), func(_ context.Context) error { return nil }, fastConfig)
	fmt.Println("rejected:", xbreaker.IsBreakerError(err))
	// Output:
	// calls: 5 err: connection reset by peer
	// rejected: true
}
