package ratelimiter

import (
	"testing"
	"time"
)

func TestTakeTokenBurst(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	for i := 0; i < 3; i++ {
		if !tb.TakeToken() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if tb.TakeToken() {
		t.Fatal("bucket should be empty")
	}
}

func TestRefillUnderFrequentPolling(t *testing.T) {
	tb := NewTokenBucket(1, 100)
	if !tb.TakeToken() {
		t.Fatal("initial token missing")
	}

	// Poll faster than one token interval; fractional refill must
	// still produce a token.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if tb.TakeToken() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("bucket never refilled under polling")
}

func TestWaitEventuallyReturns(t *testing.T) {
	tb := NewTokenBucket(1, 50)
	tb.TakeToken()

	done := make(chan struct{})
	go func() {
		tb.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}
