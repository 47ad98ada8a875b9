package server

import "testing"

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := newRateLimiter(2)
	if !l.allow("client-a") {
		t.Fatal("expected the first request to be allowed")
	}
	if !l.allow("client-a") {
		t.Fatal("expected the second request within burst to be allowed")
	}
	if l.allow("client-a") {
		t.Error("expected a third immediate request to exceed the burst")
	}
}

func TestRateLimiterTracksClientsIndependently(t *testing.T) {
	l := newRateLimiter(1)
	if !l.allow("client-a") {
		t.Fatal("expected client-a's first request to be allowed")
	}
	if !l.allow("client-b") {
		t.Error("expected client-b to have its own independent bucket")
	}
}

func TestNewRateLimiterDefaultsNonPositiveToTen(t *testing.T) {
	l := newRateLimiter(0)
	if l.perMinute != 10 {
		t.Errorf("expected a default of 10/min, got %d", l.perMinute)
	}
}
