package main

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestGuardTTL_OutlivesLongestSubmission(t *testing.T) {
	for _, timeout := range []time.Duration{time.Second, 60 * time.Second, 5 * time.Minute} {
		ttl := guardTTL(timeout)
		if ttl <= longestChain*timeout {
			t.Fatalf("timeout %s: ttl %s does not outlive %d sequential calls", timeout, ttl, longestChain)
		}
	}
	if got := guardTTL(60 * time.Second); got != 210*time.Second {
		t.Fatalf("expected 210s for the default timeout, got %s", got)
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := newLogger("json", "warn")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatalf("warn should be enabled at warn level")
	}
	if !newLogger("text", "bogus").Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("unknown level should fall back to info")
	}
}
