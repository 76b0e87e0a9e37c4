package locks

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryGuard_RejectsReentry(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "80001")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, "80001"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	other, err := g.Acquire(ctx, "80002")
	if err != nil {
		t.Fatalf("independent key: %v", err)
	}
	other()

	release()
	release()
	again, err := g.Acquire(ctx, "80001")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestMemoryGuard_OneWinnerUnderContention(t *testing.T) {
	g := NewMemoryGuard()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire(context.Background(), "80001"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestNew_DefaultsToMemory(t *testing.T) {
	g, err := New(context.Background(), "", time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := g.(*MemoryGuard); !ok {
		t.Fatalf("expected MemoryGuard, got %T", g)
	}
}

func TestRedisGuard(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	g, err := NewRedisGuard(ctx, addr, 10*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	key := "test-" + time.Now().Format("150405.000000000")
	release, err := g.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, key); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	release()
	again, err := g.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}
