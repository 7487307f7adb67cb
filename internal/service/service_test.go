package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"adsconsole/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ─────────────────────────────────────────────────────────────
// runningGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("save") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("save") {
		t.Fatal("expected second TryLock for same key to fail")
	}
	if !g.Running("save") {
		t.Fatal("expected key to be reported as running")
	}
	if !g.TryLock("refresh") {
		t.Fatal("expected TryLock for different key to succeed")
	}
	g.Unlock("save")
	g.Unlock("refresh")

	if g.Running("save") {
		t.Fatal("expected key to be released")
	}
	if !g.TryLock("save") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("save")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("save") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("save")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestRunningGuard_WaitAllRespectsContext(t *testing.T) {
	var g service.ExportedRunningGuard
	g.TryLock("save")
	defer g.Unlock("save")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	g.WaitAll(ctx)
	if time.Since(start) > time.Second {
		t.Fatal("WaitAll ignored context deadline")
	}
}
