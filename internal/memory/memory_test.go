package memory

import (
	"context"
	"errors"
	"math"
	"runtime/debug"
	"testing"
	"time"
)

func newTestMonitor(limit int64, alloc *uint64) *Monitor {
	m := NewMonitor(Config{
		MemoryLimitBytes:  limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Hour,
	})
	m.sample = func() uint64 { return *alloc }
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HighWaterMark >= cfg.CriticalWaterMark {
		t.Errorf("HighWaterMark %.2f should be below CriticalWaterMark %.2f", cfg.HighWaterMark, cfg.CriticalWaterMark)
	}
	if cfg.CheckInterval <= 0 {
		t.Errorf("CheckInterval = %v, want positive", cfg.CheckInterval)
	}
}

func TestMonitorPauseAndResume(t *testing.T) {
	alloc := uint64(100)
	m := newTestMonitor(1000, &alloc)

	m.check()
	if m.IsPaused() {
		t.Fatal("10% usage should not pause")
	}
	if got := m.Usage(); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Usage() = %v, want 0.1", got)
	}

	alloc = 900
	m.check()
	if !m.IsPaused() {
		t.Fatal("90% usage should pause")
	}

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	// Between the marks the monitor stays paused.
	alloc = 800
	m.check()
	if !m.IsPaused() {
		t.Fatal("80% usage should keep the pause")
	}

	alloc = 500
	m.check()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after recovery")
	}
}

func TestMonitorWaitHonoursContext(t *testing.T) {
	alloc := uint64(990)
	m := newTestMonitor(1000, &alloc)
	m.check()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	alloc := uint64(990)
	m := newTestMonitor(1000, &alloc)
	m.check()

	m.Stop()
	m.Stop()
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait after Stop = %v, want nil", err)
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	old := debug.SetMemoryLimit(math.MaxInt64)
	defer debug.SetMemoryLimit(old)

	m := NewMonitor(DefaultConfig())
	m.Start()
	defer m.Stop()

	m.check()
	if m.IsPaused() || m.Usage() != 0 {
		t.Error("a monitor without a limit never pauses")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
}
