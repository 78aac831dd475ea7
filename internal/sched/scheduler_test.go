package sched

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/types"
)

func TestMain(m *testing.M) {
	logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

type countingEngine struct {
	cycles  atomic.Int32
	panicAt int32
}

func (e *countingEngine) Cycle(context.Context) []types.SymbolResult {
	n := e.cycles.Add(1)
	if e.panicAt > 0 && n == e.panicAt {
		panic("boom")
	}
	return nil
}

func (e *countingEngine) CycleNow(context.Context) []types.SymbolResult          { return nil }
func (e *countingEngine) SendNewsAlerts(context.Context, int) []types.SymbolResult { return nil }

func testSettings(t *testing.T) *store.Settings {
	t.Helper()
	return store.LoadSettings(filepath.Join(t.TempDir(), "settings.json"))
}

func TestRunIntervalRunsCycleAndStops(t *testing.T) {
	eng := &countingEngine{}
	s := New(testSettings(t), eng)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunInterval(ctx)
		close(done)
	}()

	// First cycle fires immediately; the loop then waits out the
	// interval, so cancelling must unblock it promptly.
	deadline := time.After(2 * time.Second)
	for eng.cycles.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("cycle never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}

	if got := eng.cycles.Load(); got != 1 {
		t.Errorf("expected exactly one cycle, got %d", got)
	}
}

func TestRunCycleRecoversFromPanic(t *testing.T) {
	eng := &countingEngine{panicAt: 1}
	s := New(testSettings(t), eng)

	if panicked := s.runCycle(context.Background()); !panicked {
		t.Error("expected panic to be reported")
	}
	if panicked := s.runCycle(context.Background()); panicked {
		t.Error("second cycle should run cleanly")
	}
}

func TestRunCronRejectsBadInputs(t *testing.T) {
	s := New(testSettings(t), &countingEngine{})

	if err := s.RunCron(context.Background(), "0 9-16 * * 1-5", "Not/AZone"); err == nil {
		t.Error("expected error for unknown timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunCron(ctx, "not a cron spec", "America/New_York"); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestRunCronStopsOnCancel(t *testing.T) {
	s := New(testSettings(t), &countingEngine{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.RunCron(ctx, "0 9-16 * * 1-5", "America/New_York")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunCron returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunCron did not stop on cancel")
	}
}
