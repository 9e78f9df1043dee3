package monitor

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeScanRunner struct {
	mu           sync.Mutex
	scans        int
	distanceMode bool
	monitoring   bool
}

func (f *fakeScanRunner) Scan(ctx context.Context, withDistance bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return true
}

func (f *fakeScanRunner) DistanceMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.distanceMode
}

func (f *fakeScanRunner) SetMonitoring(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitoring = enabled
}

func (f *fakeScanRunner) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func (f *fakeScanRunner) monitoringOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monitoring
}

func TestScheduler_RunsCycles(t *testing.T) {
	runner := &fakeScanRunner{}
	s := NewScheduler(runner, time.Millisecond)

	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should report running after Start")
	}
	if !runner.monitoringOn() {
		t.Error("Start should enable monitoring")
	}

	deadline := time.Now().Add(5 * time.Second)
	for runner.scanCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d cycles ran", runner.scanCount())
		}
		time.Sleep(time.Millisecond)
	}

	s.Stop()
	s.Wait()

	if s.Running() {
		t.Error("scheduler should report stopped after Stop")
	}
	if runner.monitoringOn() {
		t.Error("Stop should disable monitoring")
	}

	// No further cycles once the task has exited.
	count := runner.scanCount()
	time.Sleep(10 * time.Millisecond)
	if got := runner.scanCount(); got != count {
		t.Errorf("scans kept running after Stop: %d -> %d", count, got)
	}
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	runner := &fakeScanRunner{}
	s := NewScheduler(runner, time.Hour)

	s.Start()
	s.Start()

	if !s.Running() {
		t.Fatal("scheduler should be running")
	}

	s.Stop()
	s.Stop()
	s.Wait()

	// A single long-interval task runs exactly one cycle before sleeping.
	if got := runner.scanCount(); got != 1 {
		t.Errorf("got %d cycles, want 1 from a single task", got)
	}
}

func TestScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(&fakeScanRunner{}, 0)
	if s.interval != DefaultScanInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultScanInterval)
	}
}
