package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/martinsuchenak/presenced/internal/log"
)

// DefaultScanInterval is the pause between scheduled scan cycles.
const DefaultScanInterval = 30 * time.Second

// scanRunner is the part of the Engine the scheduler drives.
type scanRunner interface {
	Scan(ctx context.Context, withDistance bool) bool
	DistanceMode() bool
	SetMonitoring(enabled bool)
}

// Scheduler drives periodic scan cycles on a single background task.
// Start turns monitoring on, Stop turns it off and wakes the task; an
// in-flight cycle is never aborted.
type Scheduler struct {
	engine   scanRunner
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{} // non-nil while the task runs
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler for the given engine.
func NewScheduler(engine scanRunner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Scheduler{engine: engine, interval: interval}
}

// Start launches the background task. Only one task runs per scheduler;
// starting an already-running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		log.Debug("Monitoring already running")
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.engine.SetMonitoring(true)
	log.Info("Monitoring started", "interval", s.interval)

	s.wg.Add(1)
	go s.loop(stop)
}

// Stop requests the background task to exit. An in-flight cycle finishes
// first; presence alerting is disabled immediately.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	s.engine.SetMonitoring(false)
	close(stop)
	log.Info("Monitoring stopped")
}

// Running reports whether the background task is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Wait blocks until the background task has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(stop chan struct{}) {
	defer s.wg.Done()

	for {
		s.engine.Scan(context.Background(), s.engine.DistanceMode())

		select {
		case <-stop:
			return
		case <-time.After(s.interval):
		}
	}
}
