package sim

import (
	"sync"
	"time"
)

// Handle cancels a scheduled tick.
type Handle interface {
	Cancel()
}

// Scheduler runs fn once, some time in the future. It is the "request next
// frame" primitive; the Controller keeps at most one pending call.
type Scheduler interface {
	Schedule(fn func(now time.Time)) Handle
}

// TimerScheduler fires ticks on a fixed wall-clock interval.
type TimerScheduler struct {
	Interval time.Duration
}

// NewTimerScheduler creates a scheduler ticking every interval.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TimerScheduler{Interval: interval}
}

// Schedule arms a one-shot timer.
func (s *TimerScheduler) Schedule(fn func(now time.Time)) Handle {
	return timerHandle{time.AfterFunc(s.Interval, func() { fn(time.Now()) })}
}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() {
	h.t.Stop()
}

// FrameScheduler queues ticks until the host signals a new frame via Fire.
// Gio windows and tests drive it explicitly.
type FrameScheduler struct {
	mu         sync.Mutex
	pending    []*frameTask
	invalidate func()
}

// NewFrameScheduler creates a scheduler that calls invalidate whenever a tick
// is queued. invalidate may be nil.
func NewFrameScheduler(invalidate func()) *FrameScheduler {
	return &FrameScheduler{invalidate: invalidate}
}

type frameTask struct {
	fn        func(time.Time)
	cancelled bool
	owner     *FrameScheduler
}

func (t *frameTask) Cancel() {
	t.owner.mu.Lock()
	t.cancelled = true
	t.owner.mu.Unlock()
}

// Schedule queues fn for the next Fire.
func (s *FrameScheduler) Schedule(fn func(now time.Time)) Handle {
	task := &frameTask{fn: fn, owner: s}
	s.mu.Lock()
	s.pending = append(s.pending, task)
	s.mu.Unlock()

	if s.invalidate != nil {
		s.invalidate()
	}
	return task
}

// Fire runs every tick queued before the call. Ticks scheduled while firing
// wait for the next Fire.
func (s *FrameScheduler) Fire(now time.Time) int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	fired := 0
	for _, task := range batch {
		s.mu.Lock()
		cancelled := task.cancelled
		s.mu.Unlock()
		if cancelled {
			continue
		}
		task.fn(now)
		fired++
	}
	return fired
}

// Pending returns the number of live queued ticks.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, task := range s.pending {
		if !task.cancelled {
			n++
		}
	}
	return n
}
