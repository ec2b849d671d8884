// Package task runs a control step on a background goroutine at a fixed
// period, with pause and resume.
//
// A paused task finishes its in-flight step before Pause returns, so a
// caller can rewrite several pieces of shared state between Pause and
// Resume without the loop observing a half-applied update. WithPaused
// wraps that pattern.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultPeriod is the control period of the drive and flywheel loops.
const DefaultPeriod = 2 * time.Millisecond

var (
	ErrAlreadyStarted = errors.New("task: already started")
	ErrStopped        = errors.New("task: stopped")
)

type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type StepFunc func(ctx context.Context)

type Task struct {
	name   string
	period time.Duration
	step   StepFunc
	log    *log.Entry

	mu     sync.Mutex
	cond   *sync.Cond
	state  State
	inStep bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an idle task. A non-positive period uses DefaultPeriod.
func New(name string, period time.Duration, step StepFunc) *Task {
	if period <= 0 {
		period = DefaultPeriod
	}
	t := &Task{
		name:   name,
		period: period,
		step:   step,
		log:    log.WithField("task", name),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *Task) Name() string          { return t.name }
func (t *Task) Period() time.Duration { return t.period }

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start launches the loop. The loop ends when ctx is done or Stop is
// called. A stopped task cannot be restarted; create a new one.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case Running, Paused:
		return ErrAlreadyStarted
	case Stopped:
		return ErrStopped
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.state = Running
	go t.run(ctx)
	t.log.WithField("period", t.period).Debug("task started")
	return nil
}

func (t *Task) run(ctx context.Context) {
	defer func() {
		t.mu.Lock()
		t.state = Stopped
		t.inStep = false
		t.cond.Broadcast()
		t.mu.Unlock()
		close(t.done)
	}()
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	// unblock waiters if the parent context ends while paused
	stopWatch := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.state = Stopped
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stopWatch()

	for {
		t.mu.Lock()
		for t.state == Paused {
			t.cond.Wait()
		}
		if t.state != Running {
			t.mu.Unlock()
			return
		}
		t.inStep = true
		t.mu.Unlock()

		t.step(ctx)

		t.mu.Lock()
		t.inStep = false
		t.cond.Broadcast()
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Pause stops the loop after its current step. It returns once no step
// is running. Pausing an idle or stopped task is a no-op.
func (t *Task) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Running {
		return
	}
	t.state = Paused
	for t.inStep {
		t.cond.Wait()
	}
	t.log.Debug("task paused")
}

func (t *Task) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Paused {
		return
	}
	t.state = Running
	t.cond.Broadcast()
	t.log.Debug("task resumed")
}

// WithPaused runs fn while the loop is parked, then restores the prior
// state. If the task is not running fn simply runs.
func (t *Task) WithPaused(fn func()) {
	wasRunning := t.State() == Running
	if wasRunning {
		t.Pause()
		defer t.Resume()
	}
	fn()
}

// Stop ends the loop and waits for the goroutine to exit.
func (t *Task) Stop() {
	t.mu.Lock()
	if t.state == Idle || t.state == Stopped {
		t.state = Stopped
		t.mu.Unlock()
		return
	}
	t.state = Stopped
	t.cond.Broadcast()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done
	t.log.Debug("task stopped")
}
