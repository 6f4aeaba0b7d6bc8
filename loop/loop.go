// Package loop provides the single logical execution context of a page:
// every event handler, timer callback and async completion runs here, one at
// a time and to completion, in the order it was posted.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
)

var (
	_ xtheme.Executor = (*Loop)(nil)
	_ Scheduler       = (*Loop)(nil)
)

// Scheduler is the part of a Loop that modules depend on.
type Scheduler interface {
	Post(task func()) bool
	AfterFunc(d time.Duration, task func()) Timer
}

// Loop is a cooperative task queue. Tasks are run either by Run on a
// dedicated goroutine or by Drain on the caller's goroutine; never both.
type Loop struct {
	clock  Clock
	logger *xlog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used for timers (default: RealClock).
func WithClock(c Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the logger used for recovered task panics.
func WithLogger(lg *xlog.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if l.clock == nil {
		l.clock = NewRealClock(nil)
	}
	if l.logger == nil {
		l.logger = xlog.Default()
	}
	return l
}

// Clock returns the loop clock.
func (l *Loop) Clock() Clock { return l.clock }

// Post enqueues a task. Returns false once the loop is closed.
func (l *Loop) Post(task func()) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc runs task on the loop after d. Stopping the returned Timer from
// the loop guarantees task will not run, even if the clock already fired.
func (l *Loop) AfterFunc(d time.Duration, task func()) Timer {
	t := &loopTimer{}
	inner := l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if t.claim() {
				task()
			}
		})
	})
	t.mu.Lock()
	t.inner = inner
	t.mu.Unlock()
	return t
}

// Drain runs queued tasks, including tasks posted while draining, until the
// queue is empty. Returns the number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(task)
		n++
	}
}

// Run processes tasks until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

// Close rejects further posts and stops Run. Queued tasks are discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
}

// Len reports the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Err(fmt.Errorf("%v", r)).Msg("loop: task panic (recovered)")
		}
	}()
	task()
}

// loopTimer arbitrates between the timer firing and Stop: whichever claims first wins.
type loopTimer struct {
	mu    sync.Mutex
	inner Timer
	state int // 0 pending, 1 ran, 2 stopped
}

func (t *loopTimer) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != 0 {
		return false
	}
	t.state = 1
	return true
}

func (t *loopTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != 0 {
		return false
	}
	t.state = 2
	if t.inner != nil {
		t.inner.Stop()
	}
	return true
}
