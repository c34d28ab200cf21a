package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler is everything a loop-owned component may ask of its loop.
// Post and AfterFunc callbacks always run on the loop goroutine; Go runs
// blocking work (network calls) somewhere else and must hand its result
// back with Post.
type Scheduler interface {
	Post(fn func())
	Go(work func())
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

type Timer interface {
	// Stop reports whether the call prevented fn from running.
	Stop() bool
}

// Loop is a single goroutine draining an unbounded FIFO of closures.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context) *Loop {
	ctx, cancel := context.WithCancel(parent)
	l := &Loop{
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			if l.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// Post never blocks, including when called from the loop itself.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) Go(work func()) { go work() }

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return context.Canceled
	}
}

// Close stops the loop; queued closures that have not started are dropped.
func (l *Loop) Close() {
	l.cancel()
	<-l.done
}

func (l *Loop) Done() <-chan struct{} { return l.done }

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

// Stop also suppresses a fire that was already queued on the loop.
func (t *loopTimer) Stop() bool {
	t.t.Stop()
	return t.stopped.CompareAndSwap(false, true)
}
