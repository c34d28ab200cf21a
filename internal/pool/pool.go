// Package pool keeps a small FIFO buffer of generated content topped up in
// the background so games never wait on the generator while drawing.
package pool

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

// FetchFunc asks the generator for n more items. It runs off the loop.
type FetchFunc[T any] func(ctx context.Context, n int) ([]T, error)

type Options struct {
	Name     string
	Initial  int // first fetch size; Batch when zero
	Batch    int // top-up size
	LowWater int // a draw leaving fewer items than this triggers a top-up
}

// Pool is owned by one game instance and must only be touched on the loop.
// At most one fetch is outstanding; triggers that arrive meanwhile are
// folded into a single re-check when it lands.
type Pool[T any] struct {
	sched eventloop.Scheduler
	fetch FetchFunc[T]
	opts  Options

	items    []T
	inFlight bool
	recheck  int
	gen      int
	err      error
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc

	// OnFill runs on the loop after items were added.
	OnFill func()
}

func New[T any](sched eventloop.Scheduler, fetch FetchFunc[T], opts Options) *Pool[T] {
	if opts.Batch <= 0 {
		opts.Batch = 10
	}
	if opts.Initial <= 0 {
		opts.Initial = opts.Batch
	}
	if opts.LowWater < 0 {
		opts.LowWater = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool[T]{sched: sched, fetch: fetch, opts: opts, ctx: ctx, cancel: cancel}
}

// Prime fills an empty pool with the initial batch.
func (p *Pool[T]) Prime() {
	if len(p.items) > 0 {
		return
	}
	p.request(p.opts.Initial)
}

// Ensure fetches a batch when fewer than min items are buffered.
func (p *Pool[T]) Ensure(min int) {
	if len(p.items) >= min {
		return
	}
	if p.inFlight {
		if min > p.recheck {
			p.recheck = min
		}
		return
	}
	p.request(p.opts.Batch)
}

// Draw pops the oldest item. An empty pool reports false and starts a
// fetch; callers retry on their next tick.
func (p *Pool[T]) Draw() (T, bool) {
	var zero T
	if p.closed {
		return zero, false
	}
	if len(p.items) == 0 {
		p.Ensure(max(1, p.opts.LowWater))
		return zero, false
	}
	it := p.items[0]
	p.items[0] = zero
	p.items = p.items[1:]
	if len(p.items) < p.opts.LowWater {
		p.Ensure(p.opts.LowWater)
	}
	return it, true
}

func (p *Pool[T]) Len() int       { return len(p.items) }
func (p *Pool[T]) Fetching() bool { return p.inFlight }

// Err is the last fetch failure, cleared by the next successful fetch.
func (p *Pool[T]) Err() error { return p.err }

// Reset drops buffered items and forgets any outstanding fetch.
func (p *Pool[T]) Reset() {
	p.gen++
	p.items = nil
	p.inFlight = false
	p.recheck = 0
	p.err = nil
}

// Close discards buffered items and any response still on its way.
func (p *Pool[T]) Close() {
	if p.closed {
		return
	}
	p.Reset()
	p.closed = true
	p.cancel()
}

func (p *Pool[T]) request(n int) {
	if p.closed || p.inFlight {
		return
	}
	p.inFlight = true
	gen := p.gen
	ctx := p.ctx
	p.sched.Go(func() {
		items, err := p.fetch(ctx, n)
		p.sched.Post(func() { p.land(gen, items, err) })
	})
}

func (p *Pool[T]) land(gen int, items []T, err error) {
	if p.closed || gen != p.gen {
		log.Debug().Str("pool", p.opts.Name).Msg("dropping stale pool response")
		return
	}
	p.inFlight = false
	recheck := p.recheck
	p.recheck = 0
	if err != nil {
		p.err = err
		log.Warn().Err(err).Str("pool", p.opts.Name).Msg("pool fetch failed")
		return
	}
	p.err = nil
	p.items = append(p.items, items...)
	if len(items) > 0 && p.OnFill != nil {
		p.OnFill()
	}
	if recheck > 0 && len(items) > 0 {
		p.Ensure(recheck)
	}
}
