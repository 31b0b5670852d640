// README: Live ETA watcher: periodic re-quote where only the latest request applies.
package quote

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Computer is what the watcher polls. *Engine satisfies it.
type Computer interface {
	Compute(ctx context.Context, origin, destination Location) (Quote, error)
}

// Watcher keeps one quote request in flight at a time. Starting a new
// request cancels the previous one, and a result is applied only if no newer
// request was issued meanwhile.
type Watcher struct {
	engine Computer
	apply  func(Quote, error)

	ctx    context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(ctx context.Context, engine Computer, apply func(Quote, error)) *Watcher {
	ctx, stop := context.WithCancel(ctx)
	return &Watcher{engine: engine, apply: apply, ctx: ctx, stop: stop}
}

// Request starts a new computation and supersedes any in-flight one.
func (w *Watcher) Request(origin, destination Location) {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.seq++
	seq := w.seq
	ctx, cancel := context.WithCancel(w.ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer cancel()
		q, err := w.engine.Compute(ctx, origin, destination)
		w.mu.Lock()
		defer w.mu.Unlock()
		if seq != w.seq || w.ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		w.apply(q, err)
	}()
}

// Run requests immediately and then every interval until ctx or the watcher
// is stopped. route is read before each request so callers may swap it.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, route func() (Location, Location)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	w.Request(route())
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ctx.Done():
			return
		case <-t.C:
			w.Request(route())
		}
	}
}

// Stop cancels the in-flight request and waits for it to return. No result
// is applied after Stop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stop()
	w.mu.Unlock()
	w.wg.Wait()
}
