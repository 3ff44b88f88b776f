package draft

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Autosaver coalesces rapid edits to the same key into one write after a quiet
// period. Only the newest payload per key is written, and writes for one key
// never overlap.
type Autosaver struct {
	store    Store
	debounce time.Duration
	log      *zap.Logger
	onSave   func(key string, err error)

	mu       sync.Mutex
	pending  map[string]*pendingSave
	inflight map[string]chan struct{}
	// generation per key, bumped by Cancel; older queued writes are dropped
	gen map[string]uint64
}

type pendingSave struct {
	data  []byte
	gen   uint64
	timer *time.Timer
}

func NewAutosaver(store Store, debounce time.Duration, log *zap.Logger) *Autosaver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Autosaver{
		store:    store,
		debounce: debounce,
		log:      log,
		pending:  map[string]*pendingSave{},
		inflight: map[string]chan struct{}{},
		gen:      map[string]uint64{},
	}
}

// OnSave registers a hook called after every background write.
func (a *Autosaver) OnSave(fn func(key string, err error)) {
	a.mu.Lock()
	a.onSave = fn
	a.mu.Unlock()
}

func (a *Autosaver) Store() Store { return a.store }

// Schedule queues data for key, restarting the quiet period.
func (a *Autosaver) Schedule(key string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pendingSave{data: data, gen: a.gen[key]}
	p.timer = time.AfterFunc(a.debounce, func() { a.fire(key, p) })
	a.pending[key] = p
}

func (a *Autosaver) fire(key string, p *pendingSave) {
	a.mu.Lock()
	if a.pending[key] != p {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.write(ctx, key, p); err != nil {
		a.log.Warn("draft autosave failed", zap.String("key", key), zap.Error(err))
	}
}

// write saves p once no other write for key is running. A payload queued
// before the last Cancel of key is dropped.
func (a *Autosaver) write(ctx context.Context, key string, p *pendingSave) error {
	for {
		a.mu.Lock()
		running, busy := a.inflight[key]
		if !busy {
			break
		}
		a.mu.Unlock()
		select {
		case <-running:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// a.mu is held here
	if p.gen != a.gen[key] {
		a.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	a.inflight[key] = done
	hook := a.onSave
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.inflight, key)
		a.mu.Unlock()
		close(done)
	}()

	err := a.store.Save(ctx, key, p.data)
	if hook != nil {
		hook(key, err)
	}
	return err
}

// wait blocks until no write for key is running.
func (a *Autosaver) wait(ctx context.Context, key string) error {
	for {
		a.mu.Lock()
		running, busy := a.inflight[key]
		a.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-running:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Flush writes any queued payload for key immediately. When nothing is queued
// it waits for a write already under way, so a following Load sees it.
func (a *Autosaver) Flush(ctx context.Context, key string) error {
	a.mu.Lock()
	p, ok := a.pending[key]
	if ok {
		p.timer.Stop()
		delete(a.pending, key)
	}
	a.mu.Unlock()

	if !ok {
		return a.wait(ctx, key)
	}
	return a.write(ctx, key, p)
}

// Cancel drops a queued write and waits out one already running, used when the
// draft is discarded or submitted. After it returns no earlier payload can
// reach the store.
func (a *Autosaver) Cancel(ctx context.Context, key string) error {
	a.mu.Lock()
	if p, ok := a.pending[key]; ok {
		p.timer.Stop()
		delete(a.pending, key)
	}
	a.gen[key]++
	a.mu.Unlock()
	return a.wait(ctx, key)
}

// Close flushes every queued write. Called on shutdown.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	keys := make([]string, 0, len(a.pending))
	for k := range a.pending {
		keys = append(keys, k)
	}
	a.mu.Unlock()

	var firstErr error
	for _, k := range keys {
		if err := a.Flush(ctx, k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
