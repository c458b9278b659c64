// Package dispatcher fans alarm events out to the loaded adapters. Each
// adapter runs in its own goroutine with its own deadline; a slow or
// panicking adapter never affects its siblings.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"alarm-relay/internal/adapters"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/models"
)

const defaultRunTimeout = 30 * time.Second

// Dispatcher owns the set of adapters that loaded successfully
type Dispatcher struct {
	candidates []adapters.Adapter
	timeout    time.Duration
	filter     DoubleFilter
	window     time.Duration
	logger     logging.Logger

	mu     sync.RWMutex
	loaded []adapters.Adapter
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithRunTimeout bounds each adapter run
func WithRunTimeout(d time.Duration) Option {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.timeout = d
		}
	}
}

// WithDoubleFilter drops events whose key was seen within window. A zero
// window disables the filter.
func WithDoubleFilter(f DoubleFilter, window time.Duration) Option {
	return func(ds *Dispatcher) {
		ds.filter = f
		ds.window = window
	}
}

// WithLogger sets the dispatcher logger
func WithLogger(logger logging.Logger) Option {
	return func(ds *Dispatcher) {
		ds.logger = logger
	}
}

// New creates a dispatcher for the given adapters. Call Load before
// Dispatch.
func New(candidates []adapters.Adapter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		candidates: candidates,
		timeout:    defaultRunTimeout,
		logger:     logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithFields(logging.String("component", "dispatcher"))
	return d
}

// Load calls OnLoad on every candidate. Adapters that fail are logged and
// left out; the others are kept. It returns the names of the loaded
// adapters.
func (d *Dispatcher) Load(ctx context.Context) []string {
	var loaded []adapters.Adapter
	var names []string

	for _, a := range d.candidates {
		if err := d.load(ctx, a); err != nil {
			d.logger.Error("Adapter failed to load", err, logging.String("adapter", a.Name()))
			continue
		}
		loaded = append(loaded, a)
		names = append(names, a.Name())
		d.logger.Info("Adapter loaded", logging.String("adapter", a.Name()))
	}

	d.mu.Lock()
	d.loaded = loaded
	d.mu.Unlock()
	return names
}

func (d *Dispatcher) load(ctx context.Context, a adapters.Adapter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.FatalInitError(fmt.Sprintf("panic in %s onLoad: %v", a.Name(), r), nil)
		}
	}()
	if err := a.OnLoad(ctx); err != nil {
		if errors.IsType(err, errors.ErrTypeFatalInit) {
			return err
		}
		return errors.FatalInitError(a.Name()+" onLoad failed", err)
	}
	return nil
}

// Loaded returns the names of the adapters that will receive events
func (d *Dispatcher) Loaded() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.loaded))
	for _, a := range d.loaded {
		names = append(names, a.Name())
	}
	return names
}

// WithEventID tags ctx with the id used to correlate the log lines of one
// event across adapters
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, logging.EventIDKey, id)
}

// EventID returns the id set by WithEventID
func EventID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(logging.EventIDKey).(string)
	return id, ok && id != ""
}

// Dispatch hands event to every loaded adapter and waits until all runs
// finished. It returns false when the event was dropped as invalid or as
// a repeat. A ctx without event id gets a fresh one.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.AlarmEvent) bool {
	if _, ok := EventID(ctx); !ok {
		ctx = WithEventID(ctx, uuid.NewString())
	}
	logger := d.logger.WithContext(ctx)

	if err := event.Validate(); err != nil {
		logger.Warn("Invalid type, event dropped", logging.String("kind", string(event.Kind)))
		return false
	}

	if d.isRepeat(ctx, logger, event) {
		logger.Info("Double alarm filtered", logging.String("kind", string(event.Kind)), logging.String("key", event.DedupKey()))
		return false
	}

	d.mu.RLock()
	targets := append([]adapters.Adapter(nil), d.loaded...)
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, a := range targets {
		wg.Add(1)
		go func(a adapters.Adapter) {
			defer wg.Done()
			d.run(ctx, logger, a, event)
		}(a)
	}
	wg.Wait()
	return true
}

func (d *Dispatcher) run(ctx context.Context, logger logging.Logger, a adapters.Adapter, event models.AlarmEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in adapter run", fmt.Errorf("%v", r),
				logging.String("adapter", a.Name()),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := time.Now()
	a.Run(runCtx, event.Kind, event.Frequency, event)
	logger.Debug("Adapter run finished",
		logging.String("adapter", a.Name()),
		logging.Duration("duration", time.Since(started)),
	)
}

// isRepeat consults the double filter. Filter errors let the event through.
func (d *Dispatcher) isRepeat(ctx context.Context, logger logging.Logger, event models.AlarmEvent) bool {
	if d.filter == nil || d.window <= 0 {
		return false
	}
	seen, err := d.filter.Seen(ctx, event.DedupKey(), d.window)
	if err != nil {
		logger.Warn("Double alarm filter unavailable", logging.Err(err))
		return false
	}
	return seen
}
