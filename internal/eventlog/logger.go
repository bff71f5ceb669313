package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"worldbuilder/internal/logging"
	"worldbuilder/internal/services"
)

const defaultTimeout = 10 * time.Second

// Sink delivers a sanitized event.
type Sink interface {
	InsertEvent(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) InsertEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Outcome describes one delivery attempt. Err is nil on success.
type Outcome struct {
	Event    Event
	Err      error
	Duration time.Duration
}

// Dropped reports whether the event failed to reach the sink.
func (o Outcome) Dropped() bool {
	return o.Err != nil
}

// Hook observes delivery outcomes. Hooks run synchronously after each
// attempt and must not block for long.
type Hook func(ctx context.Context, outcome Outcome)

// Logger sends events to a Sink and never reports failure to the caller.
type Logger struct {
	sink          Sink
	limits        Limits
	timeout       time.Duration
	defaultSource string
	enabled       bool
	logger        *slog.Logger

	mu    sync.RWMutex
	hooks []Hook

	sent    atomic.Int64
	dropped atomic.Int64
	pending sync.WaitGroup
}

// Option customizes a Logger.
type Option func(*Logger)

// WithLimits overrides the sanitizer limits.
func WithLimits(limits Limits) Option {
	return func(l *Logger) { l.limits = limits.withDefaults() }
}

// WithTimeout bounds each LogAsync delivery.
func WithTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithDefaultSource fills EventSource when the caller leaves it empty.
func WithDefaultSource(source string) Option {
	return func(l *Logger) { l.defaultSource = source }
}

// WithHooks registers outcome hooks.
func WithHooks(hooks ...Hook) Option {
	return func(l *Logger) { l.hooks = append(l.hooks, hooks...) }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logging.NewComponentLogger(logger, "eventlog") }
}

// WithEnabled turns delivery on or off. Disabled loggers drop nothing and
// send nothing.
func WithEnabled(enabled bool) Option {
	return func(l *Logger) { l.enabled = enabled }
}

// New constructs a Logger around sink.
func New(sink Sink, opts ...Option) *Logger {
	l := &Logger{
		sink:    sink,
		limits:  DefaultLimits(),
		timeout: defaultTimeout,
		enabled: true,
		logger:  logging.NewComponentLogger(nil, "eventlog"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddHook registers an additional hook.
func (l *Logger) AddHook(hook Hook) {
	if hook == nil {
		return
	}
	l.mu.Lock()
	l.hooks = append(l.hooks, hook)
	l.mu.Unlock()
}

// Log validates, sanitizes, and delivers ev. Failures are reported to hooks
// and counted; Log itself never fails or panics.
func (l *Logger) Log(ctx context.Context, ev Event) {
	if l == nil || !l.enabled {
		return
	}
	if ev.EventSource == "" {
		ev.EventSource = l.defaultSource
	}
	start := time.Now()
	err := l.deliver(ctx, ev)
	l.record(ctx, Outcome{Event: Sanitize(ev, l.limits), Err: err, Duration: time.Since(start)})
}

// LogAsync delivers ev in the background, detached from ctx cancellation
// but bounded by the logger timeout.
func (l *Logger) LogAsync(ctx context.Context, ev Event) {
	if l == nil || !l.enabled {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		sendCtx, cancel := context.WithTimeout(detached, l.timeout)
		defer cancel()
		l.Log(sendCtx, ev)
	}()
}

// Wait blocks until background deliveries finish or ctx ends.
func (l *Logger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sent counts delivered events.
func (l *Logger) Sent() int64 {
	return l.sent.Load()
}

// Dropped counts events that failed validation or delivery.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Limits returns the sanitizer limits in effect.
func (l *Logger) Limits() Limits {
	return l.limits
}

func (l *Logger) deliver(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event sink panic: %v", r)
			logging.ErrorWithContext(l.logger, "event sink panicked", "event_sink_panic",
				logging.String("event", ev.EventType),
				logging.Any("panic", r),
			)
		}
	}()
	if res := ev.Validate(); !res.IsValid {
		return services.Wrap(services.ErrValidation, "eventlog", "validate", "", res.Err())
	}
	if l.sink == nil {
		return services.Wrap(services.ErrConfiguration, "eventlog", "deliver", "no event sink configured", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return l.sink.InsertEvent(ctx, Sanitize(ev, l.limits))
}

func (l *Logger) record(ctx context.Context, outcome Outcome) {
	if outcome.Err != nil {
		l.dropped.Add(1)
	} else {
		l.sent.Add(1)
	}
	l.mu.RLock()
	hooks := append([]Hook(nil), l.hooks...)
	l.mu.RUnlock()
	for _, hook := range hooks {
		runHook(ctx, hook, outcome)
	}
}

func runHook(ctx context.Context, hook Hook, outcome Outcome) {
	defer func() {
		_ = recover()
	}()
	hook(ctx, outcome)
}

// IsInvalid reports whether a dropped outcome failed validation rather than
// delivery.
func IsInvalid(err error) bool {
	return errors.Is(err, services.ErrValidation)
}

// LogHook writes dropped events to logger as warnings.
func LogHook(logger *slog.Logger) Hook {
	logger = logging.NewComponentLogger(logger, "eventlog")
	return func(ctx context.Context, outcome Outcome) {
		if !outcome.Dropped() {
			logger.Debug("event delivered",
				logging.String("event", outcome.Event.EventType),
				logging.Duration("duration", outcome.Duration),
			)
			return
		}
		attrs := append(logging.ContextFields(ctx),
			logging.String("event", outcome.Event.EventType),
			logging.String("source", outcome.Event.EventSource),
			logging.Error(outcome.Err),
			logging.String(logging.FieldImpact, "event was not recorded"),
		)
		hint := "check backend url and key"
		if IsInvalid(outcome.Err) {
			hint = "fix the event type or metadata at the call site"
		}
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
		logging.WarnWithContext(logger, "event dropped", "event_dropped", attrs...)
	}
}
