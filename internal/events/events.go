// Package events wraps gateway event subscriptions with telemetry, panic
// recovery and error capture.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/telemetry"
	"github.com/runpod/poddy-sub000/internal/tracking"
)

// Source is where listeners subscribe; *discordgo.Session satisfies it.
type Source interface {
	AddHandler(handler any) func()
	AddHandlerOnce(handler any) func()
}

type Dependencies struct {
	Tracker   *tracking.Tracker
	Telemetry *telemetry.Recorder
	Logger    *slog.Logger
}

// Listener subscribes run to gateway events of type T, which must be one of
// discordgo's event pointer types such as *discordgo.GuildCreate.
type Listener[T any] struct {
	name string
	once bool
	run  func(context.Context, T) error
	deps Dependencies

	mu     sync.Mutex
	remove func()
}

func New[T any](name string, once bool, run func(context.Context, T) error, deps Dependencies) *Listener[T] {
	return &Listener[T]{name: name, once: once, run: run, deps: deps}
}

func (l *Listener[T]) Name() string {
	return l.name
}

// Listen subscribes to src. Events are handled with ctx.
func (l *Listener[T]) Listen(ctx context.Context, src Source) {
	handler := func(_ *dg.Session, e T) {
		l.Handle(ctx, e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.once {
		l.remove = src.AddHandlerOnce(handler)
	} else {
		l.remove = src.AddHandler(handler)
	}
}

// RemoveListener unsubscribes. It is safe to call more than once.
func (l *Listener[T]) RemoveListener() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.remove != nil {
		l.remove()
		l.remove = nil
	}
}

// Handle runs one event. Errors and panics never reach the gateway loop.
func (l *Listener[T]) Handle(ctx context.Context, e T) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			l.deps.Logger.Error("panic recovered", "event", l.name, "recovered", r, "stack", stack)
			l.capture(ctx, fmt.Errorf("panic: %v", r), e)
		}
	}()

	l.deps.Telemetry.Increment(ctx, "events", l.name)

	if err := l.run(ctx, e); err != nil {
		l.deps.Logger.Error("error handling event", "event", l.name, "error", err)
		l.capture(ctx, err, e)
	}
}

func (l *Listener[T]) capture(ctx context.Context, err error, e T) {
	if l.deps.Tracker == nil {
		return
	}
	l.deps.Tracker.CaptureWithExtras(ctx, err, map[string]any{"event": l.name, "payload": e})
}
