// Package goroutine runs background work under a bounded, panic-safe manager.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"

	"github.com/shandysiswandi/goverify/internal/pkg/stacktrace"
)

// Manager bounds the number of live background goroutines and waits for all
// of them on shutdown. Panics inside tasks are recovered and logged with a
// trimmed stack so one bad message cannot take the process down.
type Manager struct {
	sema     chan struct{}
	wg       sync.WaitGroup
	inflight atomic.Int64

	errMu sync.Mutex
	errs  []error

	stateMu sync.Mutex
	closed  bool
}

// New returns a Manager that allows at most max concurrent tasks.
func New(max int) *Manager {
	if max <= 0 {
		max = 1
	}

	return &Manager{sema: make(chan struct{}, max)}
}

// Go schedules fn if capacity allows. Tasks are dropped, with a warning, when
// the manager is at capacity or already shut down. Errors returned by tasks
// are collected and surface from Wait.
func (g *Manager) Go(ctx context.Context, fn func(ctx context.Context) error) {
	g.stateMu.Lock()
	if g.closed {
		g.stateMu.Unlock()
		slog.WarnContext(ctx, "Goroutine manager is closed, dropping task")
		return
	}

	select {
	case g.sema <- struct{}{}:
		g.inflight.Inc()
		g.wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "Recovered from panic in background task",
						"panic", r,
						"stack", stacktrace.InternalPaths(debug.Stack()),
					)
				}
				g.inflight.Dec()
				<-g.sema
			}()

			if err := fn(ctx); err != nil {
				g.errMu.Lock()
				g.errs = append(g.errs, err)
				g.errMu.Unlock()
			}
		})
		g.stateMu.Unlock()
	default:
		g.stateMu.Unlock()
		slog.WarnContext(ctx, "Goroutine manager at capacity, dropping task")
	}
}

// Inflight reports how many tasks are currently running.
func (g *Manager) Inflight() int64 {
	return g.inflight.Load()
}

// Wait stops accepting new tasks, blocks until running ones finish, and
// returns every error the tasks reported.
func (g *Manager) Wait() error {
	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.errMu.Lock()
	defer g.errMu.Unlock()

	return errors.Join(g.errs...)
}
