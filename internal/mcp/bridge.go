package mcp

import (
	"context"
	"log/slog"
	"time"
)

// Bridge runs protocol calls in their own goroutine with a hard
// deadline, so a stuck server can never block the agent loop. On
// timeout the in-flight call's context is cancelled and its eventual
// result is discarded.
type Bridge struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewBridge creates a bridge with the given per-call timeout. Zero or
// negative means DefaultTimeout.
func NewBridge(timeout time.Duration, logger *slog.Logger) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{timeout: timeout, logger: logger.With("component", "bridge")}
}

// Call executes fn with the bridge's deadline applied. The call runs
// in a worker goroutine; if the deadline passes first, Call returns a
// timeout TransportError and the worker is left to observe its
// cancelled context and exit.
func Call[T any](b *Bridge, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	// Buffered so a late worker result never blocks the goroutine.
	ch := make(chan outcome, 1)

	start := time.Now()
	go func() {
		val, err := fn(callCtx)
		ch <- outcome{val, err}
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, &TransportError{Op: op, Timeout: true, Err: ctx.Err()}
	case <-timer.C:
		b.logger.Warn("call abandoned after timeout",
			"op", op,
			"timeout", b.timeout,
			"elapsed", time.Since(start),
		)
		var zero T
		return zero, &TransportError{Op: op, Timeout: true, Err: context.DeadlineExceeded}
	}
}
