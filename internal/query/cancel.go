package query

import (
	"context"
	"sync/atomic"
)

// CancelSource is polled by a Walker between steps.
type CancelSource interface {
	Cancelled() bool
}

// StopFlag is a CancelSource set by calling Stop, typically from another
// goroutine. The zero value is ready to use.
type StopFlag struct {
	stopped atomic.Bool
}

// Stop requests cancellation. It is safe to call more than once.
func (f *StopFlag) Stop() {
	f.stopped.Store(true)
}

// Cancelled reports whether Stop has been called.
func (f *StopFlag) Cancelled() bool {
	return f.stopped.Load()
}

type contextSource struct {
	ctx context.Context
}

// ContextSource returns a CancelSource that is cancelled once ctx is done.
func ContextSource(ctx context.Context) CancelSource {
	return contextSource{ctx: ctx}
}

func (s contextSource) Cancelled() bool {
	return s.ctx.Err() != nil
}

type anySource []CancelSource

// AnySource returns a CancelSource that is cancelled when any of srcs is.
// Nil sources are ignored.
func AnySource(srcs ...CancelSource) CancelSource {
	out := make(anySource, 0, len(srcs))
	for _, s := range srcs {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (a anySource) Cancelled() bool {
	for _, s := range a {
		if s.Cancelled() {
			return true
		}
	}
	return false
}

// never is the CancelSource used when the caller passes nil.
type never struct{}

func (never) Cancelled() bool { return false }
