package client

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for a request that a later one replaced.
var ErrSuperseded = errors.New("superseded by a later request")

// Latest runs one logical request at a time: starting a request cancels
// the one before it, and a result is delivered only while its request is
// still the newest. The zero value is ready to use.
type Latest[T any] struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Begin starts a request, cancelling the one in flight. The returned
// generation is handed to Finish once the request completes.
func (l *Latest[T]) Begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	return ctx, l.gen
}

// Finish hands v and err to deliver if gen is still the newest request.
// deliver runs with l locked and must not call back into l. Finish reports
// ErrSuperseded when the result was dropped, and err otherwise.
func (l *Latest[T]) Finish(gen uint64, v T, err error, deliver func(T, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrSuperseded
	}
	l.cancel()
	l.cancel = nil
	if deliver != nil {
		deliver(v, err)
	}
	return err
}

// Do runs fetch between Begin and Finish.
func (l *Latest[T]) Do(parent context.Context, fetch func(context.Context) (T, error), deliver func(T, error)) error {
	ctx, gen := l.Begin(parent)
	v, err := fetch(ctx)
	return l.Finish(gen, v, err, deliver)
}

// Stop cancels the request in flight and drops its result.
func (l *Latest[T]) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
