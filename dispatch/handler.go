// SPDX-License-Identifier: EPL-2.0

// Package dispatch provides per-instance, per-event callback delivery.
//
// Each engine instance owns one Handler per event kind (playback position,
// playback finished, extraction progress, decibel update). A Handler holds
// at most one callback; registering a new one replaces the old. Delivery is
// mutually exclusive with registration, so a callback is never swapped out
// mid-invocation, and a panic inside a callback is contained and logged
// rather than propagated into the engine loop that fired it.
package dispatch

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Handler delivers a single registered callback for one event kind.
//
// Invoke runs the callback under a shared (read) lock while Set and Clear
// take the exclusive lock, so replacing a callback waits for in-flight
// deliveries to drain. Callbacks must not call Set or Clear on their own
// Handler from inside delivery.
//
// The zero value is ready to use.
type Handler[T any] struct {
	mu sync.RWMutex
	fn func(T)
}

// Set registers fn as the callback, replacing any previous one.
// A nil fn is equivalent to Clear.
func (h *Handler[T]) Set(fn func(T)) {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
}

// Clear removes the registered callback, waiting for any in-flight
// delivery to finish first.
func (h *Handler[T]) Clear() {
	h.mu.Lock()
	h.fn = nil
	h.mu.Unlock()
}

// Has reports whether a callback is currently registered.
func (h *Handler[T]) Has() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fn != nil
}

// Invoke delivers v to the registered callback. It is a no-op when no
// callback is registered. A panic raised by the callback is recovered and
// logged; it never reaches the caller.
func (h *Handler[T]) Invoke(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: panic in callback", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h.fn(v)
}
