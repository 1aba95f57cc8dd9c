// Package authbus signals "the session cannot be repaired" from the API client
// to whatever shows the re-login prompt. The signal carries no payload.
package authbus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/observability"
)

type listener struct {
	id uint64
	fn func()
}

// Bus is an explicit publish/subscribe object. Build one in the composition root
// and pass it to the components that emit or listen.
type Bus struct {
	mu        sync.Mutex
	listeners []listener
	nextID    uint64
	logger    *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: observability.OrNop(logger).With(zap.String("component", "authbus"))}
}

// Subscribe registers fn and returns its removal function. Registering the same
// func twice yields two independent registrations. The returned func is safe to
// call more than once and only ever removes its own registration.
func (b *Bus) Subscribe(fn func()) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Emit calls every listener registered at the time of the call, synchronously
// and in registration order. A panicking listener is logged and the rest still
// run. Emissions are not deduplicated.
func (b *Bus) Emit() {
	b.mu.Lock()
	snapshot := make([]listener, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	observability.AuthErrorBroadcastsTotal.Inc()
	b.logger.Info("auth error broadcast", zap.Int("listeners", len(snapshot)))

	for _, l := range snapshot {
		b.invoke(l)
	}
}

func (b *Bus) invoke(l listener) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("auth error listener panicked",
				zap.Uint64("listenerId", l.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	l.fn()
}

// Len reports the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
