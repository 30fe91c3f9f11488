package events

import (
	"sync"

	"github.com/sirupsen/logrus"

	"messaging-service/internal/observability"
)

// Handler receives every published event and dispatches on its type.
type Handler func(Event)

// Bus is a synchronous in-process publish/subscribe channel between the
// services and the notification layer. Publish runs every handler before
// returning; a failing handler never affects the publishing caller or
// the other handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *logrus.Logger
}

func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every handler. Callers publish only
// after their transaction has committed, so listeners never observe a
// mutation that is later rolled back.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	observability.IncEventPublished(event.Kind())
	for _, h := range handlers {
		b.deliver(h, event)
	}
}

func (b *Bus) deliver(h Handler, event Event) {
	defer func() {
		if p := recover(); p != nil {
			observability.IncEventHandlerPanic(event.Kind())
			b.logger.WithFields(logrus.Fields{
				"event": event.Kind(),
				"panic": p,
			}).Error("event handler panicked")
		}
	}()
	h(event)
}
