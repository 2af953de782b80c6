package session

import (
	"context"
	"sync"

	"github.com/ikkim/storefront-backend/pkg/logger"
)

// Transition is an identity change on one device.
type Transition struct {
	From Identity
	To   Identity
}

// SignedIn reports a Guest to Account transition.
func (t Transition) SignedIn() bool {
	return t.From.IsGuest() && t.To.IsAccount()
}

// SignedOut reports an Account to Guest transition.
func (t Transition) SignedOut() bool {
	return t.From.IsAccount() && !t.To.IsAccount()
}

type Handler func(ctx context.Context, t Transition)

// Broker fans identity transitions out to subscribers. Publish runs
// handlers synchronously in subscription order, so a sign-in response is
// written only after every handler returned.
type Broker struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id      int
	handler Handler
}

func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe registers h and returns a function removing it.
func (b *Broker) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.handlers {
				if s.id == id {
					b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Broker) Publish(ctx context.Context, t Transition) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	for i, s := range b.handlers {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	logger.Debug("Publishing identity transition", map[string]interface{}{
		"from":        t.From.String(),
		"to":          t.To.String(),
		"subscribers": len(handlers),
	})

	for _, h := range handlers {
		h(ctx, t)
	}
}
