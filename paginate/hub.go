package paginate

import (
	"context"
	"sync"
	"time"
)

// subscriptionBuffer bounds how many presses may queue for one session while
// it is still editing the message for an earlier press.
const subscriptionBuffer = 16

// Press is a control press delivered to a session.
type Press interface {
	ControlID() string
	// Update answers the press by replacing the message content.
	Update(ctx context.Context, page Page, controls Controls) error
	// Acknowledge answers the press without changing the message.
	Acknowledge(ctx context.Context) error
}

// Subscription receives the presses accepted by its filter, in arrival order.
type Subscription interface {
	// Await returns the next press, or false once timeout passes without one or ctx ends.
	Await(ctx context.Context, timeout time.Duration) (Press, bool)
	Close()
}

// Subscriber registers filters for control presses.
type Subscriber interface {
	Subscribe(accept func(controlID string) bool) Subscription
}

// Hub routes control presses from the gateway to the sessions waiting for them.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

type subscription struct {
	hub    *Hub
	id     uint64
	accept func(string) bool
	ch     chan Press
}

// Subscribe registers accept. Presses it accepts queue until Close.
func (h *Hub) Subscribe(accept func(controlID string) bool) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &subscription{hub: h, id: h.nextID, accept: accept, ch: make(chan Press, subscriptionBuffer)}
	h.subs[s.id] = s
	return s
}

// Dispatch hands p to the subscription that accepts its control id. It returns
// false when nobody accepts it or the subscriber's queue is full; the caller
// must then answer the press itself.
func (h *Hub) Dispatch(p Press) bool {
	id := p.ControlID()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if !s.accept(id) {
			continue
		}
		select {
		case s.ch <- p:
			return true
		default:
			return false
		}
	}
	return false
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *subscription) Await(ctx context.Context, timeout time.Duration) (Press, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p := <-s.ch:
		return p, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Close unregisters the subscription and acknowledges presses still queued.
func (s *subscription) Close() {
	s.hub.mu.Lock()
	delete(s.hub.subs, s.id)
	s.hub.mu.Unlock()
	for {
		select {
		case p := <-s.ch:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			_ = p.Acknowledge(ctx)
			cancel()
		default:
			return
		}
	}
}
