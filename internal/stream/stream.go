package stream

import (
	"context"
	"sync"
	"time"
)

// Event is a live notification emitted after an audited mutation. It
// carries no entity payload; clients fetch details through the normal
// scoped endpoints.
type Event struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	ActionType     string    `json:"action_type"`
	ActorUserID    string    `json:"actor_user_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type subscriber struct {
	orgID string
	ch    chan Event
}

// Stream fan-outs events to active subscribers (SSE clients). Each
// subscriber sees only its own organization's events.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for one organization and returns a
// channel which will receive its events. The channel is closed when the
// provided context ends.
func (s *Stream) Subscribe(ctx context.Context, orgID string) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{orgID: orgID, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to subscribers of the event's organization.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.orgID != evt.OrganizationID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Subscribers reports the number of active subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
