package memory

import (
	"context"
	"sync"

	"github.com/qrave1/eyeson-go/internal/domain/events"
)

// DefaultEventsPerRoom bounds how many webhook events are kept for a room.
const DefaultEventsPerRoom = 20

type WebhookEventRepository interface {
	// Add stores an event for a room, dropping the oldest one when full
	Add(ctx context.Context, roomID string, event events.WebhookEvent)

	// List returns the stored events of a room, oldest first
	List(ctx context.Context, roomID string) []events.WebhookEvent

	// Remove forgets a room
	Remove(ctx context.Context, roomID string)
}

type webhookEventRepository struct {
	// events maps room id to its latest events, oldest first
	events map[string][]events.WebhookEvent
	limit  int

	mu sync.RWMutex
}

func NewWebhookEventRepository(limit int) WebhookEventRepository {
	if limit <= 0 {
		limit = DefaultEventsPerRoom
	}

	return &webhookEventRepository{
		events: make(map[string][]events.WebhookEvent, 10),
		limit:  limit,
	}
}

func (r *webhookEventRepository) Add(_ context.Context, roomID string, event events.WebhookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.events[roomID], event)
	if len(list) > r.limit {
		list = append([]events.WebhookEvent(nil), list[len(list)-r.limit:]...)
	}

	r.events[roomID] = list
}

func (r *webhookEventRepository) List(_ context.Context, roomID string) []events.WebhookEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]events.WebhookEvent{}, r.events[roomID]...)
}

func (r *webhookEventRepository) Remove(_ context.Context, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, roomID)
}
