package outbox

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
	"github.com/angelmondragon/events-aggregator/pkg/notifier"
	"github.com/angelmondragon/events-aggregator/pkg/outbox/payloads"
)

// Renderer turns a stored item into the notification to deliver.
type Renderer func(item models.OutboxItem) (notifier.Notification, error)

// RendererRegistry maps each outbox type to its renderer.
type RendererRegistry struct {
	mtx       sync.RWMutex
	renderers map[enums.OutboxType]Renderer
}

func NewRendererRegistry() *RendererRegistry {
	return &RendererRegistry{renderers: make(map[enums.OutboxType]Renderer)}
}

// DefaultRegistry knows every outbox type the aggregator produces.
func DefaultRegistry() *RendererRegistry {
	r := NewRendererRegistry()
	r.Register(enums.OutboxTypeTicketRegister, RenderTicketRegistered)
	return r
}

func (r *RendererRegistry) Register(outboxType enums.OutboxType, renderer Renderer) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.renderers[outboxType] = renderer
}

func (r *RendererRegistry) Render(item models.OutboxItem) (notifier.Notification, error) {
	r.mtx.RLock()
	renderer, ok := r.renderers[item.Type]
	r.mtx.RUnlock()
	if !ok {
		return notifier.Notification{}, fmt.Errorf("renderer not registered for %s", item.Type)
	}
	return renderer(item)
}

// RenderTicketRegistered builds the registration confirmation. The
// idempotency key is derived from the row so a redelivery is recognized
// downstream.
func RenderTicketRegistered(item models.OutboxItem) (notifier.Notification, error) {
	var payload payloads.TicketRegisteredEvent
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return notifier.Notification{}, fmt.Errorf("decode %s payload: %w", item.Type, err)
	}
	return notifier.Notification{
		Message:        fmt.Sprintf("Registration for event %s with seat %s succeeded.", payload.EventID, payload.Seat),
		ReferenceID:    payload.TicketID.String(),
		IdempotencyKey: fmt.Sprintf("register-%d-%s", item.ID, item.CreatedAt.UTC().Format(time.RFC3339Nano)),
	}, nil
}
