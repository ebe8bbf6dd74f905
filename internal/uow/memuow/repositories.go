package memuow

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

type eventRepo struct{ s *session }

func (r *eventRepo) Upsert(_ context.Context, events []models.Event) error {
	if err := r.s.store.fault("events.upsert"); err != nil {
		return err
	}
	work := r.s.begin()
	for _, event := range events {
		event.Place = nil
		work.Events[event.ID] = event
	}
	return nil
}

func (r *eventRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	work := r.s.begin()
	event, ok := work.Events[id]
	if !ok {
		return nil, nil
	}
	attachPlace(work, &event)
	return &event, nil
}

func (r *eventRepo) List(_ context.Context, filter uow.EventFilter) ([]models.Event, int64, error) {
	work := r.s.begin()
	matched := make([]models.Event, 0, len(work.Events))
	for _, event := range work.Events {
		if filter.DateFrom != nil && event.EventTime.Before(*filter.DateFrom) {
			continue
		}
		matched = append(matched, event)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].EventTime.Equal(matched[j].EventTime) {
			return matched[i].EventTime.Before(matched[j].EventTime)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	count := int64(len(matched))

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	for i := range matched {
		attachPlace(work, &matched[i])
	}
	return matched, count, nil
}

func attachPlace(work *State, event *models.Event) {
	if place, ok := work.Places[event.PlaceID]; ok {
		event.Place = &place
	}
}

type placeRepo struct{ s *session }

func (r *placeRepo) Upsert(_ context.Context, places []models.Place) error {
	if err := r.s.store.fault("places.upsert"); err != nil {
		return err
	}
	work := r.s.begin()
	for _, place := range places {
		work.Places[place.ID] = place
	}
	return nil
}

func (r *placeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Place, error) {
	work := r.s.begin()
	place, ok := work.Places[id]
	if !ok {
		return nil, nil
	}
	return &place, nil
}

type memberRepo struct{ s *session }

func (r *memberRepo) Create(_ context.Context, member *models.Member) error {
	if err := r.s.store.fault("members.create"); err != nil {
		return err
	}
	work := r.s.begin()
	if _, exists := work.Members[member.TicketID]; exists {
		return duplicateKey("members", member.TicketID)
	}
	row := *member
	row.Event = nil
	work.Members[row.TicketID] = row
	return nil
}

func (r *memberRepo) GetByTicketID(_ context.Context, ticketID uuid.UUID, loadEvent bool) (*models.Member, error) {
	work := r.s.begin()
	member, ok := work.Members[ticketID]
	if !ok {
		return nil, nil
	}
	if loadEvent {
		if event, ok := work.Events[member.EventID]; ok {
			member.Event = &event
		}
	}
	return &member, nil
}

func (r *memberRepo) Delete(_ context.Context, ticketID uuid.UUID) error {
	if err := r.s.store.fault("members.delete"); err != nil {
		return err
	}
	work := r.s.begin()
	delete(work.Members, ticketID)
	return nil
}

func (r *memberRepo) CountByEvents(_ context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	work := r.s.begin()
	wanted := make(map[uuid.UUID]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[uuid.UUID]int64, len(eventIDs))
	for _, member := range work.Members {
		if _, ok := wanted[member.EventID]; ok {
			counts[member.EventID]++
		}
	}
	return counts, nil
}

type syncMetaRepo struct{ s *session }

func (r *syncMetaRepo) GetOrAdd(_ context.Context, _ bool) (*models.SyncMeta, bool, error) {
	work := r.s.begin()
	created := false
	if work.SyncMeta == nil {
		work.SyncMeta = &models.SyncMeta{ID: models.SyncMetaID, SyncStatus: enums.SyncStatusNever}
		created = true
	}
	meta := *work.SyncMeta
	return &meta, created, nil
}

func (r *syncMetaRepo) Update(_ context.Context, meta *models.SyncMeta) error {
	if err := r.s.store.fault("syncmeta.update"); err != nil {
		return err
	}
	work := r.s.begin()
	if work.SyncMeta == nil {
		return nil
	}
	row := *meta
	row.ID = models.SyncMetaID
	work.SyncMeta = &row
	return nil
}

type outboxRepo struct{ s *session }

func (r *outboxRepo) Create(_ context.Context, item *models.OutboxItem) error {
	if err := r.s.store.fault("outbox.create"); err != nil {
		return err
	}
	work := r.s.begin()
	work.NextOutboxID++
	item.ID = work.NextOutboxID
	if item.Status == "" {
		item.Status = enums.OutboxStatusWaiting
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	work.Outbox[item.ID] = *item
	return nil
}

func (r *outboxRepo) ListWaiting(_ context.Context, _ bool) ([]models.OutboxItem, error) {
	work := r.s.begin()
	items := make([]models.OutboxItem, 0)
	for _, item := range work.Outbox {
		if item.Status == enums.OutboxStatusWaiting {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *outboxRepo) LockWaiting(_ context.Context, id int64) (*models.OutboxItem, error) {
	work := r.s.begin()
	item, ok := work.Outbox[id]
	if !ok || item.Status != enums.OutboxStatusWaiting {
		return nil, nil
	}
	return &item, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id int64, status enums.OutboxStatus) error {
	if err := r.s.store.fault("outbox.update_status"); err != nil {
		return err
	}
	work := r.s.begin()
	item, ok := work.Outbox[id]
	if !ok {
		return nil
	}
	item.Status = status
	work.Outbox[id] = item
	return nil
}

type inboxRepo struct{ s *session }

func (r *inboxRepo) Get(_ context.Context, key string) (*models.InboxItem, error) {
	work := r.s.begin()
	item, ok := work.Inbox[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *inboxRepo) Create(_ context.Context, item *models.InboxItem) error {
	if err := r.s.store.fault("inbox.create"); err != nil {
		return err
	}
	work := r.s.begin()
	if _, exists := work.Inbox[item.Key]; exists {
		return duplicateKey("inbox", item.Key)
	}
	work.Inbox[item.Key] = *item
	return nil
}

func (r *inboxRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	work := r.s.begin()
	var deleted int64
	for key, item := range work.Inbox {
		if !item.ExpiresAt.After(now) {
			delete(work.Inbox, key)
			deleted++
		}
	}
	return deleted, nil
}
