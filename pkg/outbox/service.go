package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

type Service struct {
	logg *logger.Logger
}

func NewService(logg *logger.Logger) *Service {
	return &Service{logg: logg}
}

// Enqueue stores a waiting item through repo, which must belong to the
// session holding the domain write so both commit together.
func (s *Service) Enqueue(ctx context.Context, repo uow.OutboxRepository, outboxType enums.OutboxType, payload any) (*models.OutboxItem, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if !outboxType.IsValid() {
		return nil, fmt.Errorf("invalid outbox type %q", outboxType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", outboxType, err)
	}

	item := &models.OutboxItem{
		Type:    outboxType,
		Payload: raw,
		Status:  enums.OutboxStatusWaiting,
	}
	if err := repo.Create(ctx, item); err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"outbox_id":   item.ID,
			"outbox_type": outboxType,
		})
		s.logg.Info(logCtx, "outbox item queued")
	}
	return item, nil
}
