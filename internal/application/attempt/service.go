package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/checkin-api/internal/domain"
)

type Service interface {
	ListByEvent(ctx context.Context, eventID string, from, to time.Time) ([]domain.ValidationAttempt, error)
}

type attemptStore interface {
	ListByEvent(ctx context.Context, eventID string, from, to time.Time) ([]domain.ValidationAttempt, error)
}

type eventStore interface {
	Get(ctx context.Context, eventID string) (*domain.Event, error)
}

type service struct {
	attempts attemptStore
	events   eventStore
}

type ServiceDeps struct {
	AttemptRepo attemptStore
	EventRepo   eventStore
}

func NewService(deps ServiceDeps) Service {
	return &service{attempts: deps.AttemptRepo, events: deps.EventRepo}
}

func (s *service) ListByEvent(ctx context.Context, eventID string, from, to time.Time) ([]domain.ValidationAttempt, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("time range ends before it starts: %w", domain.ErrBadRequest)
	}
	return s.attempts.ListByEvent(ctx, eventID, from, to)
}
