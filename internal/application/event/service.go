package event

import (
	"context"
	"fmt"
	"time"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/id"
	"github.com/checkin-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateEventRequest) (*domain.Event, error)
	Get(ctx context.Context, eventID string) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Disable(ctx context.Context, eventID string) error
}

type eventStore interface {
	Put(ctx context.Context, e *domain.Event) error
	Get(ctx context.Context, eventID string) (*domain.Event, error)
	Scan(ctx context.Context) ([]domain.Event, error)
	Update(ctx context.Context, eventID string, updates map[string]interface{}) error
}

type service struct {
	events eventStore
}

type ServiceDeps struct {
	EventRepo eventStore
}

func NewService(deps ServiceDeps) Service {
	return &service{events: deps.EventRepo}
}

func (s *service) Create(ctx context.Context, req domain.CreateEventRequest) (*domain.Event, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	var startsAt *time.Time
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("invalid starts_at: %w", domain.ErrBadRequest)
		}
		startsAt = &t
	}
	now := time.Now().UTC()
	e := &domain.Event{
		EventID:   id.New(),
		Name:      req.Name,
		Ticketed:  req.Ticketed,
		StartsAt:  startsAt,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.events.Put(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	return s.events.Get(ctx, eventID)
}

func (s *service) List(ctx context.Context) ([]domain.Event, error) {
	return s.events.Scan(ctx)
}

func (s *service) Disable(ctx context.Context, eventID string) error {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return err
	}
	return s.events.Update(ctx, eventID, map[string]interface{}{"enable": false})
}
