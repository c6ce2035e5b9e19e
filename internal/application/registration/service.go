package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/id"
	"github.com/checkin-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, eventID string, req domain.CreateRegistrationRequest) (*domain.Registration, error)
	Get(ctx context.Context, registrationID string) (*domain.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
	MarkPaid(ctx context.Context, registrationID string) (*domain.Registration, error)
}

type registrationStore interface {
	Put(ctx context.Context, reg *domain.Registration) error
	Get(ctx context.Context, registrationID string) (*domain.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
	Update(ctx context.Context, registrationID string, updates map[string]interface{}) error
}

type eventStore interface {
	Get(ctx context.Context, eventID string) (*domain.Event, error)
}

type service struct {
	registrations registrationStore
	events        eventStore
}

type ServiceDeps struct {
	RegistrationRepo registrationStore
	EventRepo        eventStore
}

func NewService(deps ServiceDeps) Service {
	return &service{registrations: deps.RegistrationRepo, events: deps.EventRepo}
}

func (s *service) Create(ctx context.Context, eventID string, req domain.CreateRegistrationRequest) (*domain.Registration, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// Ticketed events start unpaid; free events are considered settled so the
	// payment check never blocks them at the door.
	payment := domain.PaymentPaid
	if ev.Ticketed {
		payment = domain.PaymentUnpaid
	}
	now := time.Now().UTC()
	reg := &domain.Registration{
		RegistrationID:   id.New(),
		EventID:          ev.EventID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		PaymentStatus:    payment,
		AttendanceStatus: domain.AttendanceRegistered,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.registrations.Put(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *service) Get(ctx context.Context, registrationID string) (*domain.Registration, error) {
	return s.registrations.Get(ctx, registrationID)
}

func (s *service) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	return s.registrations.ListByEvent(ctx, eventID)
}

func (s *service) MarkPaid(ctx context.Context, registrationID string) (*domain.Registration, error) {
	if _, err := s.registrations.Get(ctx, registrationID); err != nil {
		return nil, err
	}
	if err := s.registrations.Update(ctx, registrationID, map[string]interface{}{
		"payment_status": domain.PaymentPaid,
	}); err != nil {
		return nil, err
	}
	return s.registrations.Get(ctx, registrationID)
}
