package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/id"
	"github.com/checkin-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateStationRequest) (*domain.Station, error)
	Login(ctx context.Context, req domain.StationLoginRequest) (bearer string, st *domain.Station, err error)
	Disable(ctx context.Context, stationID string) error
}

type stationStore interface {
	Put(ctx context.Context, st *domain.Station) error
	Get(ctx context.Context, stationID string) (*domain.Station, error)
	GetByName(ctx context.Context, name string) (*domain.Station, error)
	Update(ctx context.Context, stationID string, updates map[string]interface{}) error
}

type jwtSigner interface {
	Sign(stationID, role string) (string, error)
}

type service struct {
	stations stationStore
	jwt      jwtSigner
}

type ServiceDeps struct {
	StationRepo stationStore
	JWTProvider jwtSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{stations: deps.StationRepo, jwt: deps.JWTProvider}
}

func (s *service) Create(ctx context.Context, req domain.CreateStationRequest) (*domain.Station, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleStation
	}
	if role != domain.RoleStation && role != domain.RoleAdmin {
		return nil, fmt.Errorf("invalid role %q: %w", role, domain.ErrBadRequest)
	}
	if _, err := s.stations.GetByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("station name taken: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	st := &domain.Station{
		StationID:  id.New(),
		Name:       req.Name,
		SecretHash: string(hash),
		Role:       role,
		Enable:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.stations.Put(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) Login(ctx context.Context, req domain.StationLoginRequest) (string, *domain.Station, error) {
	if err := validate.Struct(req); err != nil {
		return "", nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	st, err := s.stations.GetByName(ctx, req.Name)
	if err != nil {
		// Same answer for unknown name and wrong secret.
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !st.Enable {
		return "", nil, fmt.Errorf("station disabled: %w", domain.ErrForbidden)
	}
	if bcrypt.CompareHashAndPassword([]byte(st.SecretHash), []byte(req.Secret)) != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.jwt.Sign(st.StationID, st.Role)
	if err != nil {
		return "", nil, err
	}
	return bearer, st, nil
}

func (s *service) Disable(ctx context.Context, stationID string) error {
	if _, err := s.stations.Get(ctx, stationID); err != nil {
		return err
	}
	return s.stations.Update(ctx, stationID, map[string]interface{}{"enable": false})
}
