// Package enrollment links a registration to a face in the provider's index
// under an event-scoped enrollment key.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/enrollkey"
)

type Service interface {
	Enroll(ctx context.Context, registrationID string, photo []byte, contentType string) (*domain.Registration, error)
	Revoke(ctx context.Context, registrationID string) error
}

type matcher interface {
	Enroll(ctx context.Context, image []byte, key string) (string, error)
	Revoke(ctx context.Context, key string) error
}

type registrationStore interface {
	Get(ctx context.Context, registrationID string) (*domain.Registration, error)
	ListByEnrollmentKey(ctx context.Context, key string) ([]domain.Registration, error)
	Update(ctx context.Context, registrationID string, updates map[string]interface{}) error
}

type eventStore interface {
	Get(ctx context.Context, eventID string) (*domain.Event, error)
}

type photoStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	matcher       matcher
	registrations registrationStore
	events        eventStore
	photos        photoStore
}

type ServiceDeps struct {
	Matcher          matcher
	RegistrationRepo registrationStore
	EventRepo        eventStore
	PhotoStore       photoStore // optional, nil skips photo archival
}

func NewService(deps ServiceDeps) Service {
	return &service{
		matcher:       deps.Matcher,
		registrations: deps.RegistrationRepo,
		events:        deps.EventRepo,
		photos:        deps.PhotoStore,
	}
}

// Enroll indexes the photo under a fresh enrollment key and links the key to
// the registration. Re-enrolling replaces the previous face: the new face is
// indexed first so a provider failure leaves the old enrollment usable.
func (s *service) Enroll(ctx context.Context, registrationID string, photo []byte, contentType string) (*domain.Registration, error) {
	reg, err := s.registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.Get(ctx, reg.EventID); err != nil {
		return nil, err
	}

	key, err := enrollkey.Encode(reg.EventID, reg.FirstName, reg.LastName, time.Now())
	if err != nil {
		return nil, err
	}
	if others, err := s.registrations.ListByEnrollmentKey(ctx, key); err != nil {
		return nil, err
	} else if len(others) > 0 {
		return nil, fmt.Errorf("enrollment key already linked: %w", domain.ErrConflict)
	}

	faceID, err := s.matcher.Enroll(ctx, photo, key)
	if err != nil {
		return nil, err
	}

	if reg.EnrollmentKey != nil {
		if err := s.matcher.Revoke(ctx, *reg.EnrollmentKey); err != nil {
			slog.Warn("could not revoke previous enrollment",
				"registration_id", registrationID, "err", err)
		}
	}

	updates := map[string]interface{}{
		"enrollment_key": key,
		"face_id":        faceID,
	}
	if s.photos != nil {
		object := photoObject(reg.EventID, registrationID)
		if _, err := s.photos.Upload(ctx, object, photo, contentType); err != nil {
			slog.Warn("could not archive enrollment photo",
				"registration_id", registrationID, "err", err)
		} else {
			updates["photo_object"] = object
		}
	}
	if err := s.registrations.Update(ctx, registrationID, updates); err != nil {
		return nil, err
	}
	return s.registrations.Get(ctx, registrationID)
}

// Revoke removes the registration's face from the index and clears the link.
// Revoking a registration that was never enrolled is a no-op.
func (s *service) Revoke(ctx context.Context, registrationID string) error {
	reg, err := s.registrations.Get(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if reg.EnrollmentKey == nil {
		return nil
	}
	if err := s.matcher.Revoke(ctx, *reg.EnrollmentKey); err != nil {
		return err
	}
	if s.photos != nil && reg.PhotoObject != nil {
		if err := s.photos.Delete(ctx, *reg.PhotoObject); err != nil {
			slog.Warn("could not delete enrollment photo",
				"registration_id", registrationID, "err", err)
		}
	}
	return s.registrations.Update(ctx, registrationID, map[string]interface{}{
		"enrollment_key": nil,
		"face_id":        nil,
		"photo_object":   nil,
	})
}

func photoObject(eventID, registrationID string) string {
	return fmt.Sprintf("enrollments/%s/%s.jpg", eventID, registrationID)
}
