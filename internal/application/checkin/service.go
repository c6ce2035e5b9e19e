// Package checkin turns ranked face-match candidates (or a scanned code)
// into at most one validated registration. Resolution is deliberately
// conservative: a false rejection is recoverable at the desk, a false accept
// validates the wrong person.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/id"
	"github.com/checkin-api/internal/pkg/keylock"
)

type Service interface {
	CheckInByFace(ctx context.Context, eventID string, photo []byte) (*domain.CheckinResult, error)
	CheckInByCode(ctx context.Context, eventID, code string) (*domain.CheckinResult, error)
}

type matcher interface {
	Search(ctx context.Context, image []byte, threshold float64) ([]domain.MatchCandidate, error)
}

type registrationStore interface {
	Get(ctx context.Context, registrationID string) (*domain.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
	MarkAttended(ctx context.Context, registrationID string, at time.Time) error
}

type eventStore interface {
	Get(ctx context.Context, eventID string) (*domain.Event, error)
}

type attemptStore interface {
	Put(ctx context.Context, a *domain.ValidationAttempt) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	matcher       matcher
	registrations registrationStore
	events        eventStore
	attempts      attemptStore
	sms           smsSender
	locks         *keylock.KeyedMutex
	threshold     float64
	nameFallback  bool
}

type ServiceDeps struct {
	Matcher          matcher
	RegistrationRepo registrationStore
	EventRepo        eventStore
	AttemptRepo      attemptStore
	SMSSender        smsSender // optional, nil disables confirmations
	Locks            *keylock.KeyedMutex
	Threshold        float64
	NameFallback     bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		matcher:       deps.Matcher,
		registrations: deps.RegistrationRepo,
		events:        deps.EventRepo,
		attempts:      deps.AttemptRepo,
		sms:           deps.SMSSender,
		locks:         deps.Locks,
		threshold:     deps.Threshold,
		nameFallback:  deps.NameFallback,
	}
}

func (s *service) CheckInByFace(ctx context.Context, eventID string, photo []byte) (*domain.CheckinResult, error) {
	candidates, err := s.matcher.Search(ctx, photo, s.threshold)
	if err != nil {
		return s.reject(ctx, eventID, domain.ChannelFace, 0, err)
	}
	var topSimilarity float64
	if len(candidates) > 0 {
		topSimilarity = candidates[0].Similarity
	}
	reg, err := s.resolve(ctx, candidates, eventID)
	if err != nil {
		return s.reject(ctx, eventID, domain.ChannelFace, topSimilarity, err)
	}
	return s.validateLocked(ctx, eventID, domain.ChannelFace, topSimilarity, reg.RegistrationID)
}

func (s *service) CheckInByCode(ctx context.Context, eventID, code string) (*domain.CheckinResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return s.reject(ctx, eventID, domain.ChannelCode, 0, domain.ErrUnknownRegistration)
	}
	return s.validateLocked(ctx, eventID, domain.ChannelCode, 0, code)
}

// validateLocked runs the state machine under the per-registration lock, so
// a concurrent attempt for the same registration observes this attempt's
// completed state before evaluating its own preconditions.
func (s *service) validateLocked(ctx context.Context, eventID, channel string, topSimilarity float64, registrationID string) (*domain.CheckinResult, error) {
	var res *domain.CheckinResult
	var vErr error
	_ = s.locks.WithLock(registrationID, func() error {
		res, vErr = s.validate(ctx, eventID, registrationID)
		return nil
	})
	if vErr != nil {
		return s.reject(ctx, eventID, channel, topSimilarity, vErr)
	}
	s.record(ctx, eventID, channel, topSimilarity, res)
	return res, nil
}

// validate is the registered -> attended transition. Business rejections
// that carry extra detail (AlreadyValidated reports the prior validatedAt)
// come back as results; everything else as sentinel errors.
func (s *service) validate(ctx context.Context, eventID, registrationID string) (*domain.CheckinResult, error) {
	reg, err := s.registrations.Get(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownRegistration
		}
		return nil, err
	}
	if canonicalID(reg.EventID) != canonicalID(eventID) {
		return nil, domain.ErrUnknownRegistration
	}

	ev, err := s.events.Get(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if ev.Ticketed && reg.PaymentStatus != domain.PaymentPaid {
		return nil, domain.ErrPaymentRequired
	}
	if reg.AttendanceStatus == domain.AttendanceAttended {
		return alreadyValidated(reg), nil
	}

	// Cancellation is honored up to the write; once the conditional update
	// commits, the validation stands.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.registrations.MarkAttended(ctx, registrationID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyValidated) {
			// Lost a race outside the lock (e.g. a direct store write).
			if cur, gErr := s.registrations.Get(ctx, registrationID); gErr == nil {
				return alreadyValidated(cur), nil
			}
			return nil, domain.ErrAlreadyValidated
		}
		return nil, err
	}

	s.confirm(ctx, reg, ev)
	return &domain.CheckinResult{
		Status:         domain.StatusValidated,
		RegistrationID: registrationID,
		ValidatedAt:    &now,
	}, nil
}

func alreadyValidated(reg *domain.Registration) *domain.CheckinResult {
	return &domain.CheckinResult{
		Status:         domain.StatusRejected,
		Reason:         domain.ReasonAlreadyValidated,
		RegistrationID: reg.RegistrationID,
		ValidatedAt:    reg.ValidatedAt,
	}
}

// reject converts a known rejection error into a result, recording the
// attempt either way. Unexpected errors propagate to the transport layer.
func (s *service) reject(ctx context.Context, eventID, channel string, topSimilarity float64, err error) (*domain.CheckinResult, error) {
	reason, known := rejectionReason(err)
	res := &domain.CheckinResult{Status: domain.StatusRejected, Reason: reason}
	s.record(ctx, eventID, channel, topSimilarity, res)
	if !known {
		return nil, err
	}
	return res, nil
}

func rejectionReason(err error) (string, bool) {
	var ire *domain.ImageRejectedError
	switch {
	case errors.As(err, &ire):
		return domain.ReasonImageRejected, true
	case errors.Is(err, domain.ErrNoMatch):
		return domain.ReasonNoMatch, true
	case errors.Is(err, domain.ErrAmbiguous):
		return domain.ReasonAmbiguous, true
	case errors.Is(err, domain.ErrAlreadyValidated):
		return domain.ReasonAlreadyValidated, true
	case errors.Is(err, domain.ErrPaymentRequired):
		return domain.ReasonPaymentRequired, true
	case errors.Is(err, domain.ErrUnknownRegistration):
		return domain.ReasonUnknownRegistration, true
	case errors.Is(err, domain.ErrProviderUnavailable):
		return domain.ReasonProviderUnavailable, true
	default:
		return "internal_error", false
	}
}

// record appends the audit attempt. Attempts are written even when the
// request was cancelled, and a failed write never fails the check-in.
func (s *service) record(ctx context.Context, eventID, channel string, topSimilarity float64, res *domain.CheckinResult) {
	outcome := res.Status
	if res.Status == domain.StatusRejected {
		outcome = fmt.Sprintf("%s:%s", domain.StatusRejected, res.Reason)
	}
	attempt := &domain.ValidationAttempt{
		AttemptID:     id.New(),
		EventID:       eventID,
		Channel:       channel,
		TopSimilarity: topSimilarity,
		Outcome:       outcome,
		CreatedAt:     time.Now().UTC(),
	}
	if res.RegistrationID != "" {
		regID := res.RegistrationID
		attempt.RegistrationID = &regID
	}
	if err := s.attempts.Put(context.WithoutCancel(ctx), attempt); err != nil {
		slog.Warn("could not record validation attempt", "event_id", eventID, "err", err)
	}
}

// confirm texts the attendee after a successful validation. Best effort.
func (s *service) confirm(ctx context.Context, reg *domain.Registration, ev *domain.Event) {
	if s.sms == nil || reg.Phone == nil || *reg.Phone == "" {
		return
	}
	msg := fmt.Sprintf("You're checked in to %s. Enjoy the event!", ev.Name)
	if err := s.sms.SendSMS(context.WithoutCancel(ctx), *reg.Phone, msg); err != nil {
		slog.Warn("could not send check-in confirmation", "registration_id", reg.RegistrationID, "err", err)
	}
}
