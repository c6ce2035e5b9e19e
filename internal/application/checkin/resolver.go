package checkin

import (
	"context"
	"strings"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/enrollkey"
)

// resolve turns ranked match candidates into at most one registration of the
// target event.
//
// The face index is shared across all events with no native partitioning, so
// every candidate's claimed event is decoded from its enrollment key and
// checked before the candidate is trusted. Surviving candidates are matched
// against the event's registrations in two tiers: an exact enrollment-key
// link first, then (when enabled) a case-insensitive name comparison for
// registrations enrolled before links were persisted. More than one plausible
// registration in either tier is ambiguity, never a guess.
func (s *service) resolve(ctx context.Context, candidates []domain.MatchCandidate, eventID string) (*domain.Registration, error) {
	target := canonicalID(eventID)

	var survivors []enrollkey.Parts
	keys := make(map[string]bool)
	for _, c := range candidates {
		parts, err := enrollkey.Decode(c.EnrollmentKey)
		if err != nil {
			// A key the provider returned that we cannot parse is noise,
			// not a candidate.
			continue
		}
		if canonicalID(parts.EventID) != target {
			continue
		}
		survivors = append(survivors, parts)
		keys[c.EnrollmentKey] = true
	}
	if len(survivors) == 0 {
		return nil, domain.ErrNoMatch
	}

	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// Tier 1: exact enrollment-key link.
	linked := make(map[string]*domain.Registration)
	for i := range regs {
		reg := &regs[i]
		if reg.EnrollmentKey != nil && keys[*reg.EnrollmentKey] {
			linked[reg.RegistrationID] = reg
		}
	}
	if len(linked) == 1 {
		for _, reg := range linked {
			return reg, nil
		}
	}
	if len(linked) > 1 {
		return nil, domain.ErrAmbiguous
	}

	if !s.nameFallback {
		return nil, domain.ErrNoMatch
	}

	// Tier 2: name fallback for registrations without a persisted link.
	names := make(map[string]bool, len(survivors))
	for _, parts := range survivors {
		names[fullNameKey(parts.FirstName, parts.LastName)] = true
	}
	byName := make(map[string]*domain.Registration)
	for i := range regs {
		reg := &regs[i]
		if names[fullNameKey(reg.FirstName, reg.LastName)] {
			byName[reg.RegistrationID] = reg
		}
	}
	switch len(byName) {
	case 0:
		return nil, domain.ErrNoMatch
	case 1:
		for _, reg := range byName {
			return reg, nil
		}
	}
	return nil, domain.ErrAmbiguous
}

// canonicalID normalizes both sides of an event id comparison to one string
// form. Decoded keys and stored ids must never be compared as different
// representations of the same value.
func canonicalID(id string) string {
	return strings.TrimSpace(id)
}

// fullNameKey folds a name pair into a case-insensitive comparison key that
// is stable across the key encoding's whitespace-to-separator collapsing.
func fullNameKey(first, last string) string {
	return strings.ToLower(
		enrollkey.NormalizeName(first) + enrollkey.Separator + enrollkey.NormalizeName(last),
	)
}
