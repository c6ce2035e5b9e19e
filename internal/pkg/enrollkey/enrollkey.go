// Package enrollkey builds and parses the namespaced identity under which a
// face is stored in the provider's single global index. The key encodes the
// event, the attendee's name, and a millisecond enrollment timestamp:
//
//	{eventID}_{firstName}_{lastName}_{millis}
//
// The provider knows nothing about events; all per-event isolation downstream
// depends on this key decoding back to its parts without ambiguity.
package enrollkey

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/checkin-api/internal/domain"
)

// Separator is the reserved field separator. Names are stripped of it during
// encoding so that Decode can split the key unambiguously.
const Separator = "_"

// Parts holds the decoded fields of an enrollment key.
type Parts struct {
	EventID    string
	FirstName  string
	LastName   string
	EnrolledAt time.Time
}

// Encode builds an enrollment key. Names are trimmed, stripped of the
// reserved separator, and internal whitespace is collapsed to a single
// separator. The millisecond timestamp guarantees a unique key when the same
// person enrolls twice. Returns domain.ErrInvalidIdentity if the event id or
// either name is empty after normalization, or if the event id contains the
// separator.
func Encode(eventID, firstName, lastName string, at time.Time) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" || strings.Contains(eventID, Separator) {
		return "", fmt.Errorf("event id %q: %w", eventID, domain.ErrInvalidIdentity)
	}
	first := NormalizeName(firstName)
	last := NormalizeName(lastName)
	if first == "" || last == "" {
		return "", fmt.Errorf("empty name after normalization: %w", domain.ErrInvalidIdentity)
	}
	millis := at.UnixMilli()
	return strings.Join([]string{eventID, first, last, strconv.FormatInt(millis, 10)}, Separator), nil
}

// Decode is the inverse of Encode for all valid single-token names. The event
// id is taken from the left, the timestamp from the right, and the remainder
// is the name pair: the first segment is the first name, everything else the
// last name. Returns domain.ErrMalformedKey when fewer than four segments are
// present or the trailing segment is not a millisecond timestamp.
func Decode(key string) (Parts, error) {
	segs := strings.Split(key, Separator)
	if len(segs) < 4 {
		return Parts{}, fmt.Errorf("key %q has %d segments: %w", key, len(segs), domain.ErrMalformedKey)
	}
	millis, err := strconv.ParseInt(segs[len(segs)-1], 10, 64)
	if err != nil {
		return Parts{}, fmt.Errorf("key %q timestamp: %w", key, domain.ErrMalformedKey)
	}
	for _, seg := range segs[:len(segs)-1] {
		if seg == "" {
			return Parts{}, fmt.Errorf("key %q has empty segment: %w", key, domain.ErrMalformedKey)
		}
	}
	return Parts{
		EventID:    segs[0],
		FirstName:  segs[1],
		LastName:   strings.Join(segs[2:len(segs)-1], Separator),
		EnrolledAt: time.UnixMilli(millis).UTC(),
	}, nil
}

// NormalizeName strips the reserved separator from a raw name and collapses
// internal whitespace runs to a single separator.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, Separator, " ")
	return strings.Join(strings.Fields(name), Separator)
}
