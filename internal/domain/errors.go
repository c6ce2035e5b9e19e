package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Check-in rejection sentinels. These are expected outcomes, not faults:
// operators fall back to QR/manual validation when they see them.
var (
	ErrNoMatch             = errors.New("no matching registration")
	ErrAmbiguous           = errors.New("ambiguous match")
	ErrAlreadyValidated    = errors.New("registration already validated")
	ErrPaymentRequired     = errors.New("payment required")
	ErrUnknownRegistration = errors.New("unknown registration")
	ErrProviderUnavailable = errors.New("face provider unavailable")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrMalformedKey        = errors.New("malformed enrollment key")
)

// ImageRejectReason explains why an uploaded photo was rejected before any
// provider call was made.
type ImageRejectReason string

const (
	ImageTooLarge      ImageRejectReason = "too_large"
	ImageNoFace        ImageRejectReason = "no_face"
	ImageMultipleFaces ImageRejectReason = "multiple_faces"
	ImageLowConfidence ImageRejectReason = "low_confidence"
)

// ImageRejectedError is returned when a photo fails local preconditions.
// Never retried.
type ImageRejectedError struct {
	Reason ImageRejectReason
}

func (e *ImageRejectedError) Error() string {
	return fmt.Sprintf("image rejected: %s", e.Reason)
}
