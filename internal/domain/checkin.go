package domain

import "time"

// Check-in result statuses.
const (
	StatusValidated = "validated"
	StatusRejected  = "rejected"
)

// Rejection reasons surfaced to the API layer.
const (
	ReasonNoMatch             = "no_match"
	ReasonAmbiguous           = "ambiguous"
	ReasonAlreadyValidated    = "already_validated"
	ReasonPaymentRequired     = "payment_required"
	ReasonImageRejected       = "image_rejected"
	ReasonProviderUnavailable = "provider_unavailable"
	ReasonUnknownRegistration = "unknown_registration"
)

// MatchCandidate is one ranked result from a similarity search against the
// face index, prior to any business-logic validation. Not persisted.
type MatchCandidate struct {
	EnrollmentKey string  `json:"enrollment_key"`
	Similarity    float64 `json:"similarity"` // 0-100
	Confidence    float64 `json:"confidence"` // 0-100, detector confidence
}

// CheckinResult is the outcome of one CheckIn call.
// For AlreadyValidated rejections, ValidatedAt reports the prior validation
// time; it is never overwritten.
type CheckinResult struct {
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	RegistrationID string     `json:"registration_id,omitempty"`
	ValidatedAt    *time.Time `json:"validated_at,omitempty"`
}
