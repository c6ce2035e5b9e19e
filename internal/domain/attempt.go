package domain

import "time"

// Check-in channels recorded on validation attempts.
const (
	ChannelFace = "face"
	ChannelCode = "code"
)

// ValidationAttempt is the append-only audit record of one resolution plus
// validation call. Written regardless of outcome so operators can diagnose
// false accepts and rejects after the event.
// PK: attempt_id. GSI: event_id + created_at for time-range review queries.
type ValidationAttempt struct {
	AttemptID      string    `json:"id" dynamodbav:"attempt_id"`
	EventID        string    `json:"event_id" dynamodbav:"event_id"`
	Channel        string    `json:"channel" dynamodbav:"channel"`
	TopSimilarity  float64   `json:"top_similarity" dynamodbav:"top_similarity"`
	Outcome        string    `json:"outcome" dynamodbav:"outcome"` // "validated" | "rejected:<reason>"
	RegistrationID *string   `json:"registration_id,omitempty" dynamodbav:"registration_id"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
