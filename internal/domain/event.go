package domain

import "time"

type Event struct {
	EventID   string     `json:"id" dynamodbav:"event_id"`
	Name      string     `json:"name" dynamodbav:"name"`
	Ticketed  bool       `json:"ticketed" dynamodbav:"ticketed"`
	StartsAt  *time.Time `json:"starts_at,omitempty" dynamodbav:"starts_at"`
	Enable    bool       `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateEventRequest struct {
	Name     string `json:"name" validate:"required"`
	Ticketed bool   `json:"ticketed"`
	StartsAt string `json:"starts_at"` // expected format: RFC 3339
}
