package domain

import "time"

// Station is a check-in terminal (or the admin console) operating at an
// event. Stations authenticate with a shared secret and receive a JWT.
type Station struct {
	StationID  string    `json:"id" dynamodbav:"station_id"`
	Name       string    `json:"name" dynamodbav:"name"`
	SecretHash string    `json:"-" dynamodbav:"secret_hash"`
	Role       string    `json:"role" dynamodbav:"role"`
	Enable     bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateStationRequest struct {
	Name   string `json:"name" validate:"required"`
	Secret string `json:"secret" validate:"required,min=8,max=72"`
	Role   string `json:"role"`
}

type StationLoginRequest struct {
	Name   string `json:"name" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}
