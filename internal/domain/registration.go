package domain

import "time"

// Payment states. Only relevant when the registration's event is ticketed.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Attendance states. A registration moves registered -> attended exactly
// once; once attended, ValidatedAt is immutable.
const (
	AttendanceRegistered = "registered"
	AttendanceAttended   = "attended"
)

type Registration struct {
	RegistrationID   string     `json:"id" dynamodbav:"registration_id"`
	EventID          string     `json:"event_id" dynamodbav:"event_id"`
	FirstName        string     `json:"first_name" dynamodbav:"first_name"`
	LastName         string     `json:"last_name" dynamodbav:"last_name"`
	Email            string     `json:"email" dynamodbav:"email"`
	Phone            *string    `json:"phone,omitempty" dynamodbav:"phone"`
	EnrollmentKey    *string    `json:"enrollment_key,omitempty" dynamodbav:"enrollment_key"`
	FaceID           *string    `json:"-" dynamodbav:"face_id"` // provider-side face handle
	PhotoObject      *string    `json:"photo_object,omitempty" dynamodbav:"photo_object"`
	PaymentStatus    string     `json:"payment_status" dynamodbav:"payment_status"`
	AttendanceStatus string     `json:"attendance_status" dynamodbav:"attendance_status"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty" dynamodbav:"validated_at"`
	CreatedAt        time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateRegistrationRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone"`
}
