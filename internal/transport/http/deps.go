package http

import (
	"github.com/checkin-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/checkin-api/internal/infrastructure/jwt"
	"github.com/checkin-api/internal/infrastructure/rekognition"
	s3infra "github.com/checkin-api/internal/infrastructure/s3"
	"github.com/checkin-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	EventRepo        *dynamo.EventRepo
	RegistrationRepo *dynamo.RegistrationRepo
	AttemptRepo      *dynamo.AttemptRepo
	StationRepo      *dynamo.StationRepo
	Matcher          *rekognition.Matcher
	PhotoStore       *s3infra.Store
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
}
