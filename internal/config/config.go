package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables
	S3BucketName string

	// RekognitionCollection is the face index shared across all events.
	// When empty the matcher stays unconfigured and check-ins fail closed
	// with provider_unavailable.
	RekognitionCollection string
	// MatchThreshold is the minimum similarity (0-100) a search candidate
	// needs to survive filtering.
	MatchThreshold float64
	// NameFallback enables the legacy name-match resolution tier for
	// registrations enrolled before enrollment links were persisted.
	NameFallback bool

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SNSRegion      string
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Events          string
	Registrations   string
	CheckinAttempts string
	Stations        string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Events:          getEnv("DYNAMO_TABLE_EVENTS", "events"),
			Registrations:   getEnv("DYNAMO_TABLE_REGISTRATIONS", "registrations"),
			CheckinAttempts: getEnv("DYNAMO_TABLE_CHECKIN_ATTEMPTS", "checkin_attempts"),
			Stations:        getEnv("DYNAMO_TABLE_STATIONS", "stations"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "checkin-enrollment-photos"),

		RekognitionCollection: getEnv("REKOGNITION_COLLECTION", ""),
		MatchThreshold:        getEnvFloat("FACE_MATCH_THRESHOLD", 85),
		NameFallback:          getEnvBool("FACE_NAME_FALLBACK", true),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 72)) * time.Hour,

		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
