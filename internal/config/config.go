// Package config defines the process configuration for the quill API.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved from the OS environment first, then from a .env file
// in the working directory. A missing provider secret or an invalid value
// stops the process before it serves any request.
package config

import (
	"time"

	"quill/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"quill-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Creem         CreemConfig
	Webhook       WebhookConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	AWS           AWSConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
}

// CreemConfig holds the payment provider credentials. Both secrets are
// required; the server refuses to start without them.
type CreemConfig struct {
	// APIKey signs the checkout success redirect.
	APIKey SecretString `envconfig:"CREEM_API_KEY" validate:"required"`
	// WebhookSecret signs webhook bodies.
	WebhookSecret SecretString `envconfig:"CREEM_WEBHOOK_SECRET" validate:"required"`
	// ProductID is informational only.
	ProductID string `envconfig:"CREEM_PRODUCT_ID"`
}

// WebhookConfig bounds inbound webhook handling.
type WebhookConfig struct {
	MaxBodyBytes   int64         `envconfig:"WEBHOOK_MAX_BODY_BYTES" default:"65536" validate:"min=1"`
	ProcessTimeout time.Duration `envconfig:"WEBHOOK_PROCESS_TIMEOUT" default:"30s" validate:"gt=0"`
	MaxInFlight    int64         `envconfig:"WEBHOOK_MAX_IN_FLIGHT" default:"64" validate:"min=1"`
}

// SecurityConfig holds browser-facing settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace   string `envconfig:"METRIC_NAMESPACE" default:"Quill"`
	CloudWatchEnabled bool   `envconfig:"CLOUDWATCH_ENABLED" default:"false"`
}

// AWSConfig holds AWS regional configuration, used only when CloudWatch
// alerting is enabled.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// IsLocal reports whether the process runs in the local environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
