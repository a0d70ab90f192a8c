package jenkins

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, map[string]interface{}) {}
func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}

// Config represents client configuration for building a jenkins.Jenkins.
//
// # Authentication
//
// When Username is set every request carries HTTP basic credentials built
// from Username and APIToken. Cookies issued by the server are kept in the
// client's session for its lifetime. With UseCrumb the client fetches a
// CSRF crumb from crumbIssuer before the first POST and resends it on every
// subsequent POST.
//
// # Retries
//
// Two layers exist. RetryAttempts/RetryDelay drive the entity-level retry
// executor wrapped around every refresh: failures other than not-found,
// not-authorized, missing data and contract violations are retried with a
// fixed pause. TransportRetryMax enables additional transport retries for
// idempotent requests and is off by default.
type Config struct {
	// BaseURL: root URL of the server (e.g., "https://ci.example.com").
	// jenkinsclient.New trims a trailing slash and adds "https://" if no
	// scheme is present.
	BaseURL string

	Username string
	APIToken string

	// UseCrumb: fetch and send CSRF crumbs on POST requests.
	UseCrumb bool

	// RetryAttempts: total attempts per refresh (default 5).
	RetryAttempts int
	// RetryDelay: fixed pause between attempts (default 1s).
	RetryDelay time.Duration
	// TransportRetryMax: retryablehttp retries for GET requests (default 0).
	TransportRetryMax int

	// HTTPTimeout: per-request timeout (default 30s).
	HTTPTimeout time.Duration
	// RateLimit: maximum requests per second, 0 for unlimited.
	RateLimit float64

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and entities.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// SkipTLSVerify: disables certificate verification. Test servers only.
	SkipTLSVerify bool

	// Lazy: when true, the root snapshot is not fetched during construction.
	Lazy bool

	// Events: optional publisher notified after successful mutations.
	Events EventPublisher
	// MetricsRegisterer: optional Prometheus registerer for request metrics.
	MetricsRegisterer prometheus.Registerer
}
