package anthropic

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/petal-labs/anthropic-go/core"
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is sent in the x-api-key header. Backends that authenticate
	// differently remove it in their middleware.
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to https://api.anthropic.com
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to a new http.Client.
	HTTPClient *http.Client

	// Version is the Anthropic API version. Defaults to 2023-06-01.
	Version string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// UserAgent is sent in the User-Agent header.
	UserAgent string

	// Timeout bounds each attempt. Defaults to core.DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Negative
	// means core.DefaultMaxRetries.
	MaxRetries int

	// RetryPolicy replaces the default policy. It takes precedence over
	// MaxRetries.
	RetryPolicy core.RetryPolicy

	// Middleware runs inside the default headers middleware, in order.
	Middleware []core.Middleware

	// Betas are sent on every request.
	Betas []string

	// FilesAPIBeta is the beta flag sent with Files API requests.
	FilesAPIBeta string

	// Provider names the backend in errors and telemetry.
	Provider string

	Logger    *slog.Logger
	Telemetry core.TelemetryHook
}

// DefaultBaseURL is the default Anthropic API base URL.
const DefaultBaseURL = "https://api.anthropic.com"

// DefaultVersion is the default Anthropic API version.
const DefaultVersion = "2023-06-01"

// DefaultUserAgent identifies this SDK.
const DefaultUserAgent = "anthropic-go/" + Version

// Version is the SDK version.
const Version = "0.1.0"

// DefaultFilesAPIBeta is the default beta version for the Files API.
const DefaultFilesAPIBeta = BetaFilesAPI

// Option configures the Anthropic client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithVersion sets the Anthropic API version.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.Version = version
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p core.RetryPolicy) Option {
	return func(c *Config) {
		c.RetryPolicy = p
	}
}

// WithMiddleware appends request middleware. Middleware added first runs
// outermost.
func WithMiddleware(mws ...core.Middleware) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, mws...)
	}
}

// WithBetas enables beta features on every request.
func WithBetas(betas ...string) Option {
	return func(c *Config) {
		c.Betas = append(c.Betas, betas...)
	}
}

// WithFilesAPIBeta sets the beta version header for Files API operations.
func WithFilesAPIBeta(version string) Option {
	return func(c *Config) {
		c.FilesAPIBeta = version
	}
}

// WithProvider names the backend, e.g. "vertex", in errors and telemetry.
func WithProvider(name string) Option {
	return func(c *Config) {
		c.Provider = name
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(h core.TelemetryHook) Option {
	return func(c *Config) {
		c.Telemetry = h
	}
}
