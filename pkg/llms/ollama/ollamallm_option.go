package ollama

import (
	"net/http"
	"time"
)

const (
	hostEnvVarName  = "OLLAMA_HOST"
	modelEnvVarName = "OLLAMA_MODEL"
)

const (
	// DefaultHost is the local Ollama server.
	DefaultHost = "http://localhost:11434"
	// DefaultChatModel is used when neither an option nor OLLAMA_MODEL is set.
	DefaultChatModel = "qwen2.5:latest"
	// DefaultTimeout bounds a single chat round-trip, local models can be slow
	// on the first request while loading.
	DefaultTimeout = 5 * time.Minute
)

type options struct {
	host       string
	model      string
	timeout    time.Duration
	keepAlive  time.Duration
	httpClient *http.Client
}

// Option is a functional option for the Ollama client.
type Option func(*options)

// WithHost sets the Ollama server URL. If not set, the host is read from the
// OLLAMA_HOST environment variable, then DefaultHost is used.
func WithHost(host string) Option {
	return func(opts *options) {
		opts.host = host
	}
}

// WithModel sets the default model. If not set, the model is read from the
// OLLAMA_MODEL environment variable, then DefaultChatModel is used.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithTimeout sets the timeout of a chat round-trip.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

// WithKeepAlive controls how long the model stays loaded after a request.
func WithKeepAlive(keepAlive time.Duration) Option {
	return func(opts *options) {
		opts.keepAlive = keepAlive
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}
