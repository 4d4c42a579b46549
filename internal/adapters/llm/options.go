package llm

import (
	"net/http"
	"time"

	"github.com/okian/coach/pkg/logger"
)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	headers    http.Header
}

// ClientOption configures a vendor client.
type ClientOption func(*clientOptions)

// WithHTTPClient replaces the default client. Tests point it at httptest.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithTimeout bounds a single completion.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeader adds an extra request header, e.g. OpenRouter's X-Title.
func WithHeader(key, value string) ClientOption {
	return func(o *clientOptions) {
		if key != "" && value != "" {
			o.headers.Set(key, value)
		}
	}
}

func buildClientOptions(opts []ClientOption) clientOptions {
	o := clientOptions{timeout: defaultTimeout, headers: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithPriority orders providers by name. Unlisted providers keep their
// registration order after the listed ones.
func WithPriority(names ...string) ManagerOption {
	return func(m *Manager) { m.priority = names }
}
