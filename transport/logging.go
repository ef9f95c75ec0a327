package transport

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/kbukum/clientengine/logger"
)

// ErrNilRequest indicates that the HTTP request is nil.
var ErrNilRequest = stderrors.New("transport: request is nil")

const userAgentHeader = "User-Agent"

// LogTransport is an http.RoundTripper that logs each exchange at debug level.
type LogTransport struct {
	next http.RoundTripper
	log  *logger.Logger
}

// NewLogTransport wraps next with debug logging.
func NewLogTransport(next http.RoundTripper, log *logger.Logger) http.RoundTripper {
	return &LogTransport{next: next, log: log}
}

// RoundTrip executes a single HTTP transaction and logs the outcome.
func (t *LogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if !t.log.IsDebug() {
		return t.next.RoundTrip(req)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields := logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldURL, req.URL.Redacted(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		t.log.WithError(err).Debug("round trip failed", fields)
		return nil, err
	}
	fields[logger.FieldStatus] = resp.StatusCode
	t.log.Debug("round trip", fields)
	return resp, nil
}

// UserAgentInjector is an http.RoundTripper that sets a User-Agent header on
// requests that lack one.
type UserAgentInjector struct {
	next      http.RoundTripper
	userAgent string
}

// NewUserAgentInjector wraps next with User-Agent injection.
func NewUserAgentInjector(next http.RoundTripper, userAgent string) http.RoundTripper {
	return &UserAgentInjector{next: next, userAgent: userAgent}
}

// RoundTrip injects the header, cloning the request so the caller's copy is untouched.
func (t *UserAgentInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if req.Header.Get(userAgentHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(userAgentHeader, t.userAgent)
	}
	return t.next.RoundTrip(req)
}
