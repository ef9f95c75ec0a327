package engine

import (
	"crypto/tls"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/kbukum/clientengine/transport"
)

// ClientConfiguration is the declarative description of an engine.
// Durations are milliseconds.
type ClientConfiguration struct {
	// Executor runs request exchanges and callbacks. Nil keeps the transport default.
	Executor transport.Executor

	// ConnectionTimeout is the dial timeout. Negative keeps the transport default.
	ConnectionTimeout int64
	// ReadTimeout bounds each exchange, headers and body. Zero or negative disables it.
	ReadTimeout int64
	// ConnectionTTL retires pooled connections older than this. Zero or negative disables it.
	ConnectionTTL int64

	// ProxyHost enables a single HTTP proxy when non-empty.
	ProxyHost string
	// ProxyScheme selects a secure proxy when it equals "https", ignoring case.
	ProxyScheme string
	// ProxyPort is the proxy port.
	ProxyPort int

	// CookieManagementEnabled attaches an in-memory cookie store.
	CookieManagementEnabled bool
	// FollowRedirects controls redirect following.
	FollowRedirects bool

	// TLSConfig enables the TLS factory when non-nil.
	TLSConfig *tls.Config
	// SNIHostNames overrides the server names sent during handshakes.
	// Only used when TLSConfig is set.
	SNIHostNames []string
}

func (c ClientConfiguration) proxyAddress() string {
	if c.ProxyHost == "" {
		return ""
	}
	return net.JoinHostPort(c.ProxyHost, strconv.Itoa(c.ProxyPort))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// millis converts a millisecond count to a Duration, saturating at the
// largest representable magnitude instead of wrapping.
func millis(ms int64) time.Duration {
	const limit = math.MaxInt64 / int64(time.Millisecond)
	switch {
	case ms > limit:
		return time.Duration(math.MaxInt64)
	case ms < -limit:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ms) * time.Millisecond
}
