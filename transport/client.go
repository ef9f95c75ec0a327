package transport

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/clientengine/errors"
	"github.com/kbukum/clientengine/logger"
)

const (
	// DefaultConnectTimeout applies when SetConnectTimeout is never called.
	DefaultConnectTimeout = 15 * time.Second

	defaultKeepAlive           = 30 * time.Second
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultMaxIdleConns        = 100
)

// ErrStarted is returned by setters once the client has been started.
var ErrStarted = errors.Conflict("transport: client already started")

// Client is the configurable HTTP transport wrapped by an engine.
type Client struct {
	mu sync.RWMutex

	executor          Executor
	connectTimeout    time.Duration
	connectTimeoutSet bool
	proxyConfig       *ProxyConfiguration
	cookieStore       http.CookieJar
	followRedirects   bool
	tlsFactory        *ClientTLSFactory
	userAgent         string
	log               *logger.Logger

	started    bool
	transport  *http.Transport
	httpClient *http.Client
}

// NewClient returns an unstarted client with default settings: goroutine
// executor, 15s connect timeout, no proxy, no cookie store, redirects
// followed, no TLS factory.
func NewClient() *Client {
	return &Client{
		executor:        GoExecutor{},
		connectTimeout:  DefaultConnectTimeout,
		proxyConfig:     &ProxyConfiguration{},
		followRedirects: true,
		log:             logger.Nop(),
	}
}

// SetExecutor sets the executor running asynchronous work for this client.
func (c *Client) SetExecutor(e Executor) error {
	if e == nil {
		return errors.MissingField("executor")
	}
	return c.set(func() { c.executor = e })
}

// SetConnectTimeout sets the dial timeout. Zero disables it.
func (c *Client) SetConnectTimeout(d time.Duration) error {
	if d < 0 {
		return errors.InvalidInput("connect_timeout", "must not be negative (got "+d.String()+")")
	}
	return c.set(func() {
		c.connectTimeout = d
		c.connectTimeoutSet = true
	})
}

// SetCookieStore attaches a cookie store. Nil detaches it.
func (c *Client) SetCookieStore(jar http.CookieJar) error {
	return c.set(func() { c.cookieStore = jar })
}

// SetFollowRedirects controls whether redirects are followed.
func (c *Client) SetFollowRedirects(follow bool) error {
	return c.set(func() { c.followRedirects = follow })
}

// SetTLSFactory attaches the factory used for secure connections.
func (c *Client) SetTLSFactory(f *ClientTLSFactory) error {
	return c.set(func() { c.tlsFactory = f })
}

// SetUserAgent sets the User-Agent injected into requests lacking one.
func (c *Client) SetUserAgent(ua string) error {
	return c.set(func() { c.userAgent = ua })
}

// SetLogger sets the logger used for debug request logging.
func (c *Client) SetLogger(l *logger.Logger) error {
	if l == nil {
		l = logger.Nop()
	}
	return c.set(func() { c.log = l })
}

func (c *Client) set(apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrStarted
	}
	apply()
	return nil
}

// Executor returns the configured executor.
func (c *Client) Executor() Executor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executor
}

// ConnectTimeout returns the effective dial timeout.
func (c *Client) ConnectTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectTimeout
}

// ConnectTimeoutSet reports whether SetConnectTimeout has been called.
func (c *Client) ConnectTimeoutSet() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectTimeoutSet
}

// ProxyConfiguration returns the mutable proxy list.
func (c *Client) ProxyConfiguration() *ProxyConfiguration {
	return c.proxyConfig
}

// CookieStore returns the attached cookie store, or nil.
func (c *Client) CookieStore() http.CookieJar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookieStore
}

// FollowRedirects reports whether redirects are followed.
func (c *Client) FollowRedirects() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.followRedirects
}

// TLSFactory returns the attached TLS factory, or nil.
func (c *Client) TLSFactory() *ClientTLSFactory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tlsFactory
}

// IsStarted reports whether Start has completed.
func (c *Client) IsStarted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Start freezes the settings into an *http.Client.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrStarted
	}

	dialer := &net.Dialer{
		Timeout:   c.connectTimeout,
		KeepAlive: defaultKeepAlive,
	}

	t := &http.Transport{
		Proxy:                 c.proxyConfig.proxyFunc,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          defaultMaxIdleConns,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if c.tlsFactory != nil {
		// Carries the ALPN list that http2 extends; handshakes go through
		// the factory in DialTLSContext, proxied or not.
		t.TLSClientConfig = c.tlsFactory.TLSConfig()
		t.Proxy = directForTLS(c.proxyConfig.proxyFunc)
	}

	if _, err := http2.ConfigureTransports(t); err != nil {
		return err
	}

	if c.tlsFactory != nil {
		t.DialTLSContext = c.dialTLS(dialer, c.tlsFactory, t.TLSClientConfig.NextProtos)
	}

	var rt http.RoundTripper = t
	rt = NewLogTransport(rt, c.log)
	if c.userAgent != "" {
		rt = NewUserAgentInjector(rt, c.userAgent)
	}

	hc := &http.Client{
		Transport: rt,
		Jar:       c.cookieStore,
	}
	if !c.followRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	c.transport = t
	c.httpClient = hc
	c.started = true
	return nil
}

func (c *Client) dialTLS(dialer *net.Dialer, f *ClientTLSFactory, nextProtos []string) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, err
		}

		target := Address{Host: host, Port: port}

		var raw net.Conn
		if proxy := c.proxyConfig.Match(target); proxy != nil {
			raw, err = dialTunnel(ctx, dialer, f, proxy, target)
		} else {
			raw, err = dialer.DialContext(ctx, network, addr)
		}
		if err != nil {
			return nil, err
		}

		hsCtx, cancel := context.WithTimeout(ctx, defaultTLSHandshakeTimeout)
		defer cancel()
		return f.Handshake(hsCtx, raw, target, nextProtos)
	}
}

// HTTPClient returns the started *http.Client, or nil before Start.
func (c *Client) HTTPClient() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

// Transport returns the started *http.Transport, or nil before Start.
func (c *Client) Transport() *http.Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport
}

// CloseIdleConnections retires every pooled connection not in use.
func (c *Client) CloseIdleConnections() {
	if t := c.Transport(); t != nil {
		t.CloseIdleConnections()
	}
}

// Stop releases pooled connections. The client cannot be restarted.
func (c *Client) Stop(_ context.Context) error {
	c.CloseIdleConnections()
	return nil
}
