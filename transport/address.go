package transport

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/kbukum/clientengine/errors"
)

// Address is a host and port pair identifying an endpoint.
type Address struct {
	Host string
	Port int
}

// NewAddress validates host and port and returns an Address.
func NewAddress(host string, port int) (Address, error) {
	if host == "" {
		return Address{}, errors.MissingField("address.host")
	}
	if port < 1 || port > 65535 {
		return Address{}, errors.InvalidInput("address.port",
			"must be between 1 and 65535 (got "+strconv.Itoa(port)+")")
	}
	return Address{Host: host, Port: port}, nil
}

// String returns host:port, bracketing IPv6 literals.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// HTTPProxy is a forward proxy reached over HTTP or, when secure, over TLS.
type HTTPProxy struct {
	address Address
	secure  bool
}

// NewHTTPProxy creates a proxy entry for address.
func NewHTTPProxy(address Address, secure bool) *HTTPProxy {
	return &HTTPProxy{address: address, secure: secure}
}

// Address returns the proxy endpoint.
func (p *HTTPProxy) Address() Address { return p.address }

// Secure reports whether the client talks TLS to the proxy itself.
func (p *HTTPProxy) Secure() bool { return p.secure }

// URI returns the proxy URL handed to http.Transport.
func (p *HTTPProxy) URI() *url.URL {
	scheme := "http"
	if p.secure {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: p.address.String()}
}

// Matches reports whether requests to origin should go through this proxy.
// The proxy itself is never proxied.
func (p *HTTPProxy) Matches(origin Address) bool {
	return origin != p.address
}

// ProxyConfiguration holds the ordered proxy list of a Client.
type ProxyConfiguration struct {
	mu      sync.RWMutex
	proxies []*HTTPProxy
}

// AddProxy appends a proxy. Nil is ignored.
func (c *ProxyConfiguration) AddProxy(p *HTTPProxy) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proxies = append(c.proxies, p)
}

// Proxies returns a copy of the configured proxies.
func (c *ProxyConfiguration) Proxies() []*HTTPProxy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*HTTPProxy(nil), c.proxies...)
}

// Match returns the first proxy that matches origin, or nil.
func (c *ProxyConfiguration) Match(origin Address) *HTTPProxy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.proxies {
		if p.Matches(origin) {
			return p
		}
	}
	return nil
}

// proxyFunc adapts the configuration to http.Transport.Proxy.
func (c *ProxyConfiguration) proxyFunc(req *http.Request) (*url.URL, error) {
	p := c.Match(requestOrigin(req.URL))
	if p == nil {
		return nil, nil
	}
	return p.URI(), nil
}

func requestOrigin(u *url.URL) Address {
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		port = 80
		if u.Scheme == "https" {
			port = 443
		}
	}
	return Address{Host: u.Hostname(), Port: port}
}
