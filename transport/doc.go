// Package transport provides the HTTP transport client configured by the
// client engine.
//
// A Client is assembled through setters (executor, connect timeout, proxies,
// cookie store, redirect policy, TLS factory) and frozen by Start into a
// *http.Client backed by *http.Transport. Setters fail with a CONFLICT
// error once the client is started.
//
// # Usage
//
//	c := transport.NewClient()
//	_ = c.SetConnectTimeout(5 * time.Second)
//	addr, _ := transport.NewAddress("proxy.local", 8080)
//	c.ProxyConfiguration().AddProxy(transport.NewHTTPProxy(addr, false))
//	if err := c.Start(); err != nil {
//	    return err
//	}
//	resp, err := c.HTTPClient().Do(req)
//
// # TLS and SNI
//
// A ClientTLSFactory binds a *tls.Config and an optional SNIProvider. When a
// factory is attached, direct secure connections (and connections to secure
// proxies) are dialed by the factory, which asks the provider for the server
// names to present. TLS carries a single host_name entry per ClientHello, so
// the first returned name is sent. The peer certificate is still verified
// against the connection target.
package transport
