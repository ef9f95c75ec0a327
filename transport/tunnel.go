package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kbukum/clientengine/errors"
)

// directForTLS wraps the proxy lookup so that https origins reach
// DialTLSContext unproxied. dialTLS then tunnels them itself, which keeps the
// TLS factory in charge of the handshake behind a proxy.
func directForTLS(next func(*http.Request) (*url.URL, error)) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" {
			return nil, nil
		}
		return next(req)
	}
}

// dialTunnel opens a CONNECT tunnel to target through proxy.
func dialTunnel(ctx context.Context, dialer *net.Dialer, f *ClientTLSFactory, proxy *HTTPProxy, target Address) (net.Conn, error) {
	proxyAddr := proxy.Address()
	conn, err := dialer.DialContext(ctx, "tcp", proxyAddr.String())
	if err != nil {
		return nil, err
	}

	if proxy.Secure() {
		cfg := f.TLSConfig()
		cfg.ServerName = proxyAddr.Host
		cfg.NextProtos = []string{"http/1.1"}
		cfg.VerifyConnection = nil
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	// Unblock the CONNECT exchange when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: target.String()},
		Host:   target.String(),
		Header: make(http.Header),
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, tunnelError(ctx, err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		_ = conn.Close()
		return nil, tunnelError(ctx, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, errors.New(errors.ErrCodeConnectionFailed,
			"transport: proxy "+proxyAddr.String()+" refused CONNECT "+target.String()+": "+resp.Status).
			WithDetail("status", strconv.Itoa(resp.StatusCode))
	}

	if !stop() {
		// ctx ended while the proxy answered and conn is already closed.
		return nil, ctx.Err()
	}
	return conn, nil
}

func tunnelError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
