package transport

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/clientengine/errors"
	"github.com/kbukum/clientengine/security/tlstest"
)

func TestNewSNIHostName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     SNIHostName
		wantCode errors.ErrorCode
	}{
		{"ascii", "a.example", "a.example", ""},
		{"upper case", "API.Example", "api.example", ""},
		{"unicode", "bücher.example", "xn--bcher-kva.example", ""},
		{"empty", "", "", errors.ErrCodeMissingField},
		{"trailing dot", "a.example.", "", errors.ErrCodeInvalidFormat},
		{"ipv4", "127.0.0.1", "", errors.ErrCodeInvalidInput},
		{"ipv6", "::1", "", errors.ErrCodeInvalidInput},
		{"space", "bad host.example", "", errors.ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewSNIHostName(tc.input)
			if tc.wantCode != "" {
				if !errors.HasCode(err, tc.wantCode) {
					t.Errorf("expected %s, got %v", tc.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestClientTLSFactory_TLSConfig(t *testing.T) {
	f := NewClientTLSFactory()
	if cfg := f.TLSConfig(); cfg == nil || cfg.MinVersion != tls.VersionTLS12 {
		t.Fatalf("expected default config, got %+v", cfg)
	}

	bound := &tls.Config{ServerName: "bound.example", MinVersion: tls.VersionTLS13}
	f.SetTLSConfig(bound)
	got := f.TLSConfig()
	if got == bound {
		t.Error("TLSConfig must return a clone")
	}
	if got.ServerName != "bound.example" || got.MinVersion != tls.VersionTLS13 {
		t.Errorf("unexpected clone %+v", got)
	}
}

func TestClientTLSFactory_ServerNames(t *testing.T) {
	f := NewClientTLSFactory()

	if names := f.ServerNames(Address{Host: "api.example", Port: 443}); len(names) != 1 || names[0] != "api.example" {
		t.Errorf("expected target host, got %v", names)
	}
	if names := f.ServerNames(Address{Host: "10.0.0.1", Port: 443}); len(names) != 0 {
		t.Errorf("IP targets carry no SNI, got %v", names)
	}

	var gotProposed []SNIHostName
	f.SetSNIProvider(func(_ Address, proposed []SNIHostName) []SNIHostName {
		gotProposed = proposed
		return []SNIHostName{"override.example"}
	})
	names := f.ServerNames(Address{Host: "api.example", Port: 443})
	if len(names) != 1 || names[0] != "override.example" {
		t.Errorf("expected provider names, got %v", names)
	}
	if len(gotProposed) != 1 || gotProposed[0] != "api.example" {
		t.Errorf("provider should see proposed names, got %v", gotProposed)
	}

	f.SetSNIProvider(nil)
	if f.SNIProvider() != nil {
		t.Error("expected provider to be cleared")
	}
}

func TestClient_TLSHandshake(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t, "a.example", "b.example")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "secure")
	})

	tests := []struct {
		name     string
		host     string
		provider SNIProvider
		wantSNI  string
	}{
		{
			name:    "ip target sends no sni",
			host:    "127.0.0.1",
			wantSNI: "",
		},
		{
			name:    "hostname target",
			host:    "localhost",
			wantSNI: "localhost",
		},
		{
			name: "provider overrides sni",
			host: "127.0.0.1",
			provider: func(Address, []SNIHostName) []SNIHostName {
				return []SNIHostName{"a.example", "b.example"}
			},
			wantSNI: "a.example",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := tlstest.StartServer(t, certs, handler)

			f := NewClientTLSFactory()
			f.SetTLSConfig(certs.ClientConfig())
			f.SetSNIProvider(tc.provider)
			c := startClient(t, func(c *Client) { _ = c.SetTLSFactory(f) })
			if c.Transport().DialTLSContext == nil {
				t.Fatal("expected custom TLS dialer")
			}

			url := strings.Replace(srv.URL, "127.0.0.1", tc.host, 1)
			resp, err := c.HTTPClient().Get(url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if string(body) != "secure" {
				t.Errorf("unexpected body %q", body)
			}

			names := srv.ServerNames()
			if len(names) == 0 {
				t.Fatal("server saw no handshake")
			}
			if names[0] != tc.wantSNI {
				t.Errorf("expected SNI %q, got %q", tc.wantSNI, names[0])
			}
		})
	}
}

func TestClient_TLSHandshake_OverrideStillVerifies(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t, "a.example")
	srv := tlstest.StartServer(t, certs, http.NotFoundHandler())

	f := NewClientTLSFactory()
	f.SetTLSConfig(&tls.Config{RootCAs: x509.NewCertPool(), MinVersion: tls.VersionTLS12})
	f.SetSNIProvider(func(Address, []SNIHostName) []SNIHostName {
		return []SNIHostName{"a.example"}
	})
	c := startClient(t, func(c *Client) { _ = c.SetTLSFactory(f) })

	resp, err := c.HTTPClient().Get(srv.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected verification failure against an untrusted CA")
	}
}

func TestClient_TLSHandshake_UntrustedWithoutFactory(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := tlstest.StartServer(t, certs, http.NotFoundHandler())

	c := startClient(t, nil)
	resp, err := c.HTTPClient().Get(srv.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected system roots to reject the test CA")
	}
}

func TestClient_TLSThroughConnectProxy(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t, "a.example")
	srv := tlstest.StartServer(t, certs, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "tunnelled")
	}))
	proxy := tlstest.StartConnectProxy(t)
	host, port := proxy.HostPort()

	f := NewClientTLSFactory()
	f.SetTLSConfig(certs.ClientConfig())
	f.SetSNIProvider(func(Address, []SNIHostName) []SNIHostName {
		return []SNIHostName{"a.example"}
	})
	c := startClient(t, func(c *Client) {
		c.ProxyConfiguration().AddProxy(NewHTTPProxy(Address{Host: host, Port: port}, false))
		_ = c.SetTLSFactory(f)
	})

	resp, err := c.HTTPClient().Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "tunnelled" {
		t.Errorf("unexpected body %q", body)
	}

	target := strings.TrimPrefix(srv.URL, "https://")
	if got := proxy.Targets(); len(got) != 1 || got[0] != target {
		t.Errorf("expected one CONNECT to %s, got %v", target, got)
	}
	if names := srv.ServerNames(); len(names) == 0 || names[0] != "a.example" {
		t.Errorf("expected SNI a.example inside the tunnel, got %v", names)
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := tlstest.StartServer(t, certs, http.NotFoundHandler())
	proxy := tlstest.StartConnectProxy(t)
	proxy.Reject(http.StatusForbidden)
	host, port := proxy.HostPort()

	f := NewClientTLSFactory()
	f.SetTLSConfig(certs.ClientConfig())
	c := startClient(t, func(c *Client) {
		c.ProxyConfiguration().AddProxy(NewHTTPProxy(Address{Host: host, Port: port}, false))
		_ = c.SetTLSFactory(f)
	})

	resp, err := c.HTTPClient().Get(srv.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected refused tunnel to fail the request")
	}
	if !errors.HasCode(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("expected CONNECTION_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("expected proxy status in error, got %v", err)
	}
	if len(srv.ServerNames()) != 0 {
		t.Error("target should not see a handshake")
	}
}

func TestClient_PlainHTTPStillUsesTransportProxy(t *testing.T) {
	f := NewClientTLSFactory()
	c := startClient(t, func(c *Client) {
		c.ProxyConfiguration().AddProxy(NewHTTPProxy(Address{Host: "proxy.local", Port: 3128}, false))
		_ = c.SetTLSFactory(f)
	})

	tests := []struct {
		url  string
		want string
	}{
		{"http://origin.example/", "http://proxy.local:3128"},
		{"https://origin.example/", ""},
	}
	for _, tc := range tests {
		req, _ := http.NewRequest(http.MethodGet, tc.url, nil)
		u, err := c.Transport().Proxy(req)
		if err != nil {
			t.Fatalf("Proxy(%s): %v", tc.url, err)
		}
		got := ""
		if u != nil {
			got = u.String()
		}
		if got != tc.want {
			t.Errorf("Proxy(%s) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
