package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"net"
	"strings"
	"sync"

	"golang.org/x/net/idna"

	"github.com/kbukum/clientengine/errors"
)

// SNIHostName is a server name in the ASCII form carried by the TLS
// server_name extension.
type SNIHostName string

// NewSNIHostName converts name to its ASCII form. IP literals, empty names
// and names with a trailing dot are rejected.
func NewSNIHostName(name string) (SNIHostName, error) {
	if name == "" {
		return "", errors.MissingField("sni.host_name")
	}
	if strings.HasSuffix(name, ".") {
		return "", errors.InvalidFormat("sni.host_name", "hostname without trailing dot")
	}
	if net.ParseIP(name) != nil {
		return "", errors.InvalidInput("sni.host_name", "IP literals are not allowed ("+name+")")
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", errors.InvalidInput("sni.host_name", err.Error()).WithCause(err)
	}
	return SNIHostName(strings.ToLower(ascii)), nil
}

// SNIProvider chooses the server names presented for a secure connection to
// target. proposed holds the names the transport would present by default.
type SNIProvider func(target Address, proposed []SNIHostName) []SNIHostName

// ClientTLSFactory creates the client side of TLS connections.
type ClientTLSFactory struct {
	mu          sync.RWMutex
	config      *tls.Config
	sniProvider SNIProvider
}

// NewClientTLSFactory returns a factory using a default *tls.Config.
func NewClientTLSFactory() *ClientTLSFactory {
	return &ClientTLSFactory{}
}

// SetTLSConfig binds the TLS context used for every handshake.
func (f *ClientTLSFactory) SetTLSConfig(cfg *tls.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = cfg
}

// TLSConfig returns a clone of the bound TLS context, or a fresh default one.
func (f *ClientTLSFactory) TLSConfig() *tls.Config {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.config == nil {
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return f.config.Clone()
}

// SetSNIProvider installs p. Nil restores the default derivation from the
// connection target.
func (f *ClientTLSFactory) SetSNIProvider(p SNIProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sniProvider = p
}

// SNIProvider returns the installed provider, or nil.
func (f *ClientTLSFactory) SNIProvider() SNIProvider {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sniProvider
}

// ServerNames returns the names presented when connecting to target.
func (f *ClientTLSFactory) ServerNames(target Address) []SNIHostName {
	cfg := f.TLSConfig()
	proposed := defaultServerNames(cfg, target)
	if p := f.SNIProvider(); p != nil {
		return p(target, proposed)
	}
	return proposed
}

// Handshake runs the client handshake over raw for a connection to target.
// nextProtos is used when the bound config has no ALPN list of its own.
func (f *ClientTLSFactory) Handshake(ctx context.Context, raw net.Conn, target Address, nextProtos []string) (*tls.Conn, error) {
	cfg := f.TLSConfig()
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = nextProtos
	}

	verifyName := cfg.ServerName
	if verifyName == "" {
		verifyName = target.Host
	}
	cfg.ServerName = verifyName

	if f.SNIProvider() != nil {
		if names := f.ServerNames(target); len(names) > 0 {
			cfg.ServerName = string(names[0])
		}
	}

	// The presented name no longer identifies the peer, so certificate
	// verification is pinned to the connection target.
	if cfg.ServerName != verifyName && !cfg.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true //nolint:gosec // replaced by verifyPeer
		cfg.VerifyConnection = verifyPeer(verifyName, cfg.RootCAs, cfg.VerifyConnection)
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return conn, nil
}

// defaultServerNames mirrors crypto/tls: IP literals carry no SNI.
func defaultServerNames(cfg *tls.Config, target Address) []SNIHostName {
	name := cfg.ServerName
	if name == "" {
		name = target.Host
	}
	if name == "" || net.ParseIP(name) != nil {
		return nil
	}
	return []SNIHostName{SNIHostName(name)}
}

var errNoPeerCertificate = stderrors.New("transport: peer presented no certificate")

func verifyPeer(name string, roots *x509.CertPool, next func(tls.ConnectionState) error) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errNoPeerCertificate
		}
		opts := x509.VerifyOptions{
			DNSName:       name,
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(cert)
		}
		if _, err := cs.PeerCertificates[0].Verify(opts); err != nil {
			return err
		}
		if next != nil {
			return next(cs)
		}
		return nil
	}
}
