// Package security builds the TLS context handed to the client engine.
//
// It turns file-based TLS material (CA bundle, client certificate and key)
// into a *tls.Config. The engine core never reads certificate material
// itself; it only receives the resulting handle.
//
// # TLS Configuration
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/path/to/ca.pem",
//	    CertFile: "/path/to/cert.pem",
//	    KeyFile:  "/path/to/key.pem",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
