// Package version exposes clientengine build information and the default
// User-Agent sent by engines.
//
// Version and commit are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/clientengine/version.Version=1.0.0"
package version
