package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/clientengine/version"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clientengine.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const quietConfig = `
client:
  read_timeout: 5s
  max_concurrent: 2
logging:
  level: error
`

func TestRequestCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Trace", r.Header.Get("X-Trace"))
		w.Header().Set("X-UA", r.UserAgent())
		_, _ = w.Write([]byte("hello"))
	}))
	t.Cleanup(srv.Close)
	cfg := writeConfig(t, quietConfig)

	t.Run("body", func(t *testing.T) {
		out, err := execute(t, "--config", cfg, "request", srv.URL)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if out != "hello" {
			t.Errorf("output = %q, want %q", out, "hello")
		}
	})

	t.Run("include headers", func(t *testing.T) {
		out, err := execute(t, "--config", cfg, "get", "-i", "-H", "X-Trace: abc", srv.URL)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		for _, want := range []string{
			"HTTP/1.1 200 OK\n",
			"X-Method: GET\n",
			"X-Trace: abc\n",
			"X-Ua: " + version.UserAgent() + "\n",
			"\n\nhello",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("data implies POST", func(t *testing.T) {
		out, err := execute(t, "--config", cfg, "request", "-i", "-d", "x=1", srv.URL)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(out, "X-Method: POST\n") {
			t.Errorf("expected POST:\n%s", out)
		}
	})

	t.Run("bad header", func(t *testing.T) {
		if _, err := execute(t, "--config", cfg, "request", "-H", "nocolon", srv.URL); err == nil {
			t.Fatal("expected header error")
		}
	})
}

func TestRequestCommandFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	cfg := writeConfig(t, quietConfig)

	if _, err := execute(t, "--config", cfg, "request", srv.URL); err != nil {
		t.Fatalf("without --fail a 500 is not an error: %v", err)
	}
	_, err := execute(t, "--config", cfg, "request", "--fail", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected 500 error, got %v", err)
	}
}

func TestRequestCommandConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := execute(t, "--config", writeConfig(t, quietConfig), "request", url); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "client:\n  proxy:\n    host: p\n    port: 0\n")
	_, err := execute(t, "--config", cfg, "describe")
	if err == nil || !strings.Contains(err.Error(), "client.proxy.port") {
		t.Fatalf("expected proxy port error, got %v", err)
	}
}

func TestDescribeCommand(t *testing.T) {
	cfg := writeConfig(t, `
client:
  connection_timeout: 750ms
  cookie_management: true
  follow_redirects: false
  max_concurrent: 4
  proxy: { host: proxy.local, port: 3128 }
logging:
  level: error
`)
	out, err := execute(t, "--config", cfg, "describe")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"engine (http-client): proxy=proxy.local:3128 tls=off cookies=on redirects=off",
		"connection_timeout_ms=750 read_timeout_ms=0 connection_ttl_ms=0",
		"executor: pool max_concurrent=4 queue_size=64",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogLevelFlag(t *testing.T) {
	cfg := writeConfig(t, quietConfig)
	if _, err := execute(t, "--config", cfg, "--log-level", "loud", "describe"); err == nil {
		t.Fatal("expected invalid level error")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != version.Get().Short() {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "version", "--config", "/nonexistent.yml")
	if err != nil {
		t.Fatalf("version must not load config: %v", err)
	}
	if !strings.HasPrefix(out, version.Product+" ") {
		t.Errorf("output = %q", out)
	}
}
