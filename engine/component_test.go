package engine

import (
	"context"
	"crypto/tls"
	"testing"

	"github.com/kbukum/clientengine/component"
	"github.com/kbukum/clientengine/errors"
)

func TestComponent_Lifecycle(t *testing.T) {
	f, _ := newTestFactory(t)
	c := NewComponent("api", f, ClientConfiguration{ConnectionTimeout: -1})

	if c.Name() != "api" {
		t.Errorf("expected name 'api', got %q", c.Name())
	}
	if c.Health(context.Background()).Status != component.StatusUnhealthy {
		t.Error("expected unhealthy before Start")
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e := c.Engine()
	if e == nil {
		t.Fatal("expected engine after Start")
	}
	if err := c.Start(context.Background()); err != nil || c.Engine() != e {
		t.Error("second Start should keep the running engine")
	}
	if c.Health(context.Background()).Status != component.StatusHealthy {
		t.Error("expected healthy after Start")
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Engine() != nil {
		t.Error("expected no engine after Stop")
	}
	if c.Health(context.Background()).Status != component.StatusUnhealthy {
		t.Error("expected unhealthy after Stop")
	}
}

func TestComponent_StartPropagatesBuildError(t *testing.T) {
	f, _ := newTestFactory(t)
	c := NewComponent("", f, ClientConfiguration{ConnectionTimeout: -1, ProxyHost: "proxy.local", ProxyPort: 70000})

	if c.Name() != "engine" {
		t.Errorf("expected default name, got %q", c.Name())
	}
	if err := c.Start(context.Background()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestComponent_Registry(t *testing.T) {
	f, _ := newTestFactory(t)
	reg := component.NewRegistry()
	if err := reg.Register(NewComponent("api", f, ClientConfiguration{ConnectionTimeout: -1})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if h := reg.HealthAll(context.Background()); len(h) != 1 || h[0].Status != component.StatusHealthy {
		t.Errorf("unexpected health %v", h)
	}
	if err := reg.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	f, _ := newTestFactory(t)
	c := NewComponent("api", f, ClientConfiguration{
		ProxyHost:               "proxy.local",
		ProxyPort:               8080,
		CookieManagementEnabled: true,
		TLSConfig:               &tls.Config{MinVersion: tls.VersionTLS12},
	})

	d := c.Describe()
	if d.Type != "http-client" {
		t.Errorf("unexpected type %q", d.Type)
	}
	want := "proxy=proxy.local:8080 tls=on cookies=on redirects=off"
	if d.Details != want {
		t.Errorf("expected %q, got %q", want, d.Details)
	}
}
