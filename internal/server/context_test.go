package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

func writeTestCredentials(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"client_id":"id","client_secret":"secret","access_token":"test-token"}`
	if err := os.WriteFile(path, []byte(creds), 0o600); err != nil {
		t.Fatalf("failed to write credentials: %v", err)
	}
	return path
}

func TestNewServerContextWithoutCredentials(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "credentials.json")

	sc, err := NewServerContext(context.Background(), ticktick.ServiceConfig{}, credsPath, nil)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	if svc := sc.Service(); svc != nil {
		t.Error("Service() should be nil when no credentials file exists")
	}
}

func TestServiceForAccountCaching(t *testing.T) {
	credsPath := writeTestCredentials(t)

	sc, err := NewServerContext(context.Background(), ticktick.ServiceConfig{}, credsPath, nil)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	first := sc.Service()
	if first == nil {
		t.Fatal("Service() returned nil with valid credentials")
	}

	second := sc.Service()
	if first != second {
		t.Error("Service() should return the cached instance on repeated calls")
	}
}

func TestServiceForAccountMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	credsPath := writeTestCredentials(t)
	sc, err := NewServerContext(context.Background(), ticktick.ServiceConfig{}, credsPath, nil)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	if svc := sc.ServiceForAccount("no-such-account"); svc != nil {
		t.Error("ServiceForAccount() should be nil for an account without credentials")
	}
}

func TestSetServiceForAccount(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "credentials.json")
	sc, err := NewServerContext(context.Background(), ticktick.ServiceConfig{}, credsPath, nil)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	svc := &ticktick.Service{}
	sc.SetServiceForAccount("work", svc)

	if got := sc.ServiceForAccount("work"); got != svc {
		t.Error("ServiceForAccount() should return the injected service")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "credentials.json")
	sc, err := NewServerContext(context.Background(), ticktick.ServiceConfig{}, credsPath, nil)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}

	if sc.IsShutdown() {
		t.Error("IsShutdown() should be false before Shutdown()")
	}

	if err := sc.Shutdown(); err != nil {
		t.Errorf("first Shutdown() error = %v", err)
	}
	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}

	if !sc.IsShutdown() {
		t.Error("IsShutdown() should be true after Shutdown()")
	}

	select {
	case <-sc.Context().Done():
	default:
		t.Error("Context() should be canceled after Shutdown()")
	}
}

func TestMetricsAndAuditLoggerDefaults(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "credentials.json")
	sc, err := NewServerContext(context.Background(), ticktick.ServiceConfig{}, credsPath, nil)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	if sc.Metrics() != nil {
		t.Error("Metrics() should be nil until set")
	}
	if sc.AuditLogger() != nil {
		t.Error("AuditLogger() should be nil until set")
	}
}
