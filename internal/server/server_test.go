package server

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/fedquery/pkg/platform"
)

const testConfig = `
server:
  name: test-platform
  transport: stdio
connectors:
  loopback:
    enabled: true
    instances:
      demo: {row_count: 2}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("sets build-time version when config version is unset", func(t *testing.T) {
		cfg, err := platform.ParseConfig([]byte(testConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s, p, err := New(ctx, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() {
			if err := p.Close(); err != nil {
				t.Logf("Close() error (non-fatal): %v", err)
			}
		}()

		if s == nil {
			t.Error("expected non-nil server")
		}
		if cfg.Server.Version != Version {
			t.Errorf("expected version %q, got %q", Version, cfg.Server.Version)
		}
	})

	t.Run("preserves explicit config version", func(t *testing.T) {
		cfg, err := platform.ParseConfig([]byte(testConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg.Server.Version = "custom-v1"

		_, p, err := New(ctx, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() { _ = p.Close() }()

		if cfg.Server.Version != "custom-v1" {
			t.Errorf("expected version %q, got %q", "custom-v1", cfg.Server.Version)
		}
	})

	t.Run("invalid metadata provider", func(t *testing.T) {
		cfg, err := platform.ParseConfig([]byte("metadata:\n  provider: ldap\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, _, err := New(ctx, cfg); err == nil {
			t.Error("expected error for invalid metadata provider")
		}
	})
}

func TestNewWithConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("valid config file", func(t *testing.T) {
		s, p, err := NewWithConfig(ctx, writeConfig(t, testConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s == nil || p == nil {
			t.Fatal("expected non-nil server and platform")
		}
		if _, ok := p.Repository().Get("demo"); !ok {
			t.Error("expected demo connector")
		}
		if err := p.Close(); err != nil {
			t.Logf("Close() error (non-fatal): %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, _, err := NewWithConfig(ctx, "/nonexistent/path/config.yaml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid config content", func(t *testing.T) {
		path := writeConfig(t, "server:\n  transport: carrier-pigeon\n")
		if _, _, err := NewWithConfig(ctx, path); err == nil {
			t.Error("expected error for invalid config")
		}
	})
}

func TestHandler_StreamableHTTP(t *testing.T) {
	ctx := context.Background()
	s, p, err := NewWithConfig(ctx, writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = p.Close() }()

	ts := httptest.NewServer(Handler(s))
	defer ts.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = session.Close() }()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "list_connectors"})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %+v", result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected tool content")
	}
}

func TestServe(t *testing.T) {
	t.Run("unknown transport", func(t *testing.T) {
		_, p, err := NewWithConfig(context.Background(), writeConfig(t, testConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() { _ = p.Close() }()

		if err := Serve(context.Background(), p, "sse", ""); err == nil {
			t.Error("expected error for unknown transport")
		}
	})

	t.Run("http stops on context cancel", func(t *testing.T) {
		_, p, err := NewWithConfig(context.Background(), writeConfig(t, testConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() { _ = p.Close() }()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- Serve(ctx, p, "http", "127.0.0.1:0") }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
		if p.Config() == nil {
			t.Error("expected config")
		}
	})
}
