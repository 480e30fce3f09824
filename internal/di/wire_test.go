package di

import (
	"testing"

	"Copilot/pkg/config"
)

func TestInitializeAppInMemory(t *testing.T) {
	cfg, err := config.Parse([]byte(`
environment: test
log:
  level: error
auth:
  jwt_secret: test-secret
database:
  driver: memory
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer cleanup()
	if app == nil {
		t.Fatalf("expected app")
	}
}

func TestInitializeAppRejectsMissingRedis(t *testing.T) {
	cfg, err := config.Parse([]byte(`
environment: test
auth:
  jwt_secret: test-secret
database:
  driver: memory
redis:
  enabled: true
  host: 127.0.0.1
  port: 1
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if _, _, err := InitializeApp(cfg); err == nil {
		t.Fatalf("expected redis connection error")
	}
}
