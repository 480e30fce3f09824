package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
auth:
  jwt_secret: s3cret
database:
  driver: memory
`

func TestParseFillsDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", c.Server.Port)
	}
	if c.Auth.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl %v", c.Auth.AccessTokenTTL)
	}
	if c.Providers.Historical != "yahoo" {
		t.Fatalf("unexpected provider %q", c.Providers.Historical)
	}
	if c.Indicators.Squeeze.KCScalar != 1.5 || c.Indicators.Squeeze.BBLength != 20 {
		t.Fatalf("unexpected squeeze defaults %+v", c.Indicators.Squeeze)
	}
	if len(c.Server.AllowOrigins) != 1 || c.Server.AllowOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", c.Server.AllowOrigins)
	}
}

func TestParseRequiresSecret(t *testing.T) {
	_, err := Parse([]byte("environment: test\ndatabase:\n  driver: memory\n"))
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}

func TestParseRejectsUnknownProvider(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + "providers:\n  historical: bloomberg\n"))
	if err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestPostgresNeedsDSN(t *testing.T) {
	_, err := Parse([]byte("environment: test\nauth:\n  jwt_secret: x\n"))
	if err == nil || !strings.Contains(err.Error(), "database.dsn") {
		t.Fatalf("expected dsn error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"DEBUG":                 "true",
		"ALPHA_VANTAGE_API_KEY": "av-key",
		"REDIS_ADDR":            "cache:6380",
		"KAFKA_BROKERS":         "k1:9092,k2:9092",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if !c.Debug {
		t.Fatalf("expected debug")
	}
	if c.Providers.AlphaVantage.APIKey != "av-key" {
		t.Fatalf("api key not applied")
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("redis addr not applied: %+v", c.Redis)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("brokers not applied: %v", c.Kafka.Brokers)
	}
}
