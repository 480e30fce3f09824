package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "copilot",
		User:        "reader",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
	})
	if !strings.HasPrefix(dsn, "clickhouse://reader:p%40ss@ch:9000/copilot?") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if !strings.Contains(dsn, "dial_timeout=5s") || !strings.Contains(dsn, "max_execution_time=30") {
		t.Fatalf("missing params in %s", dsn)
	}

	httpDSN := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", UseHTTP: true})
	if !strings.HasPrefix(httpDSN, "http://") {
		t.Fatalf("expected http scheme, got %s", httpDSN)
	}
}
