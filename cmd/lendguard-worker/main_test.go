package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davidahmann/lendguard/internal/approval"
	"github.com/davidahmann/lendguard/internal/store/sqlstore"
)

func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lendguard.db")
	cfg := fmt.Sprintf("policy_path: ./policies/governance.yaml\nstore:\n  driver: sqlite\n  dsn: %q\nescalation:\n  channel: queued\n  poll_interval: 10ms\n%s", dbPath, extra)
	path := filepath.Join(dir, "lendguard.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dbPath
}

func enqueue(t *testing.T, dbPath string) {
	t.Helper()
	s, err := sqlstore.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	ch := approval.NewQueuedChannel(s, "slack")
	if _, err := ch.RequestOverride(context.Background(), approval.Request{ApplicantID: "A1", AIDecision: "rejected"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func noEnv(string) string { return "" }

func TestRunRequiresConfig(t *testing.T) {
	if err := run(context.Background(), nil, noEnv, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunRejectsStoreWithoutOutbox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lendguard.yaml")
	cfg := "store:\n  driver: jsonfile\n  path: " + filepath.Join(dir, "d.json") + "\nescalation:\n  channel: none\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := run(context.Background(), []string{"--config", path, "--once"}, noEnv, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunOnceWritesEscalations(t *testing.T) {
	path, dbPath := writeConfig(t, "")
	enqueue(t, dbPath)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--config", path, "--once"}, noEnv, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "escalation applicant_id=A1 ") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "processed=1") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	if err := run(context.Background(), []string{"--config", path, "--once"}, noEnv, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 || !strings.Contains(stderr.String(), "processed=0") {
		t.Fatalf("escalation delivered twice: %q %q", stdout.String(), stderr.String())
	}
}

func TestRunPostsToSlackFromEnv(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path, dbPath := writeConfig(t, "logging:\n  level: error\n")
	enqueue(t, dbPath)

	getenv := func(key string) string {
		if key == "LENDGUARD_SLACK_WEBHOOK_URL" {
			return srv.URL
		}
		if key == "LENDGUARD_CONFIG" {
			return path
		}
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := run(ctx, nil, getenv, &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one webhook post, got %d", hits.Load())
	}
}
