package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/config"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/version"
)

const rejectedLogin = `{"headerInfos":{"code":"0000"},"responseData":{"resultCode":"8105","resultDesc":"密码错误"}}`

// newTestGateway returns a gateway that rejects every login.
func newTestGateway(t *testing.T) (string, *atomic.Int32) {
	t.Helper()
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			logins.Add(1)
		}
		_, _ = io.WriteString(w, rejectedLogin)
	}))
	t.Cleanup(srv.Close)
	return srv.URL, &logins
}

func newTestConfig(t *testing.T, gateway string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataPath:         dir,
		DatabasePath:     filepath.Join(dir, "telecom.db"),
		ConfigFile:       filepath.Join(dir, "telecom_config.json"),
		StateBackend:     config.BackendSQLite,
		RedisAddr:        "127.0.0.1:6379",
		GatewayURL:       gateway,
		Schedule:         "0 20 * * *",
		ListenAddr:       "",
		LogLevel:         "error",
		LogEncoding:      "console",
		Notifiers:        []string{"console"},
		RequestTimeout:   5 * time.Second,
		MaxLoginFailures: 5,
		RetentionDays:    90,
	}
}

// execute runs the command tree with cfg injected and returns stdout.
func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	prev := logger.Logger
	t.Cleanup(func() { logger.Logger = prev })

	var stdout, stderr bytes.Buffer
	c := &command{
		stdout:     &stdout,
		stderr:     &stderr,
		loadConfig: func() (*config.Config, error) { return cfg, nil },
	}
	root := c.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	version.Reset()
	version.Version = "1.2.3"
	t.Cleanup(version.Reset)

	out, err := execute(t, nil, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "telecom-monitor 1.2.3") {
		t.Errorf("output = %q", out)
	}
}

func TestRunJSONOutput(t *testing.T) {
	gateway, logins := newTestGateway(t)
	cfg := newTestConfig(t, gateway)
	t.Setenv("TELECOM_USER", "13800138000,secret@13900139000,other,false")

	out, err := execute(t, cfg, "run", "--no-color", "-o", "json")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	var result services.RunResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(result.Outcomes))
	}
	for _, o := range result.Outcomes {
		if o.Status != models.OutcomeAuthFailed {
			t.Errorf("status of %s = %s, want %s", o.Phone, o.Status, models.OutcomeAuthFailed)
		}
	}
	if got := logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestRunYAMLOutput(t *testing.T) {
	gateway, _ := newTestGateway(t)
	cfg := newTestConfig(t, gateway)
	t.Setenv("TELECOM_USER", "13800138000,secret")

	out, err := execute(t, cfg, "run", "--output", "YAML")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, "run_id:") || !strings.Contains(out, "status: auth_failed") {
		t.Errorf("output = %q", out)
	}
}

func TestRunUnknownOutput(t *testing.T) {
	gateway, logins := newTestGateway(t)
	cfg := newTestConfig(t, gateway)
	t.Setenv("TELECOM_USER", "13800138000,secret")

	if _, err := execute(t, cfg, "run", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
	if logins.Load() != 0 {
		t.Error("gateway was called")
	}
}

func TestRunNoAccounts(t *testing.T) {
	gateway, _ := newTestGateway(t)
	cfg := newTestConfig(t, gateway)
	t.Setenv("TELECOM_USER", "")

	if _, err := execute(t, cfg, "run"); err == nil {
		t.Fatal("expected error without accounts")
	}
}

func TestRootBehavesLikeRun(t *testing.T) {
	gateway, logins := newTestGateway(t)
	cfg := newTestConfig(t, gateway)
	t.Setenv("TELECOM_USER", "13800138000,secret")

	out, err := execute(t, cfg, "--no-color")
	if err != nil {
		t.Fatalf("root error = %v", err)
	}
	if logins.Load() != 1 {
		t.Errorf("logins = %d, want 1", logins.Load())
	}
	if !strings.Contains(out, "processed 0, skipped 1") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusAndReset(t *testing.T) {
	gateway, _ := newTestGateway(t)
	cfg := newTestConfig(t, gateway)
	t.Setenv("TELECOM_USER", "13800138000,secret")

	if _, err := execute(t, cfg, "run", "-o", "json"); err != nil {
		t.Fatalf("run error = %v", err)
	}

	out, err := execute(t, cfg, "status", "--no-color")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "1/5") {
		t.Errorf("status output missing failure counter:\n%s", out)
	}

	out, err = execute(t, cfg, "reset", "13800138000")
	if err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if !strings.Contains(out, "cleared") {
		t.Errorf("reset output = %q", out)
	}

	out, err = execute(t, cfg, "status", "--no-color")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "0/5") {
		t.Errorf("failure counter not cleared:\n%s", out)
	}

	if _, err := execute(t, cfg, "reset", "13700137000"); err == nil {
		t.Error("expected error resetting an unknown account")
	}
}

func TestHistoryEmpty(t *testing.T) {
	cfg := newTestConfig(t, "http://127.0.0.1:1")

	out, err := execute(t, cfg, "history", "13800138000", "--no-color")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "No snapshots stored") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, cfg, "history", "13800138000", "--limit", "0"); err == nil {
		t.Error("expected error for non-positive limit")
	}
}

func TestSetupAppliesFlags(t *testing.T) {
	cfg := newTestConfig(t, "http://127.0.0.1:1")
	t.Setenv("TELECOM_DATABASE_PATH", "")
	dataDir := t.TempDir()

	if _, err := execute(t, cfg, "history", "13800138000", "--data", dataDir, "--log-level", "warn"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	if cfg.DataPath != dataDir {
		t.Errorf("DataPath = %s, want %s", cfg.DataPath, dataDir)
	}
	if want := filepath.Join(dataDir, "telecom.db"); cfg.DatabasePath != want {
		t.Errorf("DatabasePath = %s, want %s", cfg.DatabasePath, want)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", cfg.LogLevel)
	}
}

func TestSetupRejectsInvalidBackend(t *testing.T) {
	cfg := newTestConfig(t, "http://127.0.0.1:1")

	if _, err := execute(t, cfg, "status", "--state-backend", "etcd"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAccountSetReload(t *testing.T) {
	calls := 0
	set := &accountSet{load: func() ([]models.Credential, error) {
		calls++
		return []models.Credential{{Phone: "13800138000", Password: "x"}}, nil
	}}
	if err := set.reload(); err != nil {
		t.Fatalf("reload error = %v", err)
	}

	snap := set.snapshot()
	snap[0].Phone = "changed"
	if got := set.snapshot()[0].Phone; got != "13800138000" {
		t.Errorf("snapshot shares storage with the set: %s", got)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
