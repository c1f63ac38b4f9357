package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ibflow/models"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `ibflow:
  name: "TestApp"
  version: "1.0"
gateway:
  host: 10.0.0.5
  port: 7496
  client_id: 3
engine:
  timeouts:
    verify: 2s
  rate_limit:
    requests_per_second: 20
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.IBFlow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.IBFlow.Name)
	}
	if cfg.Gateway.Host != "10.0.0.5" || cfg.Gateway.Port != 7496 {
		t.Errorf("gateway settings not applied: %+v", cfg.Gateway)
	}
	if cfg.Engine.Timeouts.Verify != 2*time.Second {
		t.Errorf("unexpected verify timeout: %v", cfg.Engine.Timeouts.Verify)
	}
	// Defaults survive a partial file.
	if cfg.Engine.Timeouts.Snapshot != 5*time.Second {
		t.Errorf("snapshot timeout default lost: %v", cfg.Engine.Timeouts.Snapshot)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults lost: %+v", cfg.Logging)
	}
	if cfg.Contract.ReferenceCurrency != "USD" {
		t.Errorf("reference currency default lost: %s", cfg.Contract.ReferenceCurrency)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad port", "gateway:\n  port: 99999\n"},
		{"negative client id", "gateway:\n  client_id: -1\n"},
		{"zero verify timeout", "engine:\n  timeouts:\n    verify: 0s\n"},
		{"metrics without interval", "metrics:\n  enabled: true\n  report_interval: 0s\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultRequiredFields(t *testing.T) {
	table := DefaultRequiredFields()

	fields, ok := table.RequiredFields(models.SecTypeStock)
	if !ok {
		t.Fatal("no stock field set")
	}
	byName := map[string]string{}
	for _, f := range fields {
		byName[f.Name] = f.Default
	}
	if _, ok := byName["symbol"]; !ok {
		t.Error("stock must require a symbol")
	}
	if byName["currency"] != "USD" || byName["exchange"] != "SMART" {
		t.Errorf("unexpected stock defaults: %v", byName)
	}

	if _, ok := table.RequiredFields(models.SecType("WAR")); ok {
		t.Error("unknown security type must report no field set")
	}
}

func TestLoadRequiredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yml")
	content := `required_fields:
  STK:
    - symbol
    - currency: EUR
    - exchange: IBIS
  BOND:
    - symbol
    - currency
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fields file: %v", err)
	}

	table, err := LoadRequiredFields(path)
	if err != nil {
		t.Fatalf("LoadRequiredFields failed: %v", err)
	}

	fields, _ := table.RequiredFields(models.SecTypeStock)
	if len(fields) != 3 || fields[1].Default != "EUR" {
		t.Errorf("stock override not applied: %+v", fields)
	}

	if _, ok := table.RequiredFields(models.SecTypeBond); !ok {
		t.Error("added security type missing")
	}

	// Types absent from the file keep their built-in sets.
	if _, ok := table.RequiredFields(models.SecTypeOption); !ok {
		t.Error("built-in option field set lost")
	}
}

func TestAppEnvironment(t *testing.T) {
	t.Setenv(appEnvVar, "")
	if env := AppEnvironment(); env != EnvironmentDevelopment {
		t.Errorf("expected development default, got %s", env)
	}

	t.Setenv(appEnvVar, "LIVE")
	if env := AppEnvironment(); env != EnvironmentProduction {
		t.Errorf("alias not normalised: %s", env)
	}
	if !IsLive(AppEnvironment()) {
		t.Error("production must be live")
	}

	t.Setenv(appEnvVar, "paper")
	if IsLive(AppEnvironment()) {
		t.Error("paper must not be live")
	}
}
