package config

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	t.Setenv("TIMEZONE", "UTC")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr default: %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "./copbot.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.PruneSchedule != "0 3 * * *" {
		t.Fatalf("unexpected prune schedule default: %q", cfg.PruneSchedule)
	}
	if cfg.MaxSummaries != 1000 || cfg.MaxAlerts != 500 || cfg.MaxAllocations != 100 {
		t.Fatalf("unexpected retention defaults: %d/%d/%d", cfg.MaxSummaries, cfg.MaxAlerts, cfg.MaxAllocations)
	}
	if cfg.SlackEnabled {
		t.Fatal("slack should be disabled by default")
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
slack_enabled: true
slack_bot_token: "yaml-bot"
slack_app_token: "yaml-app"
http_addr: ":9000"
db_path: "/tmp/yaml.db"
timezone: "America/Sao_Paulo"
max_alerts: 50
fallback_regions:
  - "Minas Gerais"
shift_regions:
  - "NORTE"
  - "SUL"
area_table:
  - variant: "cluster alfa"
    area: "RIO"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("MAX_SUMMARIES", "200")

	cfg := LoadConfig()

	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("expected db path from env override, got %q", cfg.DBPath)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected http addr from yaml, got %q", cfg.HTTPAddr)
	}
	if cfg.SlackBotToken != "yaml-bot" {
		t.Fatalf("expected slack bot token from yaml, got %q", cfg.SlackBotToken)
	}
	if cfg.MaxSummaries != 200 {
		t.Fatalf("expected max summaries from env override, got %d", cfg.MaxSummaries)
	}
	if cfg.MaxAlerts != 50 {
		t.Fatalf("expected max alerts from yaml, got %d", cfg.MaxAlerts)
	}

	rules := cfg.Rules()
	if len(rules.FallbackRegions) != 1 || rules.FallbackRegions[0] != "Minas Gerais" {
		t.Fatalf("unexpected fallback regions: %v", rules.FallbackRegions)
	}
	if len(rules.ShiftRegions) != 2 {
		t.Fatalf("unexpected shift regions: %v", rules.ShiftRegions)
	}

	lex := cfg.Lexicon()
	area, ok := lex.Resolve("CLUSTER ALFA")
	if !ok || area != "RIO" {
		t.Fatalf("Resolve(CLUSTER ALFA) = %q, %v; want RIO", area, ok)
	}
}

func TestLexiconAndRulesFallBackToBuiltins(t *testing.T) {
	var cfg Config

	if _, ok := cfg.Lexicon().Resolve("Minas Gerais"); !ok {
		t.Fatal("built-in lexicon should resolve Minas Gerais")
	}
	rules := cfg.Rules()
	if len(rules.FallbackRegions) == 0 || len(rules.ShiftRegions) == 0 {
		t.Fatal("built-in rules should not be empty")
	}
}

func TestWatchesChannel(t *testing.T) {
	open := Config{}
	if !open.WatchesChannel("C123") {
		t.Fatal("empty channel list should watch everything")
	}

	scoped := Config{SlackChannels: []string{"C1", "C2"}}
	if !scoped.WatchesChannel("C2") {
		t.Fatal("expected C2 to be watched")
	}
	if scoped.WatchesChannel("C9") {
		t.Fatal("expected C9 to be ignored")
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	s := "initial"
	t.Setenv("CB_TEST_STR", "value")
	envOverride(&s, "CB_TEST_STR")
	if s != "value" {
		t.Fatalf("envOverride failed, got %q", s)
	}

	i := 1
	t.Setenv("CB_TEST_INT", "42")
	envOverrideInt(&i, "CB_TEST_INT")
	if i != 42 {
		t.Fatalf("envOverrideInt failed, got %d", i)
	}

	b := false
	t.Setenv("CB_TEST_BOOL", "1")
	envOverrideBool(&b, "CB_TEST_BOOL")
	if !b {
		t.Fatalf("envOverrideBool failed, got %v", b)
	}
}

func TestLoadConfigInvalidScheduleFatal(t *testing.T) {
	if os.Getenv("TEST_INVALID_SCHEDULE_FATAL") == "1" {
		_ = os.Setenv("CONFIG_PATH", filepath.Join(os.TempDir(), "no-config.yaml"))
		_ = os.Setenv("PRUNE_SCHEDULE", "not a cron spec")
		LoadConfig()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoadConfigInvalidScheduleFatal")
	cmd.Env = append(os.Environ(), "TEST_INVALID_SCHEDULE_FATAL=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with failure")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got: %v", err)
	}
}
