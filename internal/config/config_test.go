package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DB_FILE", "/tmp/calories.sqlite")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.Bot.Token != "123:abc" || cfg.Database.File != "/tmp/calories.sqlite" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.OpenAI.Model != "gpt-3.5-turbo" || cfg.Server.Port != 8011 || cfg.State.Backend != "memory" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.State.TTL != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %v", cfg.State.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "bot.yml")
	content := `
openai:
  api_key: from-file
  model: gpt-4o-mini
server:
  port: 9000
state:
  backend: redis
redis:
  addr: redis:6379
log:
  level: debug
  logstash:
    enable: true
    url: logstash:5000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENAI_MODEL", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "from-file" || cfg.Server.Port != 9000 || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.OpenAI.Model != "from-env" {
		t.Fatalf("env must win over file, got %q", cfg.OpenAI.Model)
	}
	if !cfg.Log.LogstashEnable || cfg.Log.LogstashURL != "logstash:5000" || cfg.Log.Level != "debug" {
		t.Fatalf("nested log values not applied: %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load("does-not-exist.yml"); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		OpenAI:   OpenAIConfig{APIKey: "k"},
		Database: DatabaseConfig{File: "db"},
		Server:   ServerConfig{Enable: true},
		State:    StateConfig{Backend: "memory"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config: %v", err)
	}

	noKey := base
	noKey.OpenAI.APIKey = ""
	if noKey.Validate() == nil {
		t.Fatalf("expected missing api key error")
	}

	idle := base
	idle.Server.Enable = false
	if idle.Validate() == nil {
		t.Fatalf("expected error when neither bot nor server runs")
	}

	unknown := base
	unknown.State.Backend = "etcd"
	if unknown.Validate() == nil {
		t.Fatalf("expected unknown backend error")
	}
}
