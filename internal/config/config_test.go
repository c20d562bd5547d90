package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load with absent file: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Proxy.ConfigPath != "proxy_config.json" {
		t.Errorf("default proxy config path = %s", cfg.Proxy.ConfigPath)
	}
	if cfg.DataDir != "data" {
		t.Errorf("default data dir = %s", cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
data_source:
  tushare_token: from-file
redis:
  addr: redis:6379
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TUSHARE_TOKEN", "from-env")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("port = %s, want 9000 from file", cfg.Server.Port)
	}
	if cfg.DataSource.TushareToken != "from-env" {
		t.Errorf("tushare token = %s, env must win over file", cfg.DataSource.TushareToken)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %s", cfg.Redis.Addr)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = "not-a-port"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for non-numeric port")
	}
}
