package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/cassette/config"
	"github.com/artpar/cassette/domain/module"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cassette.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
source_dir: /srv/assets
cache_dir: /var/cache/cassette

cache:
  driver: yaml
  filename: cache.yaml

kinds: [scripts, stylesheets]

server:
  host: 0.0.0.0
  port: 9090

logging:
  level: debug
  format: console

metrics:
  enabled: true

watch:
  debounce: 1s
`
	cfg := writeAndLoad(t, content)

	if cfg.SourceDir != "/srv/assets" {
		t.Errorf("SourceDir = %s, want /srv/assets", cfg.SourceDir)
	}
	if cfg.CacheDir != "/var/cache/cassette" {
		t.Errorf("CacheDir = %s, want /var/cache/cassette", cfg.CacheDir)
	}
	if cfg.Cache.Driver != config.CacheDriverYAML || cfg.Cache.Filename != "cache.yaml" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr() = %s, want 0.0.0.0:9090", cfg.Addr())
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Watch.Debounce = %v, want 1s", cfg.Watch.Debounce)
	}

	kinds, err := cfg.ModuleKinds()
	if err != nil {
		t.Fatalf("ModuleKinds error: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != module.KindScript || kinds[1] != module.KindStylesheet {
		t.Errorf("ModuleKinds() = %v", kinds)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "source_dir: /srv/assets\n")

	if cfg.CacheDir != filepath.Join("/srv/assets", config.DefaultCacheDirName) {
		t.Errorf("CacheDir = %s", cfg.CacheDir)
	}
	if cfg.Cache.Driver != config.CacheDriverSQLite {
		t.Errorf("Cache.Driver = %s, want sqlite", cfg.Cache.Driver)
	}
	if len(cfg.Kinds) != 3 {
		t.Errorf("Kinds = %v, want all three", cfg.Kinds)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8088 {
		t.Errorf("Server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 250ms", cfg.Watch.Debounce)
	}
}

func TestLoad_RelativeDirectories(t *testing.T) {
	path := writeConfig(t, "source_dir: assets\ncache_dir: tmp/cache\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.SourceDir != filepath.Join(base, "assets") {
		t.Errorf("SourceDir = %s", cfg.SourceDir)
	}
	if cfg.CacheDir != filepath.Join(base, "tmp/cache") {
		t.Errorf("CacheDir = %s", cfg.CacheDir)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ASSET_ROOT", "/from/env")

	cfg := writeAndLoad(t, "source_dir: ${TEST_ASSET_ROOT}\n")
	if cfg.SourceDir != "/from/env" {
		t.Errorf("SourceDir = %s, want /from/env", cfg.SourceDir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing source", "cache:\n  driver: yaml\n"},
		{"unknown driver", "source_dir: /a\ncache:\n  driver: redis\n"},
		{"unknown kind", "source_dir: /a\nkinds: [images]\n"},
		{"bad port", "source_dir: /a\nserver:\n  port: 70000\n"},
		{"bad format", "source_dir: /a\nlogging:\n  format: xml\n"},
		{"invalid yaml", "source_dir: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CASSETTE_SERVER_PORT", "7777")
	t.Setenv("CASSETTE_LOG_LEVEL", "error")
	t.Setenv("CASSETTE_CACHE_DRIVER", "none")
	t.Setenv("CASSETTE_KINDS", "templates")

	cfg := writeAndLoad(t, "source_dir: /a\nserver:\n  port: 9090\n")

	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %s, want error", cfg.Logging.Level)
	}
	if cfg.Cache.Driver != config.CacheDriverNone {
		t.Errorf("Cache.Driver = %s, want none", cfg.Cache.Driver)
	}
	kinds, _ := cfg.ModuleKinds()
	if len(kinds) != 1 || kinds[0] != module.KindHTMLTemplate {
		t.Errorf("ModuleKinds() = %v", kinds)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CASSETTE_SOURCE_DIR", "/env/assets")
	t.Setenv("CASSETTE_METRICS_ENABLED", "yes")
	t.Setenv("CASSETTE_WATCH_DEBOUNCE", "2s")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.SourceDir != "/env/assets" {
		t.Errorf("SourceDir = %s", cfg.SourceDir)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Watch.Debounce = %v, want 2s", cfg.Watch.Debounce)
	}
}

func TestForSource(t *testing.T) {
	t.Setenv("CASSETTE_SOURCE_DIR", "/env/assets")
	t.Setenv("CASSETTE_CACHE_DRIVER", "yaml")

	cfg, err := config.ForSource("/flag/assets")
	if err != nil {
		t.Fatalf("ForSource error: %v", err)
	}
	if cfg.SourceDir != "/flag/assets" {
		t.Errorf("SourceDir = %s, want /flag/assets", cfg.SourceDir)
	}
	if want := filepath.Join("/flag/assets", config.DefaultCacheDirName); cfg.CacheDir != want {
		t.Errorf("CacheDir = %s, want %s", cfg.CacheDir, want)
	}
	if cfg.Cache.Driver != config.CacheDriverYAML {
		t.Errorf("Cache.Driver = %s, want yaml", cfg.Cache.Driver)
	}

	if _, err := config.ForSource(""); err == nil {
		t.Error("ForSource should require a directory")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		cfg, err := config.LoadWithFallback(writeConfig(t, "source_dir: /file\n"))
		if err != nil || cfg.SourceDir != "/file" {
			t.Errorf("LoadWithFallback = %v, %v", cfg, err)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("CASSETTE_SOURCE_DIR", "/env")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil || cfg.SourceDir != "/env" {
			t.Errorf("LoadWithFallback = %v, %v", cfg, err)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		t.Setenv("CASSETTE_SOURCE_DIR", "")
		if _, err := config.LoadWithFallback(""); err == nil {
			t.Error("LoadWithFallback should fail without file or env")
		}
	})
}

func TestModuleKinds_Deduplicates(t *testing.T) {
	cfg := &config.Config{Kinds: []string{"scripts", "ScriptModule", " styles "}}

	if _, err := cfg.ModuleKinds(); err == nil {
		t.Error("ModuleKinds should reject unknown aliases")
	}

	cfg.Kinds = []string{"scripts", "ScriptModule", " stylesheets "}
	kinds, err := cfg.ModuleKinds()
	if err != nil {
		t.Fatalf("ModuleKinds error: %v", err)
	}
	if len(kinds) != 2 {
		t.Errorf("ModuleKinds() = %v, want 2 kinds", kinds)
	}
}
