package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestDiscoverConfigPathExplicitWins(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()
	explicit := filepath.Join(t.TempDir(), "custom.yaml")
	writeConfig(t, explicit, "host: {}\n")
	writeConfig(t, filepath.Join(cwd, projectConfigName), "host: {}\n")

	path, found, err := DiscoverConfigPathFrom(explicit, cwd, home)
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if !found || path != explicit {
		t.Fatalf("path = %q found = %v, want explicit path", path, found)
	}
}

func TestDiscoverConfigPathExplicitMissingIsError(t *testing.T) {
	_, _, err := DiscoverConfigPathFrom(filepath.Join(t.TempDir(), "absent.yaml"), t.TempDir(), t.TempDir())
	if err == nil {
		t.Fatal("DiscoverConfigPathFrom() error = nil, want not-found error for explicit path")
	}
}

func TestDiscoverConfigPathProjectBeforeHome(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()
	project := filepath.Join(cwd, projectConfigName)
	writeConfig(t, project, "host: {}\n")
	writeConfig(t, filepath.Join(home, homeConfigDir, homeConfigName), "host: {}\n")

	path, found, err := DiscoverConfigPathFrom("", cwd, home)
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if !found || path != project {
		t.Fatalf("path = %q found = %v, want project config", path, found)
	}
}

func TestDiscoverConfigPathFallsBackToHome(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()
	homePath := filepath.Join(home, homeConfigDir, homeConfigName)
	writeConfig(t, homePath, "host: {}\n")

	path, found, err := DiscoverConfigPathFrom("", cwd, home)
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if !found || path != homePath {
		t.Fatalf("path = %q found = %v, want home config", path, found)
	}
}

func TestDiscoverConfigPathNoneFound(t *testing.T) {
	path, found, err := DiscoverConfigPathFrom("", t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if found || path != "" {
		t.Fatalf("path = %q found = %v, want no config without error", path, found)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), projectConfigName)
	writeConfig(t, path, `
host:
  call_timeout_ms: 15000
  max_result_bytes: 65536
clinical:
  registry_url: https://registry.example.test/api/v2/studies
  http_timeout_ms: 5000
database:
  driver: sqlite
  dsn: trials.db
filesystem:
  root: /srv/trial-data
health:
  schedule: "@every 1m"
  disabled: true
otel:
  endpoint: otel-collector:4318
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if cfg.Host.CallTimeoutMS != 15000 || cfg.Host.MaxResultBytes != 65536 {
		t.Fatalf("host config = %+v", cfg.Host)
	}
	if cfg.Clinical.RegistryURL != "https://registry.example.test/api/v2/studies" {
		t.Fatalf("registry_url = %q", cfg.Clinical.RegistryURL)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "trials.db" {
		t.Fatalf("database config = %+v", cfg.Database)
	}
	if cfg.Filesystem.Root != "/srv/trial-data" {
		t.Fatalf("filesystem root = %q", cfg.Filesystem.Root)
	}
	if cfg.Health.Schedule != "@every 1m" || !cfg.Health.Disabled {
		t.Fatalf("health config = %+v", cfg.Health)
	}
	if cfg.Otel.Endpoint != "otel-collector:4318" {
		t.Fatalf("otel endpoint = %q", cfg.Otel.Endpoint)
	}
}

func TestLoadConfigFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), projectConfigName)
	writeConfig(t, path, "host: [not a mapping\n")

	_, err := LoadConfigFile(path)
	if err == nil {
		t.Fatal("LoadConfigFile() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("error = %v, want parse config mention", err)
	}
}
