package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "toolhost.yaml"
	homeConfigDir     = ".toolhost"
	homeConfigName    = "config.yaml"
)

// ConfigFile is the declarative startup config for a tool host process.
// Every value has a flag override; flags win when set.
type ConfigFile struct {
	Host       HostConfig       `yaml:"host"`
	Clinical   ClinicalConfig   `yaml:"clinical"`
	Database   DatabaseConfig   `yaml:"database"`
	Filesystem FilesystemConfig `yaml:"filesystem"`
	Health     HealthConfig     `yaml:"health"`
	Otel       OtelConfig       `yaml:"otel"`
}

// HostConfig holds loop-level settings.
type HostConfig struct {
	// CallTimeoutMS bounds each handler invocation; 0 waits indefinitely.
	CallTimeoutMS int `yaml:"call_timeout_ms"`
	// MaxResultBytes truncates success payloads beyond this size; 0 disables.
	MaxResultBytes int `yaml:"max_result_bytes"`
}

// ClinicalConfig holds the external-API endpoints.
type ClinicalConfig struct {
	RegistryURL   string `yaml:"registry_url"`
	LabelURL      string `yaml:"label_url"`
	HTTPTimeoutMS int    `yaml:"http_timeout_ms"`
}

// DatabaseConfig holds the relational store connection settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FilesystemConfig holds filesystem operation settings.
type FilesystemConfig struct {
	Root string `yaml:"root"`
}

// HealthConfig holds the downstream probe schedule.
type HealthConfig struct {
	// Schedule is a cron expression; empty uses the monitor default.
	Schedule string `yaml:"schedule"`
	// Disabled turns background probing off.
	Disabled bool `yaml:"disabled"`
}

// OtelConfig holds telemetry export settings.
type OtelConfig struct {
	// Endpoint is an OTLP/HTTP trace collector host:port; empty disables export.
	Endpoint string `yaml:"endpoint"`
}

// DiscoverConfigPath resolves the config location with first-match semantics:
// explicit path, ./toolhost.yaml, then ~/.toolhost/config.yaml.
func DiscoverConfigPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverConfigPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverConfigPathFrom is a testable variant of DiscoverConfigPath.
func DiscoverConfigPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("stat config candidate %q: %w", candidate, err)
		}
		// A directory at an explicit path is an error; at a discovered
		// location it is skipped.
		if i == 0 && strings.TrimSpace(explicitPath) != "" {
			return "", false, fmt.Errorf("config path %q is a directory", candidate)
		}
	}
	if strings.TrimSpace(explicitPath) != "" {
		return "", false, fmt.Errorf("config file %q not found", explicitPath)
	}
	return "", false, nil
}

// LoadConfigFile parses a YAML config file.
func LoadConfigFile(path string) (ConfigFile, error) {
	var cfg ConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}
