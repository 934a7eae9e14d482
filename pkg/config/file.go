package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".flowmedic.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".flowmedic.yml"
)

// FileConfig represents values loaded from a .flowmedic.yaml file.
type FileConfig struct {
	Workspace         string   `yaml:"workspace"`
	KubeConfig        string   `yaml:"kubeconfig"`
	DBContainer       string   `yaml:"db_container"`
	AppContainer      string   `yaml:"app_container"`
	DatabasePath      string   `yaml:"database_path"`
	ExporterNamespace string   `yaml:"exporter_namespace"`
	DownloadsDir      string   `yaml:"downloads_dir"`
	ExcludeTables     []string `yaml:"exclude_tables"`

	TableBloatMB      *int64 `yaml:"table_bloat_mb"`
	InactiveDataMB    *int64 `yaml:"inactive_data_mb"`
	LargeExecutionMB  *int64 `yaml:"large_execution_mb"`
	PendingBacklog    *int64 `yaml:"pending_backlog"`
	DatabaseWarnMB    *int64 `yaml:"database_warn_mb"`
	DatabaseCritMB    *int64 `yaml:"database_crit_mb"`
	ErrorCount24h     *int64 `yaml:"error_count_24h"`
	Volume24h         *int64 `yaml:"volume_24h"`
}

// Apply copies set file values onto the runtime config. Flag values win, so
// commands call Apply before binding flags.
func (fc *FileConfig) Apply(cfg *Config) {
	if fc == nil || cfg == nil {
		return
	}

	if v := strings.TrimSpace(fc.Workspace); v != "" {
		cfg.Workspace = v
	}
	if v := strings.TrimSpace(fc.KubeConfig); v != "" {
		cfg.KubeConfig = v
	}
	if v := strings.TrimSpace(fc.DBContainer); v != "" {
		cfg.DBContainer = v
	}
	if v := strings.TrimSpace(fc.AppContainer); v != "" {
		cfg.AppContainer = v
	}
	if v := strings.TrimSpace(fc.DatabasePath); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(fc.ExporterNamespace); v != "" {
		cfg.ExporterNamespace = v
	}
	if v := strings.TrimSpace(fc.DownloadsDir); v != "" {
		cfg.DownloadsDir = v
	}
	if len(fc.ExcludeTables) > 0 {
		cfg.ExcludeTables = append(cfg.ExcludeTables, fc.ExcludeTables...)
	}

	const mb = 1000 * 1000
	if fc.TableBloatMB != nil {
		cfg.Thresholds.TableBloatBytes = *fc.TableBloatMB * mb
	}
	if fc.InactiveDataMB != nil {
		cfg.Thresholds.InactiveDataBytes = *fc.InactiveDataMB * mb
	}
	if fc.LargeExecutionMB != nil {
		cfg.Thresholds.LargeExecutionBytes = *fc.LargeExecutionMB * mb
	}
	if fc.PendingBacklog != nil {
		cfg.Thresholds.PendingBacklog = *fc.PendingBacklog
	}
	if fc.DatabaseWarnMB != nil {
		cfg.Thresholds.DatabaseWarnBytes = *fc.DatabaseWarnMB * mb
	}
	if fc.DatabaseCritMB != nil {
		cfg.Thresholds.DatabaseCritBytes = *fc.DatabaseCritMB * mb
	}
	if fc.ErrorCount24h != nil {
		cfg.Thresholds.ErrorCount24h = *fc.ErrorCount24h
	}
	if fc.Volume24h != nil {
		cfg.Thresholds.Volume24h = *fc.Volume24h
	}

	cfg.Normalize()
}

// AutoLoadFile discovers and loads the first available config file.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	return cfg, nil
}
