package config

import (
	"os"
	"path/filepath"
)

// Thresholds are the diagnosis rule limits. They follow the crashloop
// runbook values and can be overridden per deployment via .flowmedic.yaml.
type Thresholds struct {
	// TableBloatBytes flags the execution-payload table above this size.
	TableBloatBytes int64
	// InactiveDataBytes flags stored data held by inactive workflows.
	InactiveDataBytes int64
	// LargeExecutionBytes flags any single execution payload above this size.
	LargeExecutionBytes int64
	// PendingBacklog flags queued executions above this count.
	PendingBacklog int64
	// DatabaseWarnBytes and DatabaseCritBytes grade total database size.
	DatabaseWarnBytes int64
	DatabaseCritBytes int64
	// ErrorCount24h flags a workflow with more errors than this in 24h.
	ErrorCount24h int64
	// Volume24h flags total executions above this count in 24h.
	Volume24h int64
}

// DefaultThresholds returns the standard rule limits (decimal MB).
func DefaultThresholds() Thresholds {
	return Thresholds{
		TableBloatBytes:     100 * 1000 * 1000,
		InactiveDataBytes:   10 * 1000 * 1000,
		LargeExecutionBytes: 10 * 1000 * 1000,
		PendingBacklog:      100,
		DatabaseWarnBytes:   200 * 1000 * 1000,
		DatabaseCritBytes:   500 * 1000 * 1000,
		ErrorCount24h:       50,
		Volume24h:           500,
	}
}

// Config holds all runtime configuration
type Config struct {
	// Instance settings
	Workspace    string
	KubeConfig   string
	DBContainer  string
	AppContainer string
	DatabasePath string

	// Exporter service settings (backup listing/export)
	ExporterNamespace string

	// Output settings
	DownloadsDir string

	// Investigation settings
	TopExecutions int
	Concurrency   int
	ExecRateLimit int
	ExcludeTables []string
	Thresholds    Thresholds

	// Operational flags
	Verbose bool
	Yes     bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DBContainer:       "backup-cron",
		AppContainer:      "n8n",
		DatabasePath:      "database.sqlite",
		ExporterNamespace: "workflow-exporter",
		DownloadsDir:      defaultDownloadsDir(),
		TopExecutions:     5,
		Concurrency:       4,
		ExecRateLimit:     5,
		ExcludeTables:     []string{},
		Thresholds:        DefaultThresholds(),
	}
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}
