package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileYAML)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeTempConfig(t, `
workspace: acme-prod
db_container: sqlite-sidecar
database_path: /data/database.sqlite
exclude_tables:
  - sqlite_*
  - migrations
database_warn_mb: 300
pending_backlog: 250
`)

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if fc.Workspace != "acme-prod" {
		t.Errorf("Workspace = %q, want acme-prod", fc.Workspace)
	}
	if fc.DBContainer != "sqlite-sidecar" {
		t.Errorf("DBContainer = %q, want sqlite-sidecar", fc.DBContainer)
	}
	if len(fc.ExcludeTables) != 2 {
		t.Errorf("ExcludeTables has %d entries, want 2", len(fc.ExcludeTables))
	}
	if fc.DatabaseWarnMB == nil || *fc.DatabaseWarnMB != 300 {
		t.Errorf("DatabaseWarnMB = %v, want 300", fc.DatabaseWarnMB)
	}
	if fc.PendingBacklog == nil || *fc.PendingBacklog != 250 {
		t.Errorf("PendingBacklog = %v, want 250", fc.PendingBacklog)
	}
	if fc.TableBloatMB != nil {
		t.Errorf("TableBloatMB = %v, want nil (unset)", fc.TableBloatMB)
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "workspace: [unclosed")

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error for invalid YAML")
	}
}

func TestApplyOverrides(t *testing.T) {
	warn := int64(300)
	fc := &FileConfig{
		Workspace:      "acme-prod",
		DatabaseWarnMB: &warn,
		ExcludeTables:  []string{"sqlite_*"},
	}

	cfg := DefaultConfig()
	fc.Apply(cfg)

	if cfg.Workspace != "acme-prod" {
		t.Errorf("Workspace = %q, want acme-prod", cfg.Workspace)
	}
	if cfg.Thresholds.DatabaseWarnBytes != 300*1000*1000 {
		t.Errorf("DatabaseWarnBytes = %d, want 300MB", cfg.Thresholds.DatabaseWarnBytes)
	}
	// Unset thresholds keep their defaults.
	if cfg.Thresholds.DatabaseCritBytes != 500*1000*1000 {
		t.Errorf("DatabaseCritBytes = %d, want default 500MB", cfg.Thresholds.DatabaseCritBytes)
	}
	if !cfg.IsTableExcluded("sqlite_sequence") {
		t.Error("expected sqlite_sequence to be excluded after Apply")
	}
	// Defaults survive when the file leaves them blank.
	if cfg.DBContainer != "backup-cron" {
		t.Errorf("DBContainer = %q, want default backup-cron", cfg.DBContainer)
	}
}

func TestLoadFirstExistingFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "absent.yaml")
	present := filepath.Join(dir, DefaultConfigFileYAML)
	if err := os.WriteFile(present, []byte("workspace: acme\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, path, err := LoadFirstExistingFile([]string{missing, present})
	if err != nil {
		t.Fatalf("LoadFirstExistingFile failed: %v", err)
	}
	if path != present {
		t.Errorf("path = %q, want %q", path, present)
	}
	if fc == nil || fc.Workspace != "acme" {
		t.Errorf("Workspace = %v, want acme", fc)
	}
}

func TestLoadFirstExistingFileNoneFound(t *testing.T) {
	dir := t.TempDir()
	fc, path, err := LoadFirstExistingFile([]string{filepath.Join(dir, "absent.yaml")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc != nil || path != "" {
		t.Errorf("got fc=%v path=%q, want nil and empty", fc, path)
	}
}
