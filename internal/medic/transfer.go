package medic

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var sqldumpDateRe = regexp.MustCompile(`_sqldump_(\d{8})_`)

// ExportWorkflows dumps every workflow definition from the app container and
// writes it gzipped into dir. Returns the written path.
func (m *Medic) ExportWorkflows(ctx context.Context, inst Instance, dir string) (string, error) {
	stdout, stderr, exitCode, err := m.runner.ExecInPod(ctx, inst.App,
		[]string{"n8n", "export:workflow", "--all", "--pretty"})
	if err != nil {
		return "", fmt.Errorf("workflow export failed: %w", err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("workflow export exited %d: %s", exitCode, strings.TrimSpace(stderr))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := fmt.Sprintf("%s-workflows-%s.json.gz",
		inst.App.Workspace, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(stdout)); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finish export file: %w", err)
	}

	return path, nil
}

// ImportWorkflows streams a workflow definition file into the app container
// and imports it. The file lands in /tmp first because the import command
// reads from a path, not stdin.
func (m *Medic) ImportWorkflows(ctx context.Context, inst Instance, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	const remotePath = "/tmp/flowmedic-import.json"
	cmd := []string{"sh", "-c",
		fmt.Sprintf("cat > %s && n8n import:workflow --input=%s && rm -f %s",
			remotePath, remotePath, remotePath)}

	_, stderr, exitCode, err := m.runner.ExecInPodWithStdin(ctx, inst.App, cmd, f)
	if err != nil {
		return fmt.Errorf("workflow import failed: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("workflow import exited %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// Backup is one stored database dump visible to the exporter service.
type Backup struct {
	Name string
	Date string
}

// ListBackups asks the exporter service for the workspace's stored dumps,
// newest first.
func (m *Medic) ListBackups(ctx context.Context, inst Instance) ([]Backup, error) {
	stdout, stderr, exitCode, err := m.runner.ExecInPod(ctx, inst.Exporter,
		[]string{"pnpm", "wf", inst.App.Workspace, "list"})
	if err != nil {
		return nil, fmt.Errorf("backup listing failed: %w", err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("backup listing exited %d: %s", exitCode, strings.TrimSpace(stderr))
	}

	var backups []Backup
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := sqldumpDateRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		backups = append(backups, Backup{Name: line, Date: match[1]})
	}

	sort.SliceStable(backups, func(i, j int) bool { return backups[i].Date > backups[j].Date })
	return backups, nil
}

// ExportBackup has the exporter service package the workspace's workflows and
// copies the archive into dir. Returns the local path.
func (m *Medic) ExportBackup(ctx context.Context, inst Instance, dir string) (string, error) {
	workspace := inst.App.Workspace

	_, stderr, exitCode, err := m.runner.ExecInPod(ctx, inst.Exporter,
		[]string{"pnpm", "wf", workspace, "export"})
	if err != nil {
		return "", fmt.Errorf("backup export failed: %w", err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("backup export exited %d: %s", exitCode, strings.TrimSpace(stderr))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	remotePath := fmt.Sprintf("/tmp/output/%s-workflows.zip", workspace)
	localPath := filepath.Join(dir, fmt.Sprintf("%s-workflows-%s.zip",
		workspace, time.Now().Format("20060102-150405")))

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := m.runner.CopyFromPod(ctx, inst.Exporter, remotePath, f); err != nil {
		return "", fmt.Errorf("copy archive: %w", err)
	}
	return localPath, nil
}
