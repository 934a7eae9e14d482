package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/flowmedic/internal/models"
)

// ErrReportWrite marks a report persistence failure. The interactive
// rendering already shown stays valid when this happens.
var ErrReportWrite = errors.New("failed to write report")

// ReportFileName builds the deterministic report name for a workspace and
// generation time.
func ReportFileName(workspace string, ts time.Time) string {
	return fmt.Sprintf("%s-oom-report-%s.md", workspace, ts.Format("20060102-150405"))
}

// RenderMarkdown serializes the result as the persisted report document. The
// output is a pure function of the result: same result, same bytes.
func RenderMarkdown(result *models.InvestigationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# OOM Investigation: %s\n\n", result.Target.Workspace)
	fmt.Fprintf(&b, "Generated: %s UTC by flowmedic %s\n\n",
		result.GeneratedAt.UTC().Format("2006-01-02 15:04:05"), result.Version)

	for _, section := range BuildSections(result) {
		fmt.Fprintf(&b, "## %s\n\n", section.Title)

		if section.Unavailable != "" {
			b.WriteString(section.Unavailable + "\n\n")
			continue
		}

		for _, line := range section.Lines {
			b.WriteString(line + "\n")
		}
		if len(section.Lines) > 0 {
			b.WriteString("\n")
		}

		if len(section.Header) > 0 {
			writeMarkdownTable(&b, section.Header, section.Rows)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// WriteReport persists the rendered document into dir, creating it if needed.
// The file is written once and never rewritten; timestamped names keep paths
// unique.
func WriteReport(result *models.InvestigationResult, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportWrite, err)
	}

	path := filepath.Join(dir, ReportFileName(result.Target.Workspace, result.GeneratedAt))
	if err := os.WriteFile(path, []byte(RenderMarkdown(result)), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportWrite, err)
	}

	return path, nil
}

func writeMarkdownTable(b *strings.Builder, header []string, rows [][]string) {
	if len(rows) == 0 {
		b.WriteString("(empty)\n")
		return
	}

	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.ReplaceAll(cell, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}
