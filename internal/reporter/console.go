package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/flowmedic/internal/models"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	unavailableStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	criticalStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// RenderConsole writes the interactive report. The rendering is ephemeral;
// persisting goes through the Markdown writer.
func RenderConsole(out io.Writer, result *models.InvestigationResult) {
	for _, section := range BuildSections(result) {
		renderConsoleSection(out, section)
	}
}

// RenderUnavailable prints the single top-level notice shown when the
// instance could not be reached and no snapshot exists.
func RenderUnavailable(out io.Writer, workspace string, err error) {
	fmt.Fprintln(out, titleStyle.Render("Investigation aborted"))
	fmt.Fprintf(out, "Workspace %s is unreachable: %v\n", workspace, err)
	fmt.Fprintln(out, unavailableStyle.Render("No metrics were collected and no report was written."))
}

func renderConsoleSection(out io.Writer, s Section) {
	fmt.Fprintln(out, titleStyle.Render("== "+s.Title+" =="))

	if s.Unavailable != "" {
		fmt.Fprintln(out, unavailableStyle.Render(s.Unavailable))
		fmt.Fprintln(out)
		return
	}

	for _, line := range s.Lines {
		fmt.Fprintln(out, styleLine(line))
	}

	if len(s.Header) > 0 {
		if len(s.Rows) == 0 {
			fmt.Fprintln(out, unavailableStyle.Render("(empty)"))
		} else {
			renderColumns(out, s.Header, s.Rows)
		}
	}
	fmt.Fprintln(out)
}

// styleLine colors culprit lines by their severity tag.
func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "[CRITICAL]"):
		return criticalStyle.Render(line)
	case strings.HasPrefix(line, "[WARNING]"):
		return warningStyle.Render(line)
	case strings.HasPrefix(line, "[INFO]"):
		return infoStyle.Render(line)
	case strings.HasPrefix(line, "[UNKNOWN]"):
		return unavailableStyle.Render(line)
	default:
		return line
	}
}

func renderColumns(out io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	fmt.Fprintln(out, headerStyle.Render(formatRow(header, widths)))
	for _, row := range rows {
		fmt.Fprintln(out, formatRow(row, widths))
	}
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			parts[i] = cell
			continue
		}
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}
	return strings.Join(parts, "  ")
}
